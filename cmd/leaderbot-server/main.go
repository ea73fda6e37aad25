package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "leaderbot-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := BuildApp(ctx)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer cleanup()

	cfg := app.Config
	log := app.Logger

	log.Info("starting leaderbot server",
		"environment", cfg.Environment,
		"profile", cfg.Profile,
		"address", cfg.Server.Address,
		"storage_adapter", cfg.Storage.Adapter,
		"required_role", cfg.Bot.RequiredRoleID)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "address", cfg.Server.Address)
		return serve(app.Server)
	})
	if app.Metrics.Server != nil {
		g.Go(func() error {
			log.Info("metrics listening", "address", cfg.Metrics.Address, "path", cfg.Metrics.Path)
			return serve(app.Metrics.Server)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		err := app.Server.Shutdown(shutdownCtx)
		if app.Metrics.Server != nil {
			err = errors.Join(err, app.Metrics.Server.Shutdown(shutdownCtx))
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
