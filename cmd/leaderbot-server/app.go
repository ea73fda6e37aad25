package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leaderbot/adapters/jsonfile"
	mem "leaderbot/adapters/memory"
	redisAdapter "leaderbot/adapters/redis"
	"leaderbot/adapters/sqlite"
	sqlxAdapter "leaderbot/adapters/sqlx"
	"leaderbot/analytics"
	"leaderbot/api/httpapi"
	"leaderbot/board"
	"leaderbot/config"
	"leaderbot/cooldown"
	"leaderbot/engine"
	"leaderbot/integrations/webhook"
	"leaderbot/realtime"
)

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Hub     *realtime.Hub
	Service *engine.Service
	Handler http.Handler
	Server  *http.Server
	Metrics *MetricsServer
}

// MetricsServer serves the Prometheus registry. Server is nil when metrics
// are disabled.
type MetricsServer struct {
	Server *http.Server
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Environment == config.EnvProduction {
		if err := cfg.LoadSecretsFromEnv(ctx); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	logger := cfg.Logging.NewLogger(nil)
	slog.SetDefault(logger)
	return logger
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideRegistry(cfg *config.Config) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if cfg.Metrics.CollectSystem {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return reg
}

func provideCollector(reg *prometheus.Registry) (*analytics.Collector, error) {
	return analytics.NewCollector(reg)
}

func provideStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.Storage, func(), error) {
	store, closer, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if closer == nil {
			return
		}
		if err := closer(); err != nil {
			logger.Error("closing storage", "adapter", cfg.Storage.Adapter, "error", err)
		}
	}
	return store, cleanup, nil
}

func provideWebhook(cfg *config.Config, logger *slog.Logger) *webhook.Sink {
	if len(cfg.Integrations.WebhookURLs) == 0 {
		return nil
	}
	return webhook.New(cfg.Integrations.WebhookURLs,
		webhook.WithClient(&http.Client{Timeout: cfg.Integrations.WebhookTimeout}),
		webhook.WithLogger(logger),
	)
}

func provideService(
	cfg *config.Config,
	logger *slog.Logger,
	hub *realtime.Hub,
	storage engine.Storage,
	collector *analytics.Collector,
	sink *webhook.Sink,
) (*engine.Service, func()) {
	opts := []board.Option{
		board.WithRealtime(hub),
		board.WithStorage(storage),
		board.WithDispatchMode(engine.DispatchAsync),
		board.WithRequiredRole(cfg.Bot.RequiredRoleID),
		board.WithCooldowns(cooldown.New(nil, cfg.Bot.CooldownWindow, cfg.Bot.CooldownMaxUses)),
		board.WithOpTimeout(cfg.Storage.OpTimeout),
		board.WithMetrics(collector),
		board.WithLogger(logger),
	}
	if sink != nil {
		opts = append(opts, board.WithWebhook(sink))
	}
	svc := board.New(opts...)
	return svc, svc.Close
}

func provideHandler(svc *engine.Service, hub *realtime.Hub, cfg *config.Config) http.Handler {
	return httpapi.NewMux(svc, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func provideMetricsServer(cfg *config.Config, reg *prometheus.Registry) *MetricsServer {
	if !cfg.Metrics.Enabled {
		return &MetricsServer{}
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &MetricsServer{Server: &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}}
}

// setupStorage creates the appropriate storage adapter based on configuration.
// The returned closer may be nil.
func setupStorage(ctx context.Context, cfg *config.Config) (engine.Storage, func() error, error) {
	switch cfg.Storage.Adapter {
	case config.AdapterMemory:
		return mem.New(), nil, nil
	case config.AdapterSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.AdapterRedis:
		store, err := redisAdapter.New(cfg.Storage.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.AdapterSQL:
		store, err := sqlxAdapter.New(cfg.Storage.SQL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.AdapterFile:
		store, err := jsonfile.New(cfg.Storage.File.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
