package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"leaderbot/cooldown"
	"leaderbot/core"
	"leaderbot/leaderboard"
)

// DefaultOpTimeout bounds every storage call so an unresponsive store fails fast.
const DefaultOpTimeout = 5 * time.Second

// Options tunes a Service. Zero values select defaults.
type Options struct {
	RequiredRole core.RoleID
	OpTimeout    time.Duration
	Cooldowns    *cooldown.Controller
	Observer     Observer
	Logger       *slog.Logger
}

// AwardResult is returned by a successful Award.
type AwardResult struct {
	Entry    core.Entry `json:"entry"`
	Position int        `json:"position"`
}

// Service wires storage, authorization, ranking, cooldowns and the event bus
// into the operations the command front end calls.
type Service struct {
	storage   Storage
	bus       *EventBus
	cooldowns *cooldown.Controller
	required  core.RoleID
	opTimeout time.Duration
	observer  Observer
	log       *slog.Logger
}

func NewService(storage Storage, bus *EventBus, opts Options) *Service {
	if storage == nil || bus == nil {
		panic("NewService requires non-nil storage and bus")
	}
	s := &Service{
		storage:   storage,
		bus:       bus,
		cooldowns: opts.Cooldowns,
		required:  opts.RequiredRole,
		opTimeout: opts.OpTimeout,
		observer:  opts.Observer,
		log:       opts.Logger,
	}
	if s.cooldowns == nil {
		s.cooldowns = cooldown.New(nil, cooldown.DefaultWindow, cooldown.DefaultMaxUses)
	}
	if s.opTimeout <= 0 {
		s.opTimeout = DefaultOpTimeout
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Subscribe convenience method.
func (s *Service) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *Service) Publish(ctx context.Context, ev core.Event) {
	s.bus.Publish(ctx, ev)
}

// RequiredRole is the role privileged operations check for.
func (s *Service) RequiredRole() core.RoleID { return s.required }

// Cooldowns exposes the controller, e.g. to run countdowns.
func (s *Service) Cooldowns() *cooldown.Controller { return s.cooldowns }

// Award adds delta to target's points and one to its wins, then reports the
// new totals and position. A concurrent Reset between the write and the
// position read yields core.ErrNotFound alongside the written entry. A failed
// position read after the write yields core.ErrPositionUnavailable, never a
// StorageError, since the award is already durable.
func (s *Service) Award(ctx context.Context, target core.ActorID, delta int64, actorRoles core.RoleSet) (AwardResult, error) {
	if err := core.Authorize(actorRoles, s.required); err != nil {
		s.log.Warn("award denied", "target", target, "delta", delta)
		return AwardResult{}, err
	}

	var entry core.Entry
	err := s.call(ctx, "award", func(ctx context.Context) error {
		var err error
		entry, err = s.storage.Award(ctx, target, delta)
		return err
	})
	if err != nil {
		s.logFailure("award", err, "target", target, "delta", delta)
		return AwardResult{}, err
	}

	entries, err := s.Snapshot(ctx)
	if err != nil {
		s.log.Warn("points awarded, position unavailable", "target", target, "delta", delta, "error", err)
		s.bus.Publish(ctx, core.NewAwarded(entry, delta, 0))
		return AwardResult{Entry: entry}, fmt.Errorf("%w: %v", core.ErrPositionUnavailable, err)
	}
	pos, err := leaderboard.PositionOf(entries, target)
	if err != nil {
		s.log.Warn("awarded actor missing from snapshot", "target", target, "error", err)
		return AwardResult{Entry: entry}, err
	}

	s.log.Info("points awarded", "target", target, "delta", delta, "points", entry.Points, "wins", entry.Wins, "position", pos)
	s.bus.Publish(ctx, core.NewAwarded(entry, delta, pos))
	return AwardResult{Entry: entry, Position: pos}, nil
}

// Reset removes every entry.
func (s *Service) Reset(ctx context.Context, actorRoles core.RoleSet) error {
	if err := core.Authorize(actorRoles, s.required); err != nil {
		s.log.Warn("reset denied")
		return err
	}
	if err := s.call(ctx, "reset", s.storage.Reset); err != nil {
		s.logFailure("reset", err)
		return err
	}
	s.log.Info("leaderboard reset")
	s.bus.Publish(ctx, core.NewReset())
	return nil
}

// Snapshot returns a consistent read of all entries in unspecified order.
func (s *Service) Snapshot(ctx context.Context) ([]core.Entry, error) {
	var entries []core.Entry
	err := s.call(ctx, "snapshot", func(ctx context.Context) error {
		var err error
		entries, err = s.storage.Snapshot(ctx)
		return err
	})
	if err != nil {
		s.logFailure("snapshot", err)
		return nil, err
	}
	return entries, nil
}

// ListRanking returns the full ranking.
func (s *Service) ListRanking(ctx context.Context) ([]leaderboard.Ranked, error) {
	entries, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return leaderboard.Rank(entries), nil
}

// Position returns actor's ranked row or core.ErrNotFound.
func (s *Service) Position(ctx context.Context, actor core.ActorID) (leaderboard.Ranked, error) {
	entries, err := s.Snapshot(ctx)
	if err != nil {
		return leaderboard.Ranked{}, err
	}
	return leaderboard.Find(entries, actor)
}

// RequestWithCooldown consumes one use of scope if available.
func (s *Service) RequestWithCooldown(ctx context.Context, scope string) cooldown.Result {
	res := s.cooldowns.Acquire(scope)
	if !res.Acquired {
		s.log.Debug("cooldown rejected", "scope", scope, "retry_after", res.RetryAfter)
		s.bus.Publish(ctx, core.NewCooldownRejected(scope, res.RetryAfter))
	}
	return res
}

// Countdown runs the per-second countdown for a rejected request.
func (s *Service) Countdown(ctx context.Context, retryAfter time.Duration, onTick func(remaining int)) bool {
	return s.cooldowns.RunCountdown(ctx, retryAfter, onTick)
}

// Ping checks storage reachability when the adapter supports it.
func (s *Service) Ping(ctx context.Context) error {
	p, ok := s.storage.(Pinger)
	if !ok {
		_, err := s.Snapshot(ctx)
		return err
	}
	return s.call(ctx, "ping", p.Ping)
}

func (s *Service) Close() { s.bus.Close() }

// call runs one storage operation under the op timeout and classifies its
// error: overflow passes through, anything else becomes a StorageError.
func (s *Service) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	if s.observer != nil {
		s.observer.ObserveStorage(op, time.Since(start).Seconds(), err)
	}
	if err == nil || errors.Is(err, core.ErrOverflow) || core.IsStorageError(err) {
		return err
	}
	return &core.StorageError{Op: op, Err: err}
}

func (s *Service) logFailure(op string, err error, attrs ...any) {
	if errors.Is(err, core.ErrOverflow) {
		s.log.Warn(op+" rejected", append(attrs, "error", err)...)
		return
	}
	s.log.Error(op+" failed", append(attrs, "error", err)...)
}
