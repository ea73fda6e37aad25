// Package board assembles a ready-to-use leaderboard Service from options.
package board

import (
	"log/slog"
	"time"

	mem "leaderbot/adapters/memory"
	"leaderbot/analytics"
	"leaderbot/cooldown"
	"leaderbot/core"
	"leaderbot/engine"
	"leaderbot/integrations/webhook"
	"leaderbot/realtime"
)

// Option configures the board builder.
type Option func(*config)

type config struct {
	storage   engine.Storage
	mode      engine.DispatchMode
	hub       *realtime.Hub
	role      core.RoleID
	cooldowns *cooldown.Controller
	timeout   time.Duration
	collector *analytics.Collector
	hooks     []analytics.Hook
	sink      *webhook.Sink
	logger    *slog.Logger
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all engine events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithRequiredRole sets the role that may award and reset.
func WithRequiredRole(r core.RoleID) Option { return func(c *config) { c.role = r } }

// WithCooldowns replaces the default 1-per-15s controller.
func WithCooldowns(cd *cooldown.Controller) Option { return func(c *config) { c.cooldowns = cd } }

// WithOpTimeout bounds each storage call.
func WithOpTimeout(d time.Duration) Option { return func(c *config) { c.timeout = d } }

// WithMetrics feeds events and storage timings into a Prometheus collector.
func WithMetrics(col *analytics.Collector) Option { return func(c *config) { c.collector = col } }

// WithHooks subscribes extra analytics hooks to every event.
func WithHooks(h ...analytics.Hook) Option {
	return func(c *config) { c.hooks = append(c.hooks, h...) }
}

// WithWebhook announces awards and resets through sink.
func WithWebhook(sink *webhook.Sink) Option { return func(c *config) { c.sink = sink } }

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// New builds a configured Service. If not provided, defaults are used:
//   - storage: in-memory
//   - dispatch: async
//   - cooldown: one use per 15 seconds per scope
func New(opts ...Option) *engine.Service {
	cfg := &config{mode: engine.DispatchAsync}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = mem.New()
	}

	bus := engine.NewEventBus(cfg.mode)
	svcOpts := engine.Options{
		RequiredRole: cfg.role,
		OpTimeout:    cfg.timeout,
		Cooldowns:    cfg.cooldowns,
		Logger:       cfg.logger,
	}
	hooks := append([]analytics.Hook{}, cfg.hooks...)
	if cfg.collector != nil {
		svcOpts.Observer = cfg.collector
		hooks = append(hooks, cfg.collector)
	}
	svc := engine.NewService(cfg.storage, bus, svcOpts)

	if cfg.hub != nil {
		bus.SubscribeAll(cfg.hub.Broadcast)
	}
	if len(hooks) > 0 {
		bus.SubscribeAll(analytics.NewBridge(hooks...).Handle)
	}
	if cfg.sink != nil {
		bus.SubscribeAll(cfg.sink.Handle)
	}
	return svc
}
