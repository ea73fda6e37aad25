// Package cooldown rate-limits commands per scope and drives the
// once-per-second countdown shown to rejected callers.
package cooldown

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Defaults match the leaderboard command: one use per 15 seconds.
const (
	DefaultWindow  = 15 * time.Second
	DefaultMaxUses = 1
)

// State is the per-scope limiter state.
type State int

const (
	StateOpen State = iota
	StateLimited
)

func (s State) String() string {
	if s == StateLimited {
		return "limited"
	}
	return "open"
}

// Result is the outcome of TryAcquire.
type Result struct {
	Acquired   bool
	RetryAfter time.Duration
}

// ScopeKey builds the canonical key for one command within one guild.
func ScopeKey(guildID, command string) string {
	return guildID + ":" + command
}

type scope struct {
	mu        sync.Mutex
	lastReset time.Time
	uses      int
}

// Controller owns the fixed-window state of every scope. Scopes are created
// lazily and never destroyed; they do not survive a restart.
type Controller struct {
	clock   clockwork.Clock
	window  time.Duration
	maxUses int
	scopes  sync.Map // map[string]*scope
}

// New returns a Controller. Non-positive window or maxUses fall back to the defaults.
func New(clock clockwork.Clock, window time.Duration, maxUses int) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if maxUses <= 0 {
		maxUses = DefaultMaxUses
	}
	return &Controller{clock: clock, window: window, maxUses: maxUses}
}

// Window returns the configured window length.
func (c *Controller) Window() time.Duration { return c.window }

// Clock returns the controller clock.
func (c *Controller) Clock() clockwork.Clock { return c.clock }

func (c *Controller) getOrCreate(key string) *scope {
	if v, ok := c.scopes.Load(key); ok {
		return v.(*scope)
	}
	actual, _ := c.scopes.LoadOrStore(key, &scope{})
	return actual.(*scope)
}

// TryAcquire consumes one use of key if the window still has quota.
// An expired window is reopened lazily here.
func (c *Controller) TryAcquire(key string, now time.Time) Result {
	s := c.getOrCreate(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uses == 0 || now.Sub(s.lastReset) >= c.window {
		s.lastReset = now
		s.uses = 0
	}
	if s.uses < c.maxUses {
		s.uses++
		return Result{Acquired: true}
	}
	retry := c.window - now.Sub(s.lastReset)
	if retry > c.window {
		retry = c.window
	}
	return Result{RetryAfter: retry}
}

// Acquire is TryAcquire at the controller clock's current time.
func (c *Controller) Acquire(key string) Result {
	return c.TryAcquire(key, c.clock.Now())
}

// State reports whether key is limited at now without consuming a use.
func (c *Controller) State(key string, now time.Time) State {
	v, ok := c.scopes.Load(key)
	if !ok {
		return StateOpen
	}
	s := v.(*scope)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uses >= c.maxUses && now.Sub(s.lastReset) < c.window {
		return StateLimited
	}
	return StateOpen
}

// Seconds rounds d up to whole seconds.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// RunCountdown calls onTick with Seconds(retryAfter), ..., 1, waiting one
// second before each call, and returns true once the last tick ran. It
// returns false as soon as ctx is cancelled; the caller should then skip any
// final cleanup of the displayed message.
func (c *Controller) RunCountdown(ctx context.Context, retryAfter time.Duration, onTick func(remaining int)) bool {
	for remaining := Seconds(retryAfter); remaining >= 1; remaining-- {
		select {
		case <-ctx.Done():
			return false
		case <-c.clock.After(time.Second):
		}
		if ctx.Err() != nil {
			return false
		}
		onTick(remaining)
	}
	return true
}
