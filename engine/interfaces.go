package engine

import (
	"context"

	"leaderbot/core"
)

// Storage is the durable leaderboard table. Implementations must make Award
// linearizable per actor, Reset all-or-nothing, and Snapshot a single
// point-in-time read. A nil error means the write is durable.
type Storage interface {
	Award(ctx context.Context, actor core.ActorID, delta int64) (core.Entry, error)
	Reset(ctx context.Context) error
	Snapshot(ctx context.Context) ([]core.Entry, error)
}

// Pinger is implemented by storages that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Observer receives store operation timings and failures.
type Observer interface {
	ObserveStorage(op string, seconds float64, err error)
}
