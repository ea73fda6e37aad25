// Package storagetest holds conformance checks shared by the leaderboard
// storage adapters.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaderbot/core"
)

// Store is the adapter surface under test.
type Store interface {
	Award(ctx context.Context, actor core.ActorID, delta int64) (core.Entry, error)
	Reset(ctx context.Context) error
	Snapshot(ctx context.Context) ([]core.Entry, error)
}

// RaceOptions sizes a ResetRace run. Zero values select small defaults.
type RaceOptions struct {
	Actors          int
	AwardsPerActor  int
	Resets          int
	SnapshotReaders int
}

func (o *RaceOptions) defaults() {
	if o.Actors <= 0 {
		o.Actors = 4
	}
	if o.AwardsPerActor <= 0 {
		o.AwardsPerActor = 25
	}
	if o.Resets <= 0 {
		o.Resets = 10
	}
	if o.SnapshotReaders <= 0 {
		o.SnapshotReaders = 2
	}
}

// ResetRace races awards to several actors against Resets and Snapshots.
// Actor i is always awarded i points, so every row ever observed must hold
// points == i*wins: a row mixing pre-reset and post-reset state, or a table
// cleared on one side only, breaks that. Once the race settles, a final
// Reset must empty the table and the next award must start from scratch.
func ResetRace(t *testing.T, s Store, opts RaceOptions) {
	t.Helper()
	opts.defaults()
	ctx := context.Background()

	errs := make(chan error, opts.Actors*opts.AwardsPerActor+opts.Resets+opts.SnapshotReaders)
	done := make(chan struct{})

	var writers sync.WaitGroup
	for a := 1; a <= opts.Actors; a++ {
		actor := core.ActorID(a)
		delta := int64(a)
		writers.Add(1)
		go func() {
			defer writers.Done()
			for i := 0; i < opts.AwardsPerActor; i++ {
				e, err := s.Award(ctx, actor, delta)
				if err != nil {
					errs <- fmt.Errorf("award %d: %w", actor, err)
					return
				}
				if err := checkRow(e, opts.AwardsPerActor); err != nil {
					errs <- fmt.Errorf("award returned %w", err)
				}
			}
		}()
	}

	writers.Add(1)
	go func() {
		defer writers.Done()
		for i := 0; i < opts.Resets; i++ {
			if err := s.Reset(ctx); err != nil {
				errs <- fmt.Errorf("reset: %w", err)
				return
			}
		}
	}()

	var readers sync.WaitGroup
	for r := 0; r < opts.SnapshotReaders; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				rows, err := s.Snapshot(ctx)
				if err != nil {
					errs <- fmt.Errorf("snapshot: %w", err)
					return
				}
				for _, e := range rows {
					if err := checkRow(e, opts.AwardsPerActor); err != nil {
						errs <- fmt.Errorf("snapshot returned %w", err)
						return
					}
				}
			}
		}()
	}

	writers.Wait()
	close(done)
	readers.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	rows, err := s.Snapshot(ctx)
	require.NoError(t, err)
	for _, e := range rows {
		assert.NoError(t, checkRow(e, opts.AwardsPerActor))
	}

	require.NoError(t, s.Reset(ctx))
	rows, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	for a := 1; a <= opts.Actors; a++ {
		e, err := s.Award(ctx, core.ActorID(a), int64(a))
		require.NoError(t, err)
		assert.Equal(t, core.Entry{ActorID: core.ActorID(a), Points: int64(a), Wins: 1}, e)
	}
}

func checkRow(e core.Entry, maxWins int) error {
	if e.Wins < 1 || e.Wins > int64(maxWins) || e.Points != int64(e.ActorID)*e.Wins {
		return fmt.Errorf("inconsistent row %+v", e)
	}
	return nil
}
