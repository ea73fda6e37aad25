package memory

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"leaderbot/adapters/storagetest"
	"leaderbot/core"
)

func TestMemoryStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	e, err := s.Award(ctx, 42, 5)
	if err != nil || e != (core.Entry{ActorID: 42, Points: 5, Wins: 1}) {
		t.Fatalf("got %+v %v", e, err)
	}
	e, err = s.Award(ctx, 42, -2)
	if err != nil || e.Points != 3 || e.Wins != 2 {
		t.Fatalf("got %+v %v", e, err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot(ctx)
	if len(snap) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap)
	}
}

func TestMemoryStoreOverflowLeavesRowUntouched(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.Award(ctx, 1, math.MaxInt64); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Award(ctx, 1, 1); !errors.Is(err, core.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	snap, _ := s.Snapshot(ctx)
	if len(snap) != 1 || snap[0].Points != math.MaxInt64 || snap[0].Wins != 1 {
		t.Fatalf("row changed after failed award: %+v", snap)
	}
}

func TestMemoryStoreConcurrentAwards(t *testing.T) {
	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = s.Award(ctx, 1, 2) }()
		go func() { defer wg.Done(); _, _ = s.Award(ctx, 2, -1) }()
	}
	wg.Wait()
	snap, _ := s.Snapshot(ctx)
	got := map[core.ActorID]core.Entry{}
	for _, e := range snap {
		got[e.ActorID] = e
	}
	if got[1].Points != 100 || got[1].Wins != 50 || got[2].Points != -50 || got[2].Wins != 50 {
		t.Fatalf("lost updates: %+v", got)
	}
}

func TestMemoryStoreResetRacesAwards(t *testing.T) {
	storagetest.ResetRace(t, New(), storagetest.RaceOptions{AwardsPerActor: 200, Resets: 50})
}
