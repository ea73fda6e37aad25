package memory

import (
	"context"
	"sync"

	"leaderbot/core"
)

// Store is a concurrent in-memory Storage implementation. One RWMutex guards
// the whole table so Reset and Snapshot see a single consistent state.
// Nothing survives a restart.
type Store struct {
	mu   sync.RWMutex
	rows map[core.ActorID]core.Entry
}

func New() *Store { return &Store{rows: map[core.ActorID]core.Entry{}} }

func (s *Store) Award(_ context.Context, actor core.ActorID, delta int64) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.rows[actor].Apply(actor, delta)
	if err != nil {
		return core.Entry{}, err
	}
	s.rows[actor] = next
	return next, nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = map[core.ActorID]core.Entry{}
	return nil
}

func (s *Store) Snapshot(_ context.Context) ([]core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Entry, 0, len(s.rows))
	for _, e := range s.rows {
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

var _ interface {
	Award(context.Context, core.ActorID, int64) (core.Entry, error)
	Reset(context.Context) error
	Snapshot(context.Context) ([]core.Entry, error)
} = (*Store)(nil)
