// Package analytics turns leaderboard events and storage timings into
// Prometheus metrics and simple activity counts.
package analytics

import (
	"sync"
	"time"

	"leaderbot/core"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// ActiveActors tracks the distinct actors awarded per UTC day.
type ActiveActors struct {
	mu   sync.Mutex
	days map[string]map[core.ActorID]struct{}
}

func NewActiveActors() *ActiveActors {
	return &ActiveActors{days: map[string]map[core.ActorID]struct{}{}}
}

func (a *ActiveActors) OnEvent(e core.Event) {
	if e.Type != core.EventAwarded {
		return
	}
	day := dayKey(e.Time)
	a.mu.Lock()
	defer a.mu.Unlock()
	m := a.days[day]
	if m == nil {
		m = map[core.ActorID]struct{}{}
		a.days[day] = m
	}
	m[e.ActorID] = struct{}{}
}

// Count returns the number of distinct actors awarded on day (YYYY-MM-DD).
func (a *ActiveActors) Count(day string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.days[day])
}

// Prune forgets days strictly before cutoff.
func (a *ActiveActors) Prune(cutoff time.Time) {
	limit := dayKey(cutoff)
	a.mu.Lock()
	defer a.mu.Unlock()
	for day := range a.days {
		if day < limit {
			delete(a.days, day)
		}
	}
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }
