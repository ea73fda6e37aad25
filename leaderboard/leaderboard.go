// Package leaderboard derives the total order over a snapshot of entries.
//
// Entries are ordered by points descending. Equal points are ordered by
// ascending actor id, so repeated calls over an unchanged snapshot always
// agree. Positions start at 1 and are contiguous even across ties.
package leaderboard

import (
	"fmt"
	"slices"

	"leaderbot/core"
)

// Ranked pairs an entry with its 1-based position.
type Ranked struct {
	Position int        `json:"position"`
	Entry    core.Entry `json:"entry"`
}

// Less reports whether a ranks ahead of b.
func Less(a, b core.Entry) bool {
	if a.Points == b.Points {
		return a.ActorID < b.ActorID
	}
	return a.Points > b.Points // higher score first
}

func compare(a, b core.Entry) int {
	switch {
	case Less(a, b):
		return -1
	case Less(b, a):
		return 1
	default:
		return 0
	}
}

// Rank returns entries in ranking order. The input slice is not modified.
func Rank(entries []core.Entry) []Ranked {
	sorted := core.CloneEntries(entries)
	slices.SortFunc(sorted, compare)
	out := make([]Ranked, len(sorted))
	for i, e := range sorted {
		out[i] = Ranked{Position: i + 1, Entry: e}
	}
	return out
}

// PositionOf returns the 1-based rank of actor within entries.
// It does not sort: the position is one plus the number of entries ahead.
func PositionOf(entries []core.Entry, actor core.ActorID) (int, error) {
	var (
		target core.Entry
		found  bool
	)
	for _, e := range entries {
		if e.ActorID == actor {
			target, found = e, true
			break
		}
	}
	if !found {
		return 0, fmt.Errorf("actor %s: %w", actor, core.ErrNotFound)
	}
	pos := 1
	for _, e := range entries {
		if Less(e, target) {
			pos++
		}
	}
	return pos, nil
}

// Find returns the ranked row for actor.
func Find(entries []core.Entry, actor core.ActorID) (Ranked, error) {
	pos, err := PositionOf(entries, actor)
	if err != nil {
		return Ranked{}, err
	}
	for _, e := range entries {
		if e.ActorID == actor {
			return Ranked{Position: pos, Entry: e}, nil
		}
	}
	return Ranked{}, fmt.Errorf("actor %s: %w", actor, core.ErrNotFound)
}
