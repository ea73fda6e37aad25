package core

import (
	"math"
	"strconv"
	"strings"
)

// ActorID identifies a leaderboard actor (a chat user id).
type ActorID int64

// String renders the id in base 10.
func (a ActorID) String() string { return strconv.FormatInt(int64(a), 10) }

// ParseActorID parses a base-10 actor id, tolerating surrounding space and a
// chat mention wrapper such as "<@42>" or "<@!42>".
func ParseActorID(s string) (ActorID, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<@")
	s = strings.TrimPrefix(s, "!")
	s = strings.TrimSuffix(s, ">")
	if s == "" {
		return 0, ErrInvalidActor
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidActor
	}
	return ActorID(v), nil
}

// Entry is one leaderboard row.
type Entry struct {
	ActorID ActorID `json:"actor_id" db:"actor_id"`
	Points  int64   `json:"points" db:"points"`
	Wins    int64   `json:"wins" db:"wins"`
}

// Apply returns the entry after one award of delta. The zero Entry is a
// valid starting point, so first-time creation yields wins=1, points=delta.
func (e Entry) Apply(actor ActorID, delta int64) (Entry, error) {
	points, err := AddSafe(e.Points, delta)
	if err != nil {
		return Entry{}, err
	}
	wins, err := AddSafe(e.Wins, 1)
	if err != nil {
		return Entry{}, err
	}
	return Entry{ActorID: actor, Points: points, Wins: wins}, nil
}

// CloneEntries returns a copy of entries safe for the caller to reorder.
func CloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// AddSafe adds delta to base ensuring no signed overflow occurs.
func AddSafe(base int64, delta int64) (int64, error) {
	if (delta > 0 && base > math.MaxInt64-delta) || (delta < 0 && base < math.MinInt64-delta) {
		return 0, ErrOverflow
	}
	return base + delta, nil
}
