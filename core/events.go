package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates domain events.
type EventType string

const (
	EventAwarded          EventType = "awarded"
	EventReset            EventType = "reset"
	EventCooldownRejected EventType = "cooldown_rejected"
)

// Event represents an immutable domain event.
type Event struct {
	ID         string        `json:"id"`
	Type       EventType     `json:"type"`
	Time       time.Time     `json:"time"`
	ActorID    ActorID       `json:"actor_id,omitempty"`
	Delta      int64         `json:"delta,omitempty"`
	Points     int64         `json:"points,omitempty"`
	Wins       int64         `json:"wins,omitempty"`
	Position   int           `json:"position,omitempty"`
	Scope      string        `json:"scope,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

func newEvent(typ EventType) Event {
	return Event{ID: uuid.NewString(), Type: typ, Time: time.Now().UTC()}
}

func NewAwarded(entry Entry, delta int64, position int) Event {
	ev := newEvent(EventAwarded)
	ev.ActorID = entry.ActorID
	ev.Delta = delta
	ev.Points = entry.Points
	ev.Wins = entry.Wins
	ev.Position = position
	return ev
}

func NewReset() Event { return newEvent(EventReset) }

func NewCooldownRejected(scope string, retryAfter time.Duration) Event {
	ev := newEvent(EventCooldownRejected)
	ev.Scope = scope
	ev.RetryAfter = retryAfter
	return ev
}
