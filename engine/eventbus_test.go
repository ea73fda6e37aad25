package engine

import (
	"context"
	"testing"
	"time"

	"leaderbot/core"
)

func TestEventBusSync(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	bus.Subscribe(core.EventAwarded, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewAwarded(core.Entry{ActorID: 1, Points: 1, Wins: 1}, 1, 1))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}

func TestEventBusAsync(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()
	ch := make(chan struct{})
	bus.Subscribe(core.EventReset, func(ctx context.Context, e core.Event) { close(ch) })
	bus.Publish(context.Background(), core.NewReset())
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestEventBusUnsubscribeAll(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	unsub := bus.SubscribeAll(func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewReset())
	bus.Publish(context.Background(), core.NewCooldownRejected("g:leaderboard", time.Second))
	unsub()
	bus.Publish(context.Background(), core.NewReset())
	if count != 2 {
		t.Fatalf("want 2 got %d", count)
	}
}
