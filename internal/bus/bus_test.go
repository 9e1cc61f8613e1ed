package bus

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/Free-Rat/type-racer-wars/internal/protocol"
)

func TestBus_FanOut(t *testing.T) {
	b := New(8, slog.Default())
	defer b.Close()

	s1 := b.Subscribe()
	s2 := b.Subscribe()

	b.Publish(Event{Room: "r", Msg: protocol.Countdown{SecondsLeft: 3}})

	for i, sub := range []*Subscription{s1, s2} {
		select {
		case ev := <-sub.Events():
			if ev.Room != "r" {
				t.Errorf("sub %d: Room = %q, want %q", i, ev.Room, "r")
			}
			if _, ok := ev.Msg.(protocol.Countdown); !ok {
				t.Errorf("sub %d: Msg type = %T, want Countdown", i, ev.Msg)
			}
		default:
			t.Fatalf("sub %d: no event delivered", i)
		}
	}
}

func TestBus_SubscribeSeesOnlyLaterEvents(t *testing.T) {
	b := New(8, slog.Default())
	defer b.Close()

	b.Publish(Event{Room: "r", Msg: protocol.NameConflict{}})
	sub := b.Subscribe()

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestBus_LagDropsInsteadOfBlocking(t *testing.T) {
	b := New(2, slog.Default())
	defer b.Close()

	slow := b.Subscribe()
	fast := b.Subscribe()

	for i := 0; i < 5; i++ {
		b.Publish(Event{Room: "r", Msg: protocol.Countdown{SecondsLeft: uint8(i)}})
		// Keep the fast subscriber drained.
		<-fast.Events()
	}

	if got := slow.Lagged(); got != 3 {
		t.Errorf("Lagged = %d, want 3", got)
	}
	if got := fast.Lagged(); got != 0 {
		t.Errorf("fast Lagged = %d, want 0", got)
	}
	if got := len(slow.ch); got != 2 {
		t.Errorf("buffered = %d, want 2", got)
	}

	stats := b.Stats()
	if stats.Published != 5 {
		t.Errorf("Published = %d, want 5", stats.Published)
	}
	if stats.Dropped != 3 {
		t.Errorf("Dropped = %d, want 3", stats.Dropped)
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := New(4, slog.Default())
	defer b.Close()

	sub := b.Subscribe()
	b.Unsubscribe(sub)

	if _, ok := <-sub.Events(); ok {
		t.Error("channel still open after Unsubscribe")
	}

	// Publishing after unsubscribe must not panic or deliver.
	b.Publish(Event{Room: "r", Msg: protocol.NameConflict{}})

	if got := b.Stats().Subscribers; got != 0 {
		t.Errorf("Subscribers = %d, want 0", got)
	}
}

func TestBus_CloseClosesAllSubscribers(t *testing.T) {
	b := New(4, slog.Default())

	s1 := b.Subscribe()
	s2 := b.Subscribe()
	b.Close()

	for i, sub := range []*Subscription{s1, s2} {
		if _, ok := <-sub.Events(); ok {
			t.Errorf("sub %d: channel still open after Close", i)
		}
	}

	// Subscribe after close yields an already-closed subscription.
	s3 := b.Subscribe()
	if _, ok := <-s3.Events(); ok {
		t.Error("subscription after Close should be closed")
	}
}

func TestBus_OriginCarried(t *testing.T) {
	b := New(4, slog.Default())
	defer b.Close()

	sub := b.Subscribe()
	origin := uuid.New()

	b.Publish(Event{Room: "r", Origin: origin, Msg: protocol.ProgressUpdate{Name: "a", Position: 1}})

	ev := <-sub.Events()
	if ev.Origin != origin {
		t.Errorf("Origin = %v, want %v", ev.Origin, origin)
	}
}
