package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Free-Rat/type-racer-wars/internal/bus"
	"github.com/Free-Rat/type-racer-wars/internal/protocol"
)

func TestScheduler_CountdownThenStart(t *testing.T) {
	b := bus.New(16, nil)
	defer b.Close()
	reg := NewRegistry("ab", nil)

	var slept []time.Duration
	sched := NewScheduler(reg, b, 3, nil,
		WithSleep(func(d time.Duration) { slept = append(slept, d) }),
		WithClock(func() time.Time { return t0 }),
	)

	sub := b.Subscribe()
	sched.TriggerAndWait("r")

	// Countdown values strictly decreasing 3, 2, 1, then StartRace.
	for want := uint8(3); want >= 1; want-- {
		ev := <-sub.Events()
		cd, ok := ev.Msg.(protocol.Countdown)
		require.True(t, ok, "event type = %T, want Countdown", ev.Msg)
		assert.Equal(t, want, cd.SecondsLeft)
		assert.Equal(t, "r", ev.Room)
	}

	ev := <-sub.Events()
	start, ok := ev.Msg.(protocol.StartRace)
	require.True(t, ok, "event type = %T, want StartRace", ev.Msg)
	assert.Equal(t, "ab", start.Text)

	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, slept)

	reg.WithRoom("r", func(r *Room) {
		assert.True(t, r.Started())
		assert.Equal(t, t0, r.RaceStart())
	})
}

func TestScheduler_RunsToCompletionWithEmptyRoom(t *testing.T) {
	// Players leaving mid-count must not stop the countdown; the room still
	// transitions to racing so reconnects can resume.
	b := bus.New(16, nil)
	defer b.Close()
	reg := NewRegistry("ab", nil)

	reg.WithRoom("ghost", func(r *Room) {
		require.Equal(t, Admitted, r.TryAdmit("alice", false))
		require.True(t, r.BeginCountdown())
		require.True(t, r.Remove("alice"))
	})

	sched := NewScheduler(reg, b, 1, nil,
		WithSleep(func(time.Duration) {}),
		WithClock(func() time.Time { return t0 }),
	)
	sched.TriggerAndWait("ghost")

	reg.WithRoom("ghost", func(r *Room) {
		assert.True(t, r.Started())
		assert.Equal(t, 0, r.PlayerCount())
	})
}
