package game

import (
	"log/slog"
	"time"

	"github.com/Free-Rat/type-racer-wars/internal/bus"
	"github.com/Free-Rat/type-racer-wars/internal/protocol"
)

// Scheduler runs the pre-race countdown for rooms that reach quorum.
//
// A triggered countdown always runs to completion: even if every player
// leaves mid-count, StartRace is still published and the room transitions
// to racing, so a named player reconnecting later resumes correctly.
type Scheduler struct {
	reg     *Registry
	bus     *bus.Bus
	seconds int
	logger  *slog.Logger

	sleep func(time.Duration)
	now   func() time.Time
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSleep replaces the countdown sleep. Used in tests.
func WithSleep(sleep func(time.Duration)) SchedulerOption {
	return func(s *Scheduler) { s.sleep = sleep }
}

// WithClock replaces the race-start clock. Used in tests.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates a countdown scheduler publishing on b.
func NewScheduler(reg *Registry, b *bus.Bus, seconds int, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if seconds < 1 {
		seconds = 1
	}
	s := &Scheduler{
		reg:     reg,
		bus:     b,
		seconds: seconds,
		logger:  logger,
		sleep:   time.Sleep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seconds returns the configured countdown length.
func (s *Scheduler) Seconds() int { return s.seconds }

// Trigger spawns the countdown task for a room. The caller must have
// claimed the room's countdown slot (Room.BeginCountdown) first, so each
// room's countdown runs at most once.
func (s *Scheduler) Trigger(room string) {
	go s.run(room)
}

// TriggerAndWait runs the countdown synchronously. Used in tests.
func (s *Scheduler) TriggerAndWait(room string) {
	s.run(room)
}

func (s *Scheduler) run(room string) {
	s.logger.Info("countdown started", "room", room, "seconds", s.seconds)

	for sec := s.seconds; sec >= 1; sec-- {
		s.bus.Publish(bus.Event{Room: room, Msg: protocol.Countdown{SecondsLeft: uint8(sec)}})
		s.sleep(time.Second)
	}

	var text string
	s.reg.WithRoom(room, func(r *Room) {
		text = r.Start(s.now())
	})
	s.bus.Publish(bus.Event{Room: room, Msg: protocol.StartRace{Text: text}})

	s.logger.Info("race started", "room", room)
}
