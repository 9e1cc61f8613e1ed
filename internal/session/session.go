package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Free-Rat/type-racer-wars/internal/bus"
	"github.com/Free-Rat/type-racer-wars/internal/game"
	"github.com/Free-Rat/type-racer-wars/internal/protocol"
)

// Socket is the duplex frame channel a session drives. WriteFrame must be
// safe for concurrent use: the inbound loop and the broadcast forwarder
// both write to it.
type Socket interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

// Config holds per-session tunables.
type Config struct {
	// Quorum is the roster size that triggers the countdown.
	Quorum int

	// KeystrokeRate and KeystrokeBurst bound how fast a client may send
	// keystrokes. Rate <= 0 disables the limit.
	KeystrokeRate  float64
	KeystrokeBurst int
}

// Session binds one connection to at most one (room, name) pair and runs
// its message pipeline.
type Session struct {
	id      uuid.UUID
	cfg     Config
	sock    Socket
	reg     *game.Registry
	bus     *bus.Bus
	sched   *game.Scheduler
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.RWMutex
	room string
	name string
}

// Option customizes a Session.
type Option func(*Session)

// WithClock replaces the finish/replay clock. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session for one accepted connection.
func New(cfg Config, sock Socket, reg *game.Registry, b *bus.Bus, sched *game.Scheduler, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Quorum < 2 {
		cfg.Quorum = 2
	}

	limit := rate.Inf
	if cfg.KeystrokeRate > 0 {
		limit = rate.Limit(cfg.KeystrokeRate)
	}
	burst := cfg.KeystrokeBurst
	if burst < 1 {
		burst = 1
	}

	id := uuid.New()
	s := &Session{
		id:      id,
		cfg:     cfg,
		sock:    sock,
		reg:     reg,
		bus:     b,
		sched:   sched,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With("session", id.String()),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session's origin tag on the bus.
func (s *Session) ID() uuid.UUID { return s.id }

// Run drives the session until the socket closes or ctx is cancelled.
// It subscribes to the bus, spawns the broadcast forwarder, consumes
// inbound frames, and cleans up the room binding on the way out.
func (s *Session) Run(ctx context.Context) {
	sub := s.bus.Subscribe()

	forwarderDone := make(chan struct{})
	go s.forward(sub, forwarderDone)

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			s.sock.Close()
		case <-watchDone:
		}
	}()

	s.readLoop()
	s.disconnect()
	s.sock.Close()

	s.bus.Unsubscribe(sub)
	<-forwarderDone
}

// readLoop consumes frames until end-of-stream or an I/O error.
func (s *Session) readLoop() {
	for {
		frame, err := s.sock.ReadFrame()
		if err != nil {
			s.logger.Debug("read loop ended", "error", err)
			return
		}

		msg, err := protocol.DecodeClient(frame)
		if err != nil {
			s.handleInvalid(err)
			continue
		}

		switch m := msg.(type) {
		case protocol.Join:
			s.handleJoin(m)
		case protocol.Keystroke:
			s.handleKeystroke(m)
		}
	}
}

// handleInvalid answers a malformed frame. The session continues; errors
// carry no secret, so a bound session reports them room-wide like the
// rest of the room traffic.
func (s *Session) handleInvalid(err error) {
	s.logger.Debug("invalid frame", "error", err)

	room, _ := s.binding()
	msg := protocol.Error{Message: "Invalid message"}
	if room == "" {
		s.writeDirect(msg)
		return
	}
	s.bus.Publish(bus.Event{Room: room, Origin: s.id, Msg: msg})
}

func (s *Session) handleJoin(m protocol.Join) {
	if m.Room == "" || m.Name == "" {
		s.handleInvalid(protocol.ErrEmptyFrame)
		return
	}

	var (
		res      game.AdmitResult
		players  []string
		trigger  bool
		snapshot replaySnapshot
	)
	s.reg.WithRoom(m.Room, func(r *game.Room) {
		res = r.TryAdmit(m.Name, m.Reconnect)
		switch res {
		case game.Admitted:
			players = r.Players()
			trigger = r.PlayerCount() >= s.cfg.Quorum && r.BeginCountdown()
		case game.Reconnected:
			snapshot = snapshotRoom(r, m.Name)
		}
	})

	switch res {
	case game.NameTaken:
		s.logger.Info("join refused, name taken", "room", m.Room, "name", m.Name)
		s.writeDirect(protocol.NameConflict{})

	case game.Admitted:
		s.bind(m.Room, m.Name)
		s.logger.Info("player joined", "room", m.Room, "name", m.Name, "players", len(players))
		s.bus.Publish(bus.Event{Room: m.Room, Origin: s.id, Msg: protocol.LobbyUpdate{Players: players}})
		if trigger {
			s.sched.Trigger(m.Room)
		}

	case game.Reconnected:
		s.bind(m.Room, m.Name)
		s.logger.Info("player reconnected", "room", m.Room, "name", m.Name)
		s.replay(m.Room, snapshot)
	}
}

func (s *Session) handleKeystroke(m protocol.Keystroke) {
	room, name := s.binding()
	if name == "" {
		s.logger.Debug("keystroke from unbound session ignored")
		return
	}
	if !s.limiter.Allow() {
		s.logger.Debug("keystroke rate limit exceeded", "room", room, "name", name)
		return
	}

	var (
		pos      int
		correct  bool
		finMS    uint64
		finished bool
		allDone  bool
		textLen  int
		finishes []protocol.FinishEntry
	)
	s.reg.WithRoom(room, func(r *game.Room) {
		textLen = r.TextLen()
		pos, correct = r.Advance(name, m.Char)
		if correct && pos+1 == textLen {
			finMS, finished = r.MarkFinish(name, s.now())
			if finished && r.AllFinished() {
				allDone = true
				finishes = r.Finishes()
			}
		}
	})

	// Feedback goes to the sender first, directly. The broadcast below is
	// published afterwards from the same task, so the sender always sees
	// its feedback before the matching progress update.
	s.writeDirect(protocol.Feedback{Position: uint16(pos), Correct: correct, Char: m.Char})

	if !correct {
		return
	}

	s.bus.Publish(bus.Event{Room: room, Origin: s.id, Msg: protocol.ProgressUpdate{Name: name, Position: uint16(pos + 1)}})

	if finished {
		s.logger.Info("player finished", "room", room, "name", name, "time_ms", finMS)
		s.bus.Publish(bus.Event{Room: room, Origin: s.id, Msg: protocol.Finish{Name: name, TimeMS: finMS}})
		if allDone {
			s.bus.Publish(bus.Event{Room: room, Origin: s.id, Msg: protocol.RaceResult{Results: finishes}})
		}
	}
}

// disconnect releases the room binding. Before the race starts the player
// leaves the roster; once racing, state is retained for reconnects.
func (s *Session) disconnect() {
	room, name := s.binding()
	if name == "" {
		return
	}

	var (
		removed bool
		players []string
	)
	s.reg.WithRoom(room, func(r *game.Room) {
		if removed = r.Remove(name); removed {
			players = r.Players()
		}
	})

	if removed {
		s.logger.Info("player left lobby", "room", room, "name", name)
		s.bus.Publish(bus.Event{Room: room, Origin: s.id, Msg: protocol.LobbyUpdate{Players: players}})
		return
	}
	s.logger.Info("player disconnected mid-race, state retained", "room", room, "name", name)
}

// forward copies matching bus events to the socket until the subscription
// closes or a write fails.
func (s *Session) forward(sub *bus.Subscription, done chan<- struct{}) {
	defer close(done)

	var reportedLag int64
	for ev := range sub.Events() {
		room, _ := s.binding()
		if room == "" || ev.Room != room {
			continue
		}
		// Private events were already written directly to their target;
		// do not echo them back at the originator.
		if protocol.Private(ev.Msg) && ev.Origin == s.id {
			continue
		}

		if err := s.sock.WriteFrame(protocol.Encode(ev.Msg)); err != nil {
			s.logger.Debug("forwarder write failed", "error", err)
			s.sock.Close()
			return
		}

		if lag := sub.Lagged(); lag > reportedLag {
			s.logger.Warn("session lagging behind bus", "missed", lag-reportedLag, "room", room)
			reportedLag = lag
		}
	}
}

func (s *Session) bind(room, name string) {
	s.mu.Lock()
	s.room, s.name = room, name
	s.mu.Unlock()
}

func (s *Session) binding() (room, name string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room, s.name
}

func (s *Session) writeDirect(msg protocol.ServerMessage) {
	if err := s.sock.WriteFrame(protocol.Encode(msg)); err != nil {
		s.logger.Debug("direct write failed", "error", err)
		s.sock.Close()
	}
}
