package session

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Free-Rat/type-racer-wars/internal/bus"
	"github.com/Free-Rat/type-racer-wars/internal/game"
	"github.com/Free-Rat/type-racer-wars/internal/protocol"
)

// replaySnapshot is a read-only copy of room state taken under the
// registry's exclusive section. Replay itself runs outside the lock and
// never mutates the room.
type replaySnapshot struct {
	players   []string
	text      []rune
	started   bool
	raceStart time.Time
	selfPos   int
	positions map[string]int
	finishes  []protocol.FinishEntry
	allDone   bool
}

func snapshotRoom(r *game.Room, self string) replaySnapshot {
	pos, _ := r.Position(self)
	return replaySnapshot{
		players:   r.Players(),
		text:      []rune(r.Text()),
		started:   r.Started(),
		raceStart: r.RaceStart(),
		selfPos:   pos,
		positions: r.Positions(),
		finishes:  r.Finishes(),
		allDone:   r.AllFinished(),
	}
}

// replay publishes the event sequence that brings a returning client back
// in sync. Events go out with a zero origin so every forwarder in the
// room delivers them; the extra deliveries are idempotent for clients
// already in sync.
func (s *Session) replay(room string, snap replaySnapshot) {
	publish := func(msg protocol.ServerMessage) {
		s.bus.Publish(bus.Event{Room: room, Origin: uuid.Nil, Msg: msg})
	}

	publish(protocol.LobbyUpdate{Players: snap.players})

	if snap.started {
		window := time.Duration(s.sched.Seconds()) * time.Second
		if elapsed := s.now().Sub(snap.raceStart); !snap.allDone && elapsed < window {
			left := s.sched.Seconds() - int(elapsed/time.Second)
			publish(protocol.Countdown{SecondsLeft: uint8(left)})
		}
		publish(protocol.StartRace{Text: string(snap.text)})
	}

	for i := 0; i < snap.selfPos && i < len(snap.text); i++ {
		publish(protocol.Feedback{
			Position: uint16(i),
			Correct:  true,
			Char:     string(snap.text[i]),
		})
	}

	names := make([]string, 0, len(snap.positions))
	for n := range snap.positions {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		publish(protocol.ProgressUpdate{Name: n, Position: uint16(snap.positions[n])})
	}

	if snap.allDone {
		publish(protocol.RaceResult{Results: snap.finishes})
	}
}
