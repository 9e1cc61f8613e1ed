package game

import (
	"sort"
	"time"

	"github.com/Free-Rat/type-racer-wars/internal/protocol"
)

// Phase is a room's position in its lifecycle.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseCounting
	PhaseRacing
	PhaseFinished
)

// AdmitResult is the outcome of a join attempt.
type AdmitResult int

const (
	// Admitted means the name was inserted at position 0.
	Admitted AdmitResult = iota

	// Reconnected means the name was already racing and the join resumes it.
	Reconnected

	// NameTaken means the name is in use and the join must be refused.
	NameTaken
)

// Room is the authoritative state of one race. It is not safe for
// concurrent use; callers mutate it under Registry.WithRoom.
type Room struct {
	name      string
	text      []rune
	players   map[string]struct{}
	positions map[string]int
	finishes  []protocol.FinishEntry
	raceStart time.Time

	// countdownPending is set when the quorum transition spawns the
	// countdown task, so later joins cannot spawn a second one.
	countdownPending bool
}

// NewRoom creates an empty room racing on text.
func NewRoom(name, text string) *Room {
	return &Room{
		name:      name,
		text:      []rune(text),
		players:   make(map[string]struct{}),
		positions: make(map[string]int),
	}
}

// Name returns the room's identifier.
func (r *Room) Name() string { return r.name }

// Text returns the target text.
func (r *Room) Text() string { return string(r.text) }

// TextLen returns the text length in Unicode scalar values.
func (r *Room) TextLen() int { return len(r.text) }

// Started reports whether the race start timestamp is set.
func (r *Room) Started() bool { return !r.raceStart.IsZero() }

// RaceStart returns the race start timestamp; zero before the countdown
// resolves.
func (r *Room) RaceStart() time.Time { return r.raceStart }

// PlayerCount returns the roster size.
func (r *Room) PlayerCount() int { return len(r.players) }

// Players returns the roster in a stable order.
func (r *Room) Players() []string {
	names := make([]string, 0, len(r.players))
	for n := range r.players {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Position returns a player's cursor index.
func (r *Room) Position(name string) (int, bool) {
	pos, ok := r.positions[name]
	return pos, ok
}

// Positions returns a copy of every player's cursor index.
func (r *Room) Positions() map[string]int {
	out := make(map[string]int, len(r.positions))
	for n, p := range r.positions {
		out[n] = p
	}
	return out
}

// Finishes returns a copy of the completion list, in finish order.
func (r *Room) Finishes() []protocol.FinishEntry {
	out := make([]protocol.FinishEntry, len(r.finishes))
	copy(out, r.finishes)
	return out
}

// AllFinished reports whether every player on the roster has finished.
func (r *Room) AllFinished() bool {
	return len(r.finishes) == len(r.players)
}

// Phase returns the room's lifecycle phase.
func (r *Room) Phase() Phase {
	switch {
	case !r.Started() && !r.countdownPending:
		return PhaseLobby
	case !r.Started():
		return PhaseCounting
	case r.AllFinished():
		return PhaseFinished
	default:
		return PhaseRacing
	}
}

// TryAdmit resolves a join attempt. The reconnect flag is honored only
// when the name is already present and the race has started; a colliding
// name is otherwise refused. A fresh name is inserted at position 0, even
// mid-race.
func (r *Room) TryAdmit(name string, reconnect bool) AdmitResult {
	if _, present := r.players[name]; present {
		if reconnect && r.Started() {
			return Reconnected
		}
		return NameTaken
	}
	r.players[name] = struct{}{}
	r.positions[name] = 0
	return Admitted
}

// Remove drops a player from the roster. During an active race it is a
// no-op: the player keeps their state so a reconnect can resume it.
func (r *Room) Remove(name string) bool {
	if r.Started() {
		return false
	}
	if _, present := r.players[name]; !present {
		return false
	}
	delete(r.players, name)
	delete(r.positions, name)
	return true
}

// Advance validates one keystroke. It returns the cursor index the
// keystroke was checked against and whether it matched. The cursor moves
// only on a match. Keystrokes before the race starts or after the player
// reaches the end of the text never mutate state.
func (r *Room) Advance(name, ch string) (pos int, correct bool) {
	pos, ok := r.positions[name]
	if !ok || !r.Started() || pos == len(r.text) {
		return pos, false
	}
	if ch != string(r.text[pos]) {
		return pos, false
	}
	r.positions[name] = pos + 1
	return pos, true
}

// MarkFinish records a completion. It appends at most one entry per name,
// and only once the race has started and the player's cursor reached the
// end of the text. The elapsed time is measured against the race start.
func (r *Room) MarkFinish(name string, now time.Time) (elapsedMS uint64, ok bool) {
	if !r.Started() || r.positions[name] != len(r.text) {
		return 0, false
	}
	for _, e := range r.finishes {
		if e.Name == name {
			return 0, false
		}
	}
	elapsed := now.Sub(r.raceStart)
	if elapsed < 0 {
		elapsed = 0
	}
	entry := protocol.FinishEntry{Name: name, TimeMS: uint64(elapsed.Milliseconds())}
	r.finishes = append(r.finishes, entry)
	return entry.TimeMS, true
}

// BeginCountdown claims the single countdown slot for the room. It returns
// true exactly once, on the transition that should spawn the countdown
// task.
func (r *Room) BeginCountdown() bool {
	if r.countdownPending || r.Started() {
		return false
	}
	r.countdownPending = true
	return true
}

// Start sets the race start timestamp and returns a snapshot of the text.
func (r *Room) Start(now time.Time) string {
	r.raceStart = now
	return string(r.text)
}
