package protocol

// Frame tags. Client frames use 0-1, server frames 2-9 and 255.
const (
	TagJoin           byte = 0
	TagKeystroke      byte = 1
	TagLobbyUpdate    byte = 2
	TagNameConflict   byte = 3
	TagCountdown      byte = 4
	TagStartRace      byte = 5
	TagFeedback       byte = 6
	TagProgressUpdate byte = 7
	TagFinish         byte = 8
	TagRaceResult     byte = 9
	TagError          byte = 255
)

// ClientMessage is a decoded client-to-server frame.
type ClientMessage interface {
	clientMessage()
}

// Join binds a connection to a room under a display name. Reconnect marks
// the join as a resume attempt for a name already racing in the room.
type Join struct {
	Room      string
	Name      string
	Reconnect bool
}

// Keystroke carries a single typed character as its UTF-8 text.
type Keystroke struct {
	Char string
}

func (Join) clientMessage()      {}
func (Keystroke) clientMessage() {}

// ServerMessage is an event the server delivers to clients.
type ServerMessage interface {
	// Tag returns the frame tag for this message kind.
	Tag() byte
}

// LobbyUpdate announces the current roster of a room.
type LobbyUpdate struct {
	Players []string
}

// NameConflict rejects a join whose display name is already taken.
type NameConflict struct{}

// Countdown announces seconds remaining before the race starts.
type Countdown struct {
	SecondsLeft uint8
}

// StartRace opens the race and carries the target text.
type StartRace struct {
	Text string
}

// Feedback reports the outcome of a single keystroke to its sender.
// Position is the cursor index the keystroke was validated against.
type Feedback struct {
	Position uint16
	Correct  bool
	Char     string
}

// ProgressUpdate broadcasts a player's new cursor position.
type ProgressUpdate struct {
	Name     string
	Position uint16
}

// Finish announces that a player completed the text.
type Finish struct {
	Name   string
	TimeMS uint64
}

// FinishEntry is one (name, elapsed ms) pair in a race result.
type FinishEntry struct {
	Name   string
	TimeMS uint64
}

// RaceResult delivers the final ranking, in completion order.
type RaceResult struct {
	Results []FinishEntry
}

// Error reports a protocol-level failure. It carries no secret and may be
// broadcast.
type Error struct {
	Message string
}

func (LobbyUpdate) Tag() byte    { return TagLobbyUpdate }
func (NameConflict) Tag() byte   { return TagNameConflict }
func (Countdown) Tag() byte      { return TagCountdown }
func (StartRace) Tag() byte      { return TagStartRace }
func (Feedback) Tag() byte       { return TagFeedback }
func (ProgressUpdate) Tag() byte { return TagProgressUpdate }
func (Finish) Tag() byte         { return TagFinish }
func (RaceResult) Tag() byte     { return TagRaceResult }
func (Error) Tag() byte          { return TagError }

// Private reports whether msg is addressed to a single recipient.
// Feedback and NameConflict are delivered directly to their target socket;
// a broadcast forwarder must not echo them back to their originator.
func Private(msg ServerMessage) bool {
	switch msg.(type) {
	case Feedback, NameConflict:
		return true
	default:
		return false
	}
}
