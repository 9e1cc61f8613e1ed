package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrEmptyFrame is returned for a frame with no tag byte.
	ErrEmptyFrame = errors.New("empty frame")

	// ErrUnknownTag is returned for a tag outside the client frame set.
	ErrUnknownTag = errors.New("unknown frame tag")

	// ErrTruncated is returned when a payload ends before its declared length.
	ErrTruncated = errors.New("truncated frame")

	// ErrTrailingBytes is returned when a payload carries bytes past its end.
	ErrTrailingBytes = errors.New("trailing bytes after frame")
)

// DecodeClient parses a client-to-server frame.
func DecodeClient(frame []byte) (ClientMessage, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}
	tag, data := frame[0], frame[1:]

	switch tag {
	case TagJoin:
		return decodeJoin(data)
	case TagKeystroke:
		return decodeKeystroke(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
}

func decodeJoin(data []byte) (ClientMessage, error) {
	room, data, err := readString(data)
	if err != nil {
		return nil, fmt.Errorf("join room: %w", err)
	}
	name, data, err := readString(data)
	if err != nil {
		return nil, fmt.Errorf("join name: %w", err)
	}
	if len(data) < 1 {
		return nil, fmt.Errorf("join reconnect flag: %w", ErrTruncated)
	}
	if len(data) > 1 {
		return nil, ErrTrailingBytes
	}
	return Join{Room: room, Name: name, Reconnect: data[0] != 0}, nil
}

func decodeKeystroke(data []byte) (ClientMessage, error) {
	ch, rest, err := readString(data)
	if err != nil {
		return nil, fmt.Errorf("keystroke char: %w", err)
	}
	if len(rest) != 0 {
		return nil, ErrTrailingBytes
	}
	return Keystroke{Char: ch}, nil
}

// EncodeClient builds a client-to-server frame. Used by clients and tests.
func EncodeClient(msg ClientMessage) []byte {
	switch m := msg.(type) {
	case Join:
		b := []byte{TagJoin}
		b = appendString(b, m.Room)
		b = appendString(b, m.Name)
		if m.Reconnect {
			return append(b, 1)
		}
		return append(b, 0)
	case Keystroke:
		return appendString([]byte{TagKeystroke}, m.Char)
	default:
		panic(fmt.Sprintf("protocol: unknown client message %T", msg))
	}
}

// Encode builds a server-to-client frame.
func Encode(msg ServerMessage) []byte {
	b := []byte{msg.Tag()}

	switch m := msg.(type) {
	case LobbyUpdate:
		b = binary.BigEndian.AppendUint16(b, uint16(len(m.Players)))
		for _, p := range m.Players {
			b = appendString(b, p)
		}
	case NameConflict:
		// no payload
	case Countdown:
		b = append(b, m.SecondsLeft)
	case StartRace:
		b = appendString(b, m.Text)
	case Feedback:
		b = binary.BigEndian.AppendUint16(b, m.Position)
		if m.Correct {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
		b = appendString(b, m.Char)
	case ProgressUpdate:
		b = appendString(b, m.Name)
		b = binary.BigEndian.AppendUint16(b, m.Position)
	case Finish:
		b = appendString(b, m.Name)
		b = binary.BigEndian.AppendUint64(b, m.TimeMS)
	case RaceResult:
		b = binary.BigEndian.AppendUint16(b, uint16(len(m.Results)))
		for _, e := range m.Results {
			b = appendString(b, e.Name)
			b = binary.BigEndian.AppendUint64(b, e.TimeMS)
		}
	case Error:
		b = appendString(b, m.Message)
	default:
		panic(fmt.Sprintf("protocol: unknown server message %T", msg))
	}

	return b
}

// DecodeServer parses a server-to-client frame. Used by clients and tests.
func DecodeServer(frame []byte) (ServerMessage, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}
	tag, data := frame[0], frame[1:]

	switch tag {
	case TagLobbyUpdate:
		if len(data) < 2 {
			return nil, ErrTruncated
		}
		count := int(binary.BigEndian.Uint16(data))
		data = data[2:]
		players := make([]string, 0, count)
		for i := 0; i < count; i++ {
			var p string
			var err error
			p, data, err = readString(data)
			if err != nil {
				return nil, fmt.Errorf("lobby player %d: %w", i, err)
			}
			players = append(players, p)
		}
		return LobbyUpdate{Players: players}, nil

	case TagNameConflict:
		return NameConflict{}, nil

	case TagCountdown:
		if len(data) < 1 {
			return nil, ErrTruncated
		}
		return Countdown{SecondsLeft: data[0]}, nil

	case TagStartRace:
		text, _, err := readString(data)
		if err != nil {
			return nil, err
		}
		return StartRace{Text: text}, nil

	case TagFeedback:
		if len(data) < 3 {
			return nil, ErrTruncated
		}
		pos := binary.BigEndian.Uint16(data)
		correct := data[2] != 0
		ch, _, err := readString(data[3:])
		if err != nil {
			return nil, err
		}
		return Feedback{Position: pos, Correct: correct, Char: ch}, nil

	case TagProgressUpdate:
		name, rest, err := readString(data)
		if err != nil {
			return nil, err
		}
		if len(rest) < 2 {
			return nil, ErrTruncated
		}
		return ProgressUpdate{Name: name, Position: binary.BigEndian.Uint16(rest)}, nil

	case TagFinish:
		name, rest, err := readString(data)
		if err != nil {
			return nil, err
		}
		if len(rest) < 8 {
			return nil, ErrTruncated
		}
		return Finish{Name: name, TimeMS: binary.BigEndian.Uint64(rest)}, nil

	case TagRaceResult:
		if len(data) < 2 {
			return nil, ErrTruncated
		}
		count := int(binary.BigEndian.Uint16(data))
		data = data[2:]
		results := make([]FinishEntry, 0, count)
		for i := 0; i < count; i++ {
			var name string
			var err error
			name, data, err = readString(data)
			if err != nil {
				return nil, fmt.Errorf("result %d: %w", i, err)
			}
			if len(data) < 8 {
				return nil, ErrTruncated
			}
			results = append(results, FinishEntry{Name: name, TimeMS: binary.BigEndian.Uint64(data)})
			data = data[8:]
		}
		return RaceResult{Results: results}, nil

	case TagError:
		msg, _, err := readString(data)
		if err != nil {
			return nil, err
		}
		return Error{Message: msg}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
}

func appendString(b []byte, s string) []byte {
	b = binary.BigEndian.AppendUint16(b, uint16(len(s)))
	return append(b, s...)
}

func readString(data []byte) (string, []byte, error) {
	if len(data) < 2 {
		return "", nil, ErrTruncated
	}
	n := int(binary.BigEndian.Uint16(data))
	data = data[2:]
	if len(data) < n {
		return "", nil, ErrTruncated
	}
	return string(data[:n]), data[n:], nil
}
