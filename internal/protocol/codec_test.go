package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeClient_Join(t *testing.T) {
	frame := EncodeClient(Join{Room: "r1", Name: "alice", Reconnect: true})

	msg, err := DecodeClient(frame)
	if err != nil {
		t.Fatalf("DecodeClient failed: %v", err)
	}

	join, ok := msg.(Join)
	if !ok {
		t.Fatalf("message type = %T, want Join", msg)
	}
	if join.Room != "r1" {
		t.Errorf("Room = %q, want %q", join.Room, "r1")
	}
	if join.Name != "alice" {
		t.Errorf("Name = %q, want %q", join.Name, "alice")
	}
	if !join.Reconnect {
		t.Error("Reconnect = false, want true")
	}
}

func TestDecodeClient_JoinWire(t *testing.T) {
	// Hand-built frame: tag 0, "r" (len 1), "ab" (len 2), reconnect 0.
	frame := []byte{0, 0, 1, 'r', 0, 2, 'a', 'b', 0}

	msg, err := DecodeClient(frame)
	if err != nil {
		t.Fatalf("DecodeClient failed: %v", err)
	}

	join := msg.(Join)
	if join.Room != "r" || join.Name != "ab" || join.Reconnect {
		t.Errorf("decoded %+v, want {r ab false}", join)
	}
}

func TestDecodeClient_KeystrokeUnicode(t *testing.T) {
	// A multi-byte scalar must survive as one character.
	frame := EncodeClient(Keystroke{Char: "ż"})

	msg, err := DecodeClient(frame)
	if err != nil {
		t.Fatalf("DecodeClient failed: %v", err)
	}

	ks := msg.(Keystroke)
	if ks.Char != "ż" {
		t.Errorf("Char = %q, want %q", ks.Char, "ż")
	}
}

func TestDecodeClient_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  error
	}{
		{"empty", nil, ErrEmptyFrame},
		{"unknown tag", []byte{7}, ErrUnknownTag},
		{"server tag", []byte{2, 0, 0}, ErrUnknownTag},
		{"short join", []byte{0, 0, 5, 'r'}, ErrTruncated},
		{"missing reconnect", []byte{0, 0, 1, 'r', 0, 1, 'a'}, ErrTruncated},
		{"short keystroke", []byte{1, 0, 2, 'a'}, ErrTruncated},
		{"trailing bytes", []byte{1, 0, 1, 'a', 'x'}, ErrTrailingBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClient(tt.frame)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeClient error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncode_Countdown(t *testing.T) {
	frame := Encode(Countdown{SecondsLeft: 3})

	want := []byte{TagCountdown, 3}
	if !bytes.Equal(frame, want) {
		t.Errorf("frame = %v, want %v", frame, want)
	}
}

func TestEncode_NameConflictIsBare(t *testing.T) {
	frame := Encode(NameConflict{})

	if !bytes.Equal(frame, []byte{TagNameConflict}) {
		t.Errorf("frame = %v, want single tag byte", frame)
	}
}

func TestEncode_FinishWidth(t *testing.T) {
	// Finish carries an 8-byte big-endian elapsed time.
	frame := Encode(Finish{Name: "a", TimeMS: 1})

	wantLen := 1 + 2 + 1 + 8
	if len(frame) != wantLen {
		t.Fatalf("frame length = %d, want %d", len(frame), wantLen)
	}
	if frame[len(frame)-1] != 1 {
		t.Errorf("last byte = %d, want 1", frame[len(frame)-1])
	}
}

func TestEncodeDecode_Feedback(t *testing.T) {
	frame := Encode(Feedback{Position: 7, Correct: true, Char: "x"})

	msg, err := DecodeServer(frame)
	if err != nil {
		t.Fatalf("DecodeServer failed: %v", err)
	}

	fb := msg.(Feedback)
	if fb.Position != 7 || !fb.Correct || fb.Char != "x" {
		t.Errorf("decoded %+v, want {7 true x}", fb)
	}
}

func TestEncodeDecode_RaceResult(t *testing.T) {
	in := RaceResult{Results: []FinishEntry{
		{Name: "a", TimeMS: 1200},
		{Name: "b", TimeMS: 3400},
	}}

	msg, err := DecodeServer(Encode(in))
	if err != nil {
		t.Fatalf("DecodeServer failed: %v", err)
	}

	rr := msg.(RaceResult)
	if len(rr.Results) != 2 {
		t.Fatalf("results length = %d, want 2", len(rr.Results))
	}
	if rr.Results[0] != (FinishEntry{Name: "a", TimeMS: 1200}) {
		t.Errorf("result[0] = %+v", rr.Results[0])
	}
	if rr.Results[1] != (FinishEntry{Name: "b", TimeMS: 3400}) {
		t.Errorf("result[1] = %+v", rr.Results[1])
	}
}

func TestPrivate(t *testing.T) {
	if !Private(Feedback{}) {
		t.Error("Feedback should be private")
	}
	if !Private(NameConflict{}) {
		t.Error("NameConflict should be private")
	}
	if Private(LobbyUpdate{}) {
		t.Error("LobbyUpdate should not be private")
	}
	if Private(ProgressUpdate{}) {
		t.Error("ProgressUpdate should not be private")
	}
}
