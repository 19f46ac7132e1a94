// Package command defines the control messages consumed by the audio
// thread and the queue that carries them there.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pipelined.dev/synth/wavetable"
)

// Frequency is the parameter name that sets oscillator frequency in Hz.
const Frequency = "frequency"

// MIDI status bytes with channel nibble cleared.
const (
	StatusNoteOff = 0x80
	StatusNoteOn  = 0x90
)

var (
	// ErrParse is returned when text token is neither a keyword nor a number.
	ErrParse = errors.New("unable to parse command")
	// ErrUnsupportedStatus is returned for MIDI statuses other than note on/off.
	ErrUnsupportedStatus = errors.New("midi status not supported")
)

// Command is one unit of control intent. The set of implementations is
// closed: NoteOn, NoteOff, SetParameter and SetWaveform.
type Command interface {
	fmt.Stringer
	command()
}

type (
	// NoteOn starts playing a MIDI note.
	NoteOn struct {
		Note uint8
	}

	// NoteOff silences the engine.
	NoteOff struct{}

	// SetParameter assigns a named parameter.
	SetParameter struct {
		Name  string
		Value float32
	}

	// SetWaveform selects the active waveform.
	SetWaveform struct {
		Kind wavetable.Kind
	}
)

func (NoteOn) command()       {}
func (NoteOff) command()      {}
func (SetParameter) command() {}
func (SetWaveform) command()  {}

func (c NoteOn) String() string {
	return fmt.Sprintf("NoteOn{note:%d}", c.Note)
}

func (NoteOff) String() string {
	return "NoteOff{}"
}

func (c SetParameter) String() string {
	return fmt.Sprintf("SetParameter{%s:%v}", c.Name, c.Value)
}

func (c SetWaveform) String() string {
	return fmt.Sprintf("SetWaveform{%v}", c.Kind)
}

// Parse converts a text token into a command. Waveform keywords select
// the waveform, anything that parses as a float sets the frequency.
func Parse(token string) (Command, error) {
	token = strings.TrimSpace(token)
	if kind, err := wavetable.ParseKind(token); err == nil {
		return SetWaveform{Kind: kind}, nil
	}
	v, err := strconv.ParseFloat(token, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrParse, token)
	}
	return SetParameter{Name: Frequency, Value: float32(v)}, nil
}

// FromMIDI converts a two-byte MIDI message into a command. The channel
// nibble of status is ignored.
func FromMIDI(status, data uint8) (Command, error) {
	switch status & 0xF0 {
	case StatusNoteOn:
		return NoteOn{Note: data}, nil
	case StatusNoteOff:
		return NoteOff{}, nil
	}
	return nil, fmt.Errorf("%w: %#x", ErrUnsupportedStatus, status)
}

// FromParameter converts a named parameter into a command. Waveform
// keywords used as names select the waveform and the value is ignored.
func FromParameter(name string, value float32) Command {
	if kind, err := wavetable.ParseKind(name); err == nil {
		return SetWaveform{Kind: kind}
	}
	return SetParameter{Name: name, Value: value}
}
