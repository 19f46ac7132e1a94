package command

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire message types.
const (
	typeInputParameter = "InputParameter"
	typeMidiEvent      = "MidiEvent"
)

// ErrWire is returned when a wire message cannot be decoded.
var ErrWire = errors.New("invalid wire message")

type (
	// wireSet is a batch of commands sent by remote control surfaces:
	//	{"commands":[{"type":"InputParameter","data":["frequency",440]}]}
	wireSet struct {
		Commands []wireCommand `json:"commands"`
	}

	wireCommand struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	wireMidiEvent struct {
		Message struct {
			Status uint8 `json:"status"`
			Data   uint8 `json:"data"`
		} `json:"message"`
	}
)

// Decode parses a JSON command set. A malformed set fails as a whole
// with ErrWire. MIDI events with unsupported status are skipped: the
// rest of the set is returned along with the joined errors of skipped
// events.
func Decode(b []byte) ([]Command, error) {
	var set wireSet
	if err := json.Unmarshal(b, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWire, err)
	}
	var skipped []error
	cmds := make([]Command, 0, len(set.Commands))
	for i, wc := range set.Commands {
		cmd, err := wc.decode()
		switch {
		case errors.Is(err, ErrUnsupportedStatus):
			skipped = append(skipped, fmt.Errorf("command %d: %w", i, err))
		case err != nil:
			return nil, fmt.Errorf("%w: command %d: %w", ErrWire, i, err)
		default:
			cmds = append(cmds, cmd)
		}
	}
	return cmds, errors.Join(skipped...)
}

func (wc wireCommand) decode() (Command, error) {
	switch wc.Type {
	case typeInputParameter:
		var data [2]json.RawMessage
		if err := json.Unmarshal(wc.Data, &data); err != nil {
			return nil, err
		}
		var (
			name  string
			value float32
		)
		if err := json.Unmarshal(data[0], &name); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data[1], &value); err != nil {
			return nil, err
		}
		return FromParameter(name, value), nil
	case typeMidiEvent:
		var e wireMidiEvent
		if err := json.Unmarshal(wc.Data, &e); err != nil {
			return nil, err
		}
		return FromMIDI(e.Message.Status, e.Message.Data)
	}
	return nil, fmt.Errorf("unknown type %q", wc.Type)
}
