// Package mock provides mocks for synth components and allows to execute
// processing loop tests without audio devices.
package mock

import (
	"io"

	"pipelined.dev/synth"
	"pipelined.dev/synth/command"
)

// Stream mocks a synth.Stream interface. Every Read starts a new cycle.
type Stream struct {
	counter
	FramesPerBuffer int
	// Limit is the number of cycles before Read returns io.EOF. Zero
	// means unlimited.
	Limit int
	// Value fills every input sample.
	Value float32
	// InputLength and OutputLength override buffer lengths when set.
	InputLength  int
	OutputLength int
	// ReadErrors and WriteErrors are returned on the cycle they're mapped to.
	ReadErrors  map[int]error
	WriteErrors map[int]error
	// NilInput makes Read return no buffer along with its error.
	NilInput bool
	// BeforeRead is called with the cycle number before every Read.
	BeforeRead func(cycle int)
	// Outputs holds copies of all written buffers when Record is set.
	Record  bool
	Outputs [][]float32

	in, out []float32
}

var _ synth.Stream = (*Stream)(nil)

type counter struct {
	Cycles int
	Writes int
}

func (s *Stream) init() {
	if s.in != nil {
		return
	}
	inLen, outLen := s.FramesPerBuffer*synth.Channels, s.FramesPerBuffer*synth.Channels
	if s.InputLength != 0 {
		inLen = s.InputLength
	}
	if s.OutputLength != 0 {
		outLen = s.OutputLength
	}
	s.in = make([]float32, inLen)
	s.out = make([]float32, outLen)
}

// Read returns new input buffer.
func (s *Stream) Read() ([]float32, error) {
	s.init()
	if s.Limit > 0 && s.Cycles >= s.Limit {
		return nil, io.EOF
	}
	if s.BeforeRead != nil {
		s.BeforeRead(s.Cycles)
	}
	cycle := s.Cycles
	s.Cycles++
	for i := range s.in {
		s.in[i] = s.Value
	}
	err := s.ReadErrors[cycle]
	if err != nil && s.NilInput {
		return nil, err
	}
	return s.in, err
}

// Output returns output buffer.
func (s *Stream) Output() []float32 {
	s.init()
	return s.out
}

// Write records the output buffer.
func (s *Stream) Write() error {
	s.init()
	s.Writes++
	if s.Record {
		b := make([]float32, len(s.out))
		copy(b, s.out)
		s.Outputs = append(s.Outputs, b)
	}
	return s.WriteErrors[s.Cycles-1]
}

// Module mocks a synth.Module interface. It records applied commands
// and fills output with the sum of input and Value.
type Module struct {
	Applied   []command.Command
	Processed int
	Value     float32
	// LastInput is a copy of input of the latest Process call.
	LastInput []float32
}

var _ synth.Module = (*Module)(nil)

// Apply records the command.
func (m *Module) Apply(cmd command.Command) {
	m.Applied = append(m.Applied, cmd)
}

// Process fills output.
func (m *Module) Process(in, out []float32) {
	m.Processed++
	m.LastInput = append(m.LastInput[:0], in...)
	for i := range out {
		out[i] = in[i] + m.Value
	}
}

// Receiver mocks a synth.Receiver with a scripted sequence of results.
// After the script is exhausted it reports Err, command.ErrEmpty by default.
type Receiver struct {
	Commands []command.Command
	Err      error
	Calls    int
}

var _ synth.Receiver = (*Receiver)(nil)

// TryReceive returns the next scripted command.
func (r *Receiver) TryReceive() (command.Command, error) {
	r.Calls++
	if len(r.Commands) > 0 {
		cmd := r.Commands[0]
		r.Commands = r.Commands[1:]
		return cmd, nil
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return nil, command.ErrEmpty
}
