// Package oscillator implements a stereo wavetable oscillator.
//
// The oscillator keeps independent phase cursors for the left and right
// channels. Each buffer it computes an integer phase step from the
// frequency, writes the table values under the cursors and advances
// them, wrapping at the table length. Waveform changes swap the table
// without resetting the cursors, so the signal stays continuous.
package oscillator

import (
	"fmt"
	"math"

	"pipelined.dev/synth"
	"pipelined.dev/synth/command"
	"pipelined.dev/synth/log"
	"pipelined.dev/synth/signal"
	"pipelined.dev/synth/wavetable"
)

// Reference pitch for note to frequency mapping: A0.
const (
	referenceNote      = 21
	referenceFrequency = 27.5
)

// Oscillator is a synth.Module. It's owned by the audio thread and is
// not safe for concurrent use.
type Oscillator struct {
	sampleRate float32
	frequency  float32
	leftPhase  int
	rightPhase int
	kind       wavetable.Kind
	table      wavetable.Table
	bank       wavetable.Bank
	log        log.Logger
}

var _ synth.Module = (*Oscillator)(nil)

// Option provides a way to set optional parameters to oscillator.
type Option func(*Oscillator) error

// WithTable replaces the generated table for provided kind. Table length
// doesn't need to match the configured table size.
func WithTable(kind wavetable.Kind, t wavetable.Table) Option {
	return func(o *Oscillator) error {
		return o.bank.Put(kind, t)
	}
}

// WithWaveform sets the initial waveform. Default is sine.
func WithWaveform(kind wavetable.Kind) Option {
	return func(o *Oscillator) error {
		if o.bank.Get(kind) == nil {
			return fmt.Errorf("%w: %v", wavetable.ErrUnknownKind, kind)
		}
		o.kind = kind
		return nil
	}
}

// WithLogger sets oscillator logger.
func WithLogger(l log.Logger) Option {
	return func(o *Oscillator) error {
		o.log = l
		return nil
	}
}

// New creates an oscillator. Tables for all waveforms are generated
// here, so no commands allocate on the audio thread.
func New(config synth.Config, options ...Option) (*Oscillator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	bank, err := wavetable.NewBank(config.TableSize)
	if err != nil {
		return nil, err
	}
	o := &Oscillator{
		sampleRate: config.SampleRate,
		bank:       bank,
		kind:       wavetable.Sine,
		log:        log.GetLogger(),
	}
	for _, option := range options {
		if err := option(o); err != nil {
			return nil, err
		}
	}
	o.table = o.bank.Get(o.kind)
	return o, nil
}

// NoteFrequency maps MIDI note number to equal-tempered frequency in Hz.
// Out of range notes are not rejected.
func NoteFrequency(note uint8) float32 {
	return float32(referenceFrequency * math.Pow(2, (float64(note)-referenceNote)/12))
}

// Apply updates oscillator state with a command.
func (o *Oscillator) Apply(cmd command.Command) {
	switch c := cmd.(type) {
	case command.NoteOn:
		o.frequency = NoteFrequency(c.Note)
	case command.NoteOff:
		o.frequency = 0
	case command.SetParameter:
		switch c.Name {
		case command.Frequency:
			o.frequency = c.Value
		default:
			o.log.Warn("parameter not supported: ", c.Name)
		}
	case command.SetWaveform:
		t := o.bank.Get(c.Kind)
		if t == nil {
			o.log.Warn("waveform not supported: ", c.Kind)
			return
		}
		o.kind = c.Kind
		o.setTable(t)
	default:
		o.log.Warn("command not supported: ", cmd)
	}
}

// setTable swaps the table and keeps the phase values. Cursors beyond
// the new table are clamped to its last index.
func (o *Oscillator) setTable(t wavetable.Table) {
	o.table = t
	last := len(t) - 1
	if o.leftPhase > last {
		o.leftPhase = last
	}
	if o.rightPhase > last {
		o.rightPhase = last
	}
}

// Step returns the phase increment per frame for current frequency,
// reduced modulo the table length. Zero is returned for silence.
func (o *Oscillator) Step() int {
	step, _ := o.step()
	return step
}

// step returns phase increment and false when the oscillator is silent.
// Non-positive, NaN and infinite frequencies are silent.
func (o *Oscillator) step() (int, bool) {
	f := float64(o.frequency)
	if !(f > 0) || math.IsInf(f, 0) {
		return 0, false
	}
	n := float64(len(o.table))
	step := math.Floor(n / (float64(o.sampleRate) / f))
	return int(math.Mod(step, n)), true
}

// Process fills interleaved stereo output. Input is ignored.
func (o *Oscillator) Process(_, out []float32) {
	step, ok := o.step()
	if !ok {
		signal.Float32(out).Silence()
		return
	}
	n := len(o.table)
	for i := 0; i+1 < len(out); i += synth.Channels {
		out[i] = o.table[o.leftPhase]
		out[i+1] = o.table[o.rightPhase]
		o.leftPhase = wrap(o.leftPhase+step, n)
		o.rightPhase = wrap(o.rightPhase+step, n)
	}
}

// wrap reduces phase into [0, n).
func wrap(phase, n int) int {
	if phase >= n {
		phase %= n
	}
	return phase
}

// Frequency returns current frequency in Hz. Zero means silence.
func (o *Oscillator) Frequency() float32 {
	return o.frequency
}

// Phase returns left and right phase cursors.
func (o *Oscillator) Phase() (left, right int) {
	return o.leftPhase, o.rightPhase
}

// Waveform returns the active waveform kind.
func (o *Oscillator) Waveform() wavetable.Kind {
	return o.kind
}

// Table returns the active table.
func (o *Oscillator) Table() wavetable.Table {
	return o.table
}
