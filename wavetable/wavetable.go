// Package wavetable generates single-period lookup tables for the basic
// waveform families.
//
// A table is computed once and never mutated afterwards. Synthesis code
// reads it by index and replaces it wholesale when the waveform changes.
package wavetable

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Kind is a waveform family.
type Kind int

const (
	// Sine is A·sin(2πcx + p).
	Sine Kind = iota
	// Square is A·sign(sin(2πcx + p)).
	Square
	// Sawtooth is -2A/π·atan(cot(πcx + p/2)).
	Sawtooth
	// Triangle is 2A/π·asin(sin(2πcx + p)).
	Triangle

	numKinds
)

var kindNames = [numKinds]string{
	Sine:     "sine",
	Square:   "square",
	Sawtooth: "sawtooth",
	Triangle: "triangle",
}

var (
	// ErrUnknownKind is returned when waveform kind is not supported.
	ErrUnknownKind = errors.New("unknown waveform kind")
	// ErrResolution is returned when table resolution is not positive.
	ErrResolution = errors.New("table resolution must be positive")
)

// Table is one period of a waveform. It must be treated as read-only.
type Table []float32

// Kinds returns all supported waveform kinds.
func Kinds() []Kind {
	return []Kind{Sine, Square, Sawtooth, Triangle}
}

// String returns the keyword of the kind.
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) valid() bool {
	return k >= 0 && k < numKinds
}

// ParseKind returns the kind for its keyword.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// shape computes unit-amplitude value of waveform at normalized
// position x in [0, 1).
type shape func(x, cycles, phase float64) float64

var shapes = [numKinds]shape{
	Sine: func(x, cycles, phase float64) float64 {
		return math.Sin(2*math.Pi*cycles*x + phase)
	},
	Square: square,
	Sawtooth: func(x, cycles, phase float64) float64 {
		// cot(0) is +Inf, atan resolves it to π/2.
		cot := 1 / math.Tan(math.Pi*cycles*x+phase/2)
		return -2 / math.Pi * math.Atan(cot)
	},
	Triangle: func(x, cycles, phase float64) float64 {
		return 2 / math.Pi * math.Asin(math.Sin(2*math.Pi*cycles*x+phase))
	},
}

// square computes sign(sin(angle)) from the position within the cycle
// instead of the sine value, so the zero crossings are exact: the start
// of a cycle resolves to +1 and the middle of a cycle resolves to -1.
// sign(0) = 0 is never produced and the levels split evenly.
func square(x, cycles, phase float64) float64 {
	pos := cycles*x + phase/(2*math.Pi)
	pos -= math.Floor(pos)
	if pos < 0.5 {
		return 1
	}
	return -1
}

// Generate returns a table of resolution samples holding the waveform
// of provided kind. Sample i is the waveform value at x = i/resolution.
func Generate(kind Kind, amplitude, cycles, phase float64, resolution int) (Table, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
	}
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrResolution, resolution)
	}

	fn := shapes[kind]
	unit := make([]float64, resolution)
	for i := range unit {
		x := float64(i) / float64(resolution)
		unit[i] = fn(x, cycles, phase)
	}
	vecmath.ScaleBlock(unit, unit, amplitude)

	t := make(Table, resolution)
	for i, v := range unit {
		t[i] = float32(v)
	}
	return t, nil
}

// Bank holds one unit-amplitude, single-cycle table per kind.
type Bank [numKinds]Table

// NewBank generates tables for all kinds with provided resolution.
func NewBank(resolution int) (Bank, error) {
	var b Bank
	for _, k := range Kinds() {
		t, err := Generate(k, 1, 1, 0, resolution)
		if err != nil {
			return Bank{}, err
		}
		b[k] = t
	}
	return b, nil
}

// Get returns the table for kind. Nil is returned for unknown kinds.
func (b *Bank) Get(k Kind) Table {
	if !k.valid() {
		return nil
	}
	return b[k]
}

// Put replaces the table for kind.
func (b *Bank) Put(k Kind, t Table) error {
	if !k.valid() {
		return fmt.Errorf("%w: %v", ErrUnknownKind, k)
	}
	if len(t) == 0 {
		return fmt.Errorf("%w: %d", ErrResolution, len(t))
	}
	b[k] = t
	return nil
}
