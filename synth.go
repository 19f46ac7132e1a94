package synth

import (
	"errors"
	"fmt"

	"pipelined.dev/synth/command"
)

// Channels is the number of interleaved channels of every buffer.
const Channels = 2

var (
	// ErrInputOverflowed is returned by stream when input data was lost.
	// It's a transient condition, processing continues.
	ErrInputOverflowed = errors.New("input overflowed")
	// ErrOutputUnderflowed is returned by stream when output data was
	// not delivered in time. It's a transient condition, processing continues.
	ErrOutputUnderflowed = errors.New("output underflowed")
	// ErrBufferLength is returned when stream buffer doesn't match
	// negotiated length. It's a fatal precondition violation.
	ErrBufferLength = errors.New("buffer has incorrect length")
	// ErrInvalidConfig is returned when config values are out of range.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Config is the parameter set of the audio processing, fixed for the
	// process lifetime.
	Config struct {
		SampleRate      float32
		FramesPerBuffer int
		TableSize       int
		QueueCapacity   int
	}

	// Module is a synthesis engine driven by the audio thread. Both
	// methods are called only from the audio thread and must not block.
	Module interface {
		// Apply updates module state with a command.
		Apply(command.Command)
		// Process fills the output buffer. Buffers are interleaved stereo
		// and have the same length.
		Process(in, out []float32)
	}

	// Stream is a duplex audio stream with negotiated buffer size.
	// Buffers are owned by the stream and valid until the next call.
	Stream interface {
		// Read blocks until the next input buffer is available. Input
		// buffer is returned along with ErrInputOverflowed. io.EOF marks
		// the end of a finite stream.
		Read() ([]float32, error)
		// Output returns the buffer to fill before Write.
		Output() []float32
		// Write blocks until the output buffer is accepted.
		Write() error
	}

	// Receiver is the consumer side of a command queue.
	Receiver interface {
		// TryReceive returns the next command without blocking,
		// command.ErrEmpty or command.ErrDisconnected.
		TryReceive() (command.Command, error)
	}
)

// DefaultConfig returns canonical parameter set.
func DefaultConfig() Config {
	return Config{
		SampleRate:      44100,
		FramesPerBuffer: 128,
		TableSize:       100000,
		QueueCapacity:   command.DefaultCapacity,
	}
}

// SamplesPerBuffer returns the length of every buffer.
func (c Config) SamplesPerBuffer() int {
	return c.FramesPerBuffer * Channels
}

// Validate checks all values are in range.
func (c Config) Validate() error {
	switch {
	case !(c.SampleRate > 0):
		return fmt.Errorf("%w: sample rate %v", ErrInvalidConfig, c.SampleRate)
	case c.FramesPerBuffer <= 0:
		return fmt.Errorf("%w: frames per buffer %d", ErrInvalidConfig, c.FramesPerBuffer)
	case c.TableSize <= 0:
		return fmt.Errorf("%w: table size %d", ErrInvalidConfig, c.TableSize)
	case c.QueueCapacity <= 0:
		return fmt.Errorf("%w: queue capacity %d", ErrInvalidConfig, c.QueueCapacity)
	}
	return nil
}
