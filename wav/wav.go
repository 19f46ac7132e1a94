// Package wav provides an offline synth.Stream that renders output to a
// wav file.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/synth"
	"pipelined.dev/synth/signal"
)

// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
var ErrUnsupportedBitDepth = errors.New("only 16 and 32 bit depth is supported")

// pcm is the wav audio format of integer samples.
const pcm = 1

// Stream renders a fixed number of frames. Input is silent and Read
// returns io.EOF once all frames are written. This component cannot be
// reused for consequent runs.
type Stream struct {
	file     *os.File
	encoder  *wav.Encoder
	bitDepth signal.BitDepth
	buf      *audio.IntBuffer

	in      []float32
	out     signal.Float32
	frames  int64
	written int64
}

var _ synth.Stream = (*Stream)(nil)

// Create creates the file and prepares the encoder.
func Create(path string, config synth.Config, bitDepth signal.BitDepth, frames int64) (*Stream, error) {
	if bitDepth != signal.BitDepth16 && bitDepth != signal.BitDepth32 {
		return nil, ErrUnsupportedBitDepth
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	sampleRate := int(config.SampleRate)
	return &Stream{
		file:     f,
		encoder:  wav.NewEncoder(f, sampleRate, int(bitDepth), synth.Channels, pcm),
		bitDepth: bitDepth,
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: synth.Channels,
				SampleRate:  sampleRate,
			},
			Data:           make([]int, config.SamplesPerBuffer()),
			SourceBitDepth: int(bitDepth),
		},
		in:     make([]float32, config.SamplesPerBuffer()),
		out:    make([]float32, config.SamplesPerBuffer()),
		frames: frames,
	}, nil
}

// Read returns silent input buffer or io.EOF when all frames are written.
func (s *Stream) Read() ([]float32, error) {
	if s.written >= s.frames {
		return nil, io.EOF
	}
	return s.in, nil
}

// Output returns output buffer.
func (s *Stream) Output() []float32 {
	return s.out
}

// Write encodes output buffer. The last buffer is truncated to the
// number of remaining frames.
func (s *Stream) Write() error {
	frames := int64(s.out.Frames(synth.Channels))
	if remaining := s.frames - s.written; remaining < frames {
		frames = remaining
	}
	s.buf.Data = s.out[:frames*synth.Channels].AsInts(s.bitDepth, s.buf.Data)
	if err := s.encoder.Write(s.buf); err != nil {
		return fmt.Errorf("failed to encode buffer: %w", err)
	}
	s.written += frames
	return nil
}

// Written returns number of encoded frames.
func (s *Stream) Written() int64 {
	return s.written
}

// Close flushes encoder and closes the file.
func (s *Stream) Close() error {
	return errors.Join(s.encoder.Close(), s.file.Close())
}
