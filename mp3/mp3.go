// Package mp3 provides an offline synth.Stream that renders output to
// an mp3 file with lame.
package mp3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/viert/lame"

	"pipelined.dev/synth"
	"pipelined.dev/synth/signal"
)

const (
	// DefaultBitRate is the default encoder bit rate in kbps.
	DefaultBitRate = 192
	// DefaultQuality is the default lame quality, 0 is best and 9 is worst.
	DefaultQuality = 2
)

// ErrQuality is returned when quality is out of lame range.
var ErrQuality = errors.New("quality must be in range 0-9")

// Stream renders a fixed number of frames as joint stereo VBR mp3.
// Input is silent and Read returns io.EOF once all frames are written.
type Stream struct {
	f  *os.File
	wr *lame.LameWriter

	in      []float32
	out     signal.Float32
	ints    []int
	bytes   []byte
	frames  int64
	written int64
}

var _ synth.Stream = (*Stream)(nil)

// Create creates the file and initializes the encoder.
func Create(path string, config synth.Config, bitRate, quality int, frames int64) (*Stream, error) {
	if quality < 0 || quality > 9 {
		return nil, ErrQuality
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	wr := lame.NewWriter(f)
	wr.Encoder.SetBitrate(bitRate)
	wr.Encoder.SetQuality(quality)
	wr.Encoder.SetNumChannels(synth.Channels)
	wr.Encoder.SetInSamplerate(int(config.SampleRate))
	wr.Encoder.SetMode(lame.JOINT_STEREO)
	wr.Encoder.SetVBR(lame.VBR_RH)
	wr.Encoder.InitParams()

	return &Stream{
		f:      f,
		wr:     wr,
		in:     make([]float32, config.SamplesPerBuffer()),
		out:    make([]float32, config.SamplesPerBuffer()),
		ints:   make([]int, config.SamplesPerBuffer()),
		bytes:  make([]byte, config.SamplesPerBuffer()*2),
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

// Write encodes output buffer as 16 bit samples.
func (s *Stream) Write() error {
	frames := int64(s.out.Frames(synth.Channels))
	if remaining := s.frames - s.written; remaining < frames {
		frames = remaining
	}
	s.ints = s.out[:frames*synth.Channels].AsInts(signal.BitDepth16, s.ints)
	b := s.bytes[:len(s.ints)*2]
	for i, v := range s.ints {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(int16(v)))
	}
	if _, err := s.wr.Write(b); err != nil {
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
	return errors.Join(s.wr.Close(), s.f.Close())
}
