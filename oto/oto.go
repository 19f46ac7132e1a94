// Package oto provides an output-only synth.Stream backed by oto. It's
// useful on hosts without a PortAudio input device. Input is silent.
package oto

import (
	"errors"
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"

	"pipelined.dev/synth"
	"pipelined.dev/synth/log"
	"pipelined.dev/synth/signal"
)

// Stream writes every output buffer to an oto player through a pipe.
// Write blocks until the player has consumed the buffer.
type Stream struct {
	player *oto.Player
	pw     *io.PipeWriter
	in     []float32
	out    signal.Float32
	buf    []byte
}

var _ synth.Stream = (*Stream)(nil)

// Open creates oto context and starts the player. Only one stream per
// process can be opened.
func Open(config synth.Config, l log.Logger) (*Stream, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(config.SampleRate),
		ChannelCount: synth.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   signal.DurationOf(int(config.SampleRate), int64(config.FramesPerBuffer)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready
	l.Info(fmt.Sprintf("oto output: %v Hz, %d channels", int(config.SampleRate), synth.Channels))

	pr, pw := io.Pipe()
	s := Stream{
		player: ctx.NewPlayer(pr),
		pw:     pw,
		in:     make([]float32, config.SamplesPerBuffer()),
		out:    make([]float32, config.SamplesPerBuffer()),
	}
	s.buf = s.out.AsFloat32LE(nil)
	s.player.Play()
	return &s, nil
}

// Read returns silent input buffer.
func (s *Stream) Read() ([]float32, error) {
	return s.in, nil
}

// Output returns output buffer.
func (s *Stream) Output() []float32 {
	return s.out
}

// Write encodes output buffer and passes it to the player.
func (s *Stream) Write() error {
	if err := s.player.Err(); err != nil {
		return err
	}
	s.buf = s.out.AsFloat32LE(s.buf)
	_, err := s.pw.Write(s.buf)
	return err
}

// Close stops the player.
func (s *Stream) Close() error {
	return errors.Join(s.pw.Close(), s.player.Close())
}
