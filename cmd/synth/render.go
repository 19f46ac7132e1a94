package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"pipelined.dev/synth"
	"pipelined.dev/synth/command"
	"pipelined.dev/synth/log"
	"pipelined.dev/synth/mp3"
	"pipelined.dev/synth/oscillator"
	"pipelined.dev/synth/signal"
	"pipelined.dev/synth/wav"
)

// fileStream is a finite stream that renders to a file.
type fileStream interface {
	synth.Stream
	Written() int64
	Close() error
}

type renderCommand struct {
	engineFlags
	out       string
	duration  time.Duration
	note      int
	frequency float64
	bitDepth  int
	bitRate   int
	quality   int
}

func (cmd *renderCommand) Name() string {
	return "render"
}

func (cmd *renderCommand) Help() string {
	return "Render a tone to wav or mp3 file"
}

func (cmd *renderCommand) Register(fs *flag.FlagSet) {
	cmd.engineFlags.register(fs)
	fs.StringVar(&cmd.out, "out", "", "output .wav or .mp3 file (required)")
	fs.DurationVar(&cmd.duration, "duration", 2*time.Second, "duration of rendered audio")
	fs.IntVar(&cmd.note, "note", -1, "midi note to play, overrides frequency")
	fs.Float64Var(&cmd.frequency, "frequency", 440, "frequency in Hz")
	fs.IntVar(&cmd.bitDepth, "bitdepth", 16, "wav bit depth: 16 or 32")
	fs.IntVar(&cmd.bitRate, "bitrate", mp3.DefaultBitRate, "mp3 bit rate in kbps")
	fs.IntVar(&cmd.quality, "quality", mp3.DefaultQuality, "mp3 quality: 0 is best, 9 is worst")
}

func (cmd *renderCommand) Validate() error {
	var message string
	if cmd.out == "" {
		message += "Missing -out required flag\n"
	}
	if cmd.duration <= 0 {
		message += "Duration must be positive\n"
	}
	if cmd.note > 127 {
		message += "Note must be in range 0-127\n"
	}
	if message != "" {
		return errors.New(message)
	}
	return nil
}

func (cmd *renderCommand) Run() error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	config, kind, err := cmd.config()
	if err != nil {
		return err
	}
	logger := log.GetLogger()
	frames := signal.FramesIn(int(config.SampleRate), cmd.duration)
	stream, err := cmd.create(config, frames)
	if err != nil {
		return err
	}
	osc, err := oscillator.New(config,
		oscillator.WithWaveform(kind),
		oscillator.WithLogger(log.Component(logger, "oscillator")),
	)
	if err != nil {
		return errors.Join(err, stream.Close())
	}

	ch := command.NewChannel(config.QueueCapacity)
	sender := ch.Sender()
	defer sender.Close()
	var tone command.Command = command.SetParameter{Name: command.Frequency, Value: float32(cmd.frequency)}
	if cmd.note >= 0 {
		tone = command.NoteOn{Note: uint8(cmd.note)}
	}
	if err := sender.TrySend(tone); err != nil {
		return errors.Join(err, stream.Close())
	}

	p, err := synth.NewProcessor(config, stream, osc, ch,
		synth.WithLogger(log.Component(logger, "processor")),
	)
	if err != nil {
		return errors.Join(err, stream.Close())
	}
	if err := p.Run(context.Background()); err != nil {
		return errors.Join(err, stream.Close())
	}
	logger.Info(fmt.Sprintf("rendered %d frames to %s", stream.Written(), cmd.out))
	return stream.Close()
}

func (cmd *renderCommand) create(config synth.Config, frames int64) (fileStream, error) {
	switch ext := strings.ToLower(filepath.Ext(cmd.out)); ext {
	case ".wav":
		s, err := wav.Create(cmd.out, config, signal.BitDepth(cmd.bitDepth), frames)
		if err != nil {
			return nil, err
		}
		return s, nil
	case ".mp3":
		s, err := mp3.Create(cmd.out, config, cmd.bitRate, cmd.quality, frames)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", ext)
	}
}
