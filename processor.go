package synth

import (
	"context"
	"errors"
	"fmt"
	"io"

	"pipelined.dev/synth/command"
	"pipelined.dev/synth/log"
	"pipelined.dev/synth/metric"
)

// Processor is the real-time audio loop. Every cycle it drains queued
// commands into the module, reads the input buffer and lets the module
// fill the output buffer.
//
// Processor is not safe for concurrent use: it must be run by a single
// goroutine, which becomes the audio thread.
type Processor struct {
	config   Config
	stream   Stream
	module   Module
	commands Receiver

	log     log.Logger
	meter   *metric.Meter
	promote func() error

	// input keeps the last complete input buffer, it's passed to the
	// module when the stream only delivers partial data.
	input        []float32
	disconnected bool
}

// Option provides a way to set optional parameters to processor.
type Option func(*Processor)

// WithLogger sets processor logger.
func WithLogger(l log.Logger) Option {
	return func(p *Processor) {
		p.log = l
	}
}

// WithMeter enables metrics capture.
func WithMeter(m *metric.Meter) Option {
	return func(p *Processor) {
		p.meter = m
	}
}

// WithPromotion sets a function that moves the audio thread into the
// real-time scheduling class. It's called once at the start of Run and
// its failure is only logged.
func WithPromotion(fn func() error) Option {
	return func(p *Processor) {
		p.promote = fn
	}
}

// NewProcessor creates new processor. All buffers are allocated here.
func NewProcessor(config Config, stream Stream, module Module, commands Receiver, options ...Option) (*Processor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if stream == nil || module == nil || commands == nil {
		return nil, fmt.Errorf("%w: stream, module and commands are required", ErrInvalidConfig)
	}
	p := &Processor{
		config:   config,
		stream:   stream,
		module:   module,
		commands: commands,
		log:      log.GetLogger(),
		input:    make([]float32, config.SamplesPerBuffer()),
	}
	for _, option := range options {
		option(p)
	}
	return p, nil
}

// Run executes cycles until the context is done, the stream ends or a
// fatal stream error happens. Context is checked between cycles, so Run
// returns at most one buffer duration after cancellation. Nil is
// returned when context is done or stream reached io.EOF.
func (p *Processor) Run(ctx context.Context) error {
	if p.promote != nil {
		if err := p.promote(); err != nil {
			p.log.Warn(fmt.Sprintf("could not run the audio in real time: %v", err))
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := p.Cycle(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Cycle executes a single processing cycle. Transient stream
// conditions are logged and absorbed, other errors are returned.
func (p *Processor) Cycle() error {
	p.drain()

	in, err := p.stream.Read()
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return io.EOF
	case errors.Is(err, ErrInputOverflowed):
		p.meter.InputOverflow()
		p.log.Warn("input overflowed")
	default:
		return fmt.Errorf("read from stream failed: %w", err)
	}
	if in != nil {
		if len(in) != len(p.input) {
			return fmt.Errorf("%w: input %d, expected %d", ErrBufferLength, len(in), len(p.input))
		}
		copy(p.input, in)
	}

	out := p.stream.Output()
	if len(out) != len(p.input) {
		return fmt.Errorf("%w: output %d, expected %d", ErrBufferLength, len(out), len(p.input))
	}
	p.module.Process(p.input, out)

	switch err := p.stream.Write(); {
	case err == nil:
	case errors.Is(err, ErrOutputUnderflowed):
		p.meter.OutputUnderflow()
		p.log.Warn("output underflowed")
	default:
		return fmt.Errorf("write to stream failed: %w", err)
	}
	p.meter.Cycle(int64(p.config.FramesPerBuffer))
	return nil
}

// drain applies queued commands in arrival order. At most the queue
// capacity is drained per cycle, so busy producers cannot stall the
// cycle.
func (p *Processor) drain() {
	if p.disconnected {
		return
	}
	applied := 0
	for applied < p.config.QueueCapacity {
		cmd, err := p.commands.TryReceive()
		if err != nil {
			if errors.Is(err, command.ErrDisconnected) {
				p.disconnected = true
				p.log.Warn("communication channel to audio stream has been disconnected")
			}
			break
		}
		p.module.Apply(cmd)
		applied++
	}
	p.meter.Commands(applied)
}
