// Package midi forwards note events from the default PortMidi input
// device into a command channel.
package midi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rakyll/portmidi"

	"pipelined.dev/synth/command"
	"pipelined.dev/synth/log"
)

const (
	// BufferSize is the maximum number of events read at once.
	BufferSize = 1024
	// DefaultInterval is the default polling interval.
	DefaultInterval = time.Millisecond
)

// ErrNoDevice is returned when there's no default input device.
var ErrNoDevice = errors.New("no midi input device")

// Reader polls the default MIDI input device.
type Reader struct {
	stream   *portmidi.Stream
	log      log.Logger
	interval time.Duration
}

// Open initializes PortMidi and opens the default input device.
func Open(l log.Logger) (*Reader, error) {
	if err := portmidi.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portmidi: %w", err)
	}
	id := portmidi.DefaultInputDeviceID()
	if id < 0 {
		return nil, errors.Join(ErrNoDevice, portmidi.Terminate())
	}
	if info := portmidi.Info(id); info != nil {
		l.Info(fmt.Sprintf("midi input: %s (%s)", info.Name, info.Interface))
	}
	stream, err := portmidi.NewInputStream(id, BufferSize)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open midi input: %w", err), portmidi.Terminate())
	}
	return &Reader{
		stream:   stream,
		log:      l,
		interval: DefaultInterval,
	}, nil
}

// Run polls the device and sends commands until context is done or
// the channel is disconnected. Unsupported events are logged and
// skipped.
func (r *Reader) Run(ctx context.Context, s *command.Sender) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		ok, err := r.stream.Poll()
		if err != nil {
			return fmt.Errorf("failed to poll midi input: %w", err)
		}
		if !ok {
			continue
		}
		events, err := r.stream.Read(BufferSize)
		if err != nil {
			return fmt.Errorf("failed to read midi input: %w", err)
		}
		if err := Forward(ctx, r.log, s, events); err != nil {
			if errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		}
	}
}

// Forward converts events into commands and sends them in order.
func Forward(ctx context.Context, l log.Logger, s *command.Sender, events []portmidi.Event) error {
	for _, e := range events {
		cmd, err := command.FromMIDI(uint8(e.Status), uint8(e.Data1))
		if err != nil {
			l.Debug(err.Error())
			continue
		}
		if err := s.Send(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the device and terminates PortMidi.
func (r *Reader) Close() error {
	return errors.Join(r.stream.Close(), portmidi.Terminate())
}
