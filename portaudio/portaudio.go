// Package portaudio provides a duplex synth.Stream on the default
// PortAudio devices.
package portaudio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"pipelined.dev/synth"
	"pipelined.dev/synth/log"
)

type (
	// Stream is a blocking duplex stream opened on default input and
	// output devices. Buffers are interleaved stereo.
	Stream struct {
		stream  *portaudio.Stream
		in, out []float32
	}

	// Device describes an audio device available to PortAudio.
	Device struct {
		Name       string
		HostAPI    string
		Inputs     int
		Outputs    int
		SampleRate float64
		// Default is set for default input or output device of the host.
		Default bool
	}
)

var _ synth.Stream = (*Stream)(nil)

// Open initializes PortAudio and starts a duplex stream with provided
// config. Stream must be closed to release PortAudio.
func Open(config synth.Config, l log.Logger) (*Stream, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	if host, err := portaudio.DefaultHostApi(); err == nil {
		l.Info(fmt.Sprintf("host api: %s", host.Name))
		if host.DefaultInputDevice != nil {
			l.Info(fmt.Sprintf("default input: %s", host.DefaultInputDevice.Name))
		}
		if host.DefaultOutputDevice != nil {
			l.Info(fmt.Sprintf("default output: %s", host.DefaultOutputDevice.Name))
		}
	}
	s := Stream{
		in:  make([]float32, config.SamplesPerBuffer()),
		out: make([]float32, config.SamplesPerBuffer()),
	}
	stream, err := portaudio.OpenDefaultStream(
		synth.Channels,
		synth.Channels,
		float64(config.SampleRate),
		config.FramesPerBuffer,
		&s.in,
		&s.out,
	)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open stream: %w", err), portaudio.Terminate())
	}
	if err := stream.Start(); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to start stream: %w", err), stream.Close(), portaudio.Terminate())
	}
	s.stream = stream
	return &s, nil
}

// Read blocks until input buffer is filled.
func (s *Stream) Read() ([]float32, error) {
	return s.in, streamError(s.stream.Read())
}

// Output returns output buffer.
func (s *Stream) Output() []float32 {
	return s.out
}

// Write blocks until output buffer is consumed by the device.
func (s *Stream) Write() error {
	return streamError(s.stream.Write())
}

// Close stops the stream and terminates PortAudio.
func (s *Stream) Close() error {
	return errors.Join(s.stream.Stop(), s.stream.Close(), portaudio.Terminate())
}

// streamError maps PortAudio transient conditions to synth errors.
func streamError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, portaudio.InputOverflowed):
		return synth.ErrInputOverflowed
	case errors.Is(err, portaudio.OutputUnderflowed):
		return synth.ErrOutputUnderflowed
	}
	return err
}

// Devices returns all devices of all host APIs.
func Devices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	hosts, err := portaudio.HostApis()
	if err != nil {
		return nil, err
	}
	var devices []Device
	for _, host := range hosts {
		for _, d := range host.Devices {
			devices = append(devices, Device{
				Name:       d.Name,
				HostAPI:    host.Name,
				Inputs:     d.MaxInputChannels,
				Outputs:    d.MaxOutputChannels,
				SampleRate: d.DefaultSampleRate,
				Default:    d == host.DefaultInputDevice || d == host.DefaultOutputDevice,
			})
		}
	}
	return devices, nil
}
