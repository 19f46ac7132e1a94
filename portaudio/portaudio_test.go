//go:build portaudio

package portaudio_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/synth"
	"pipelined.dev/synth/command"
	"pipelined.dev/synth/oscillator"
	"pipelined.dev/synth/portaudio"
)

func TestDevices(t *testing.T) {
	devices, err := portaudio.Devices()
	assert.NoError(t, err)
	assert.NotEmpty(t, devices)
}

func TestPlay(t *testing.T) {
	logger, _ := test.NewNullLogger()
	config := synth.DefaultConfig()
	stream, err := portaudio.Open(config, logger)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, stream.Close())
	}()

	ch := command.NewChannel(config.QueueCapacity)
	sender := ch.Sender()
	defer sender.Close()
	require.NoError(t, sender.TrySend(command.NoteOn{Note: 69}))

	o, err := oscillator.New(config, oscillator.WithLogger(logger))
	require.NoError(t, err)
	p, err := synth.NewProcessor(config, stream, o, ch, synth.WithLogger(logger))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	assert.NoError(t, p.Run(ctx))
}
