package synth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/synth"
	"pipelined.dev/synth/command"
	"pipelined.dev/synth/metric"
	"pipelined.dev/synth/mock"
	"pipelined.dev/synth/oscillator"
)

const framesPerBuffer = 64

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() synth.Config {
	c := synth.DefaultConfig()
	c.FramesPerBuffer = framesPerBuffer
	c.TableSize = 1000
	c.QueueCapacity = 16
	return c
}

func newProcessor(t *testing.T, stream synth.Stream, module synth.Module, r synth.Receiver, options ...synth.Option) (*synth.Processor, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	options = append([]synth.Option{synth.WithLogger(logger)}, options...)
	p, err := synth.NewProcessor(testConfig(), stream, module, r, options...)
	require.NoError(t, err)
	return p, hook
}

func newOscillator(t *testing.T) *oscillator.Oscillator {
	t.Helper()
	logger, _ := test.NewNullLogger()
	o, err := oscillator.New(testConfig(), oscillator.WithLogger(logger))
	require.NoError(t, err)
	return o
}

func messages(hook *test.Hook, level logrus.Level) []string {
	var m []string
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			m = append(m, e.Message)
		}
	}
	return m
}

func TestSilenceWithEmptyQueue(t *testing.T) {
	ch := command.NewChannel(16)
	s := ch.Sender()
	defer s.Close()
	stream := &mock.Stream{FramesPerBuffer: framesPerBuffer, Limit: 3, Record: true}
	p, hook := newProcessor(t, stream, newOscillator(t), ch)

	err := p.Run(context.Background())
	assert.NoError(t, err)
	require.Len(t, stream.Outputs, 3)
	for _, out := range stream.Outputs {
		assert.Equal(t, make([]float32, framesPerBuffer*synth.Channels), out)
	}
	assert.Empty(t, hook.AllEntries())
}

func TestFrequencyCycle(t *testing.T) {
	ch := command.NewChannel(16)
	s := ch.Sender()
	defer s.Close()
	require.NoError(t, s.Send(context.Background(), command.SetParameter{Name: command.Frequency, Value: 440}))

	o := newOscillator(t)
	stream := &mock.Stream{FramesPerBuffer: framesPerBuffer, Limit: 2, Record: true}
	p, _ := newProcessor(t, stream, o, ch)
	require.NoError(t, p.Run(context.Background()))

	// step = floor(1000 / (44100 / 440)) = 9
	assert.Equal(t, 9, o.Step())
	table := o.Table()
	for cycle, out := range stream.Outputs {
		for k := 0; k < framesPerBuffer; k++ {
			expected := table[(9*(cycle*framesPerBuffer+k))%len(table)]
			assert.Equal(t, expected, out[2*k])
			assert.Equal(t, expected, out[2*k+1])
		}
	}
}

func TestDisconnectKeepsLastState(t *testing.T) {
	ch := command.NewChannel(16)
	s := ch.Sender()
	o := newOscillator(t)
	stream := &mock.Stream{
		FramesPerBuffer: framesPerBuffer,
		Limit:           6,
		Record:          true,
		BeforeRead: func(cycle int) {
			// commands are drained before Read, so these land next cycle.
			switch cycle {
			case 0:
				assert.NoError(t, s.TrySend(command.NoteOn{Note: 69}))
			case 2:
				s.Close()
			}
		},
	}
	p, hook := newProcessor(t, stream, o, ch)

	assert.NotPanics(t, func() {
		assert.NoError(t, p.Run(context.Background()))
	})

	assert.Equal(t, 6, stream.Writes)
	assert.InDelta(t, 440, o.Frequency(), 0.01)
	for _, out := range stream.Outputs[1:] {
		assert.NotEqual(t, make([]float32, len(out)), out)
	}
	assert.Equal(t, []string{"communication channel to audio stream has been disconnected"}, messages(hook, logrus.WarnLevel))
}

func TestDrainBeforeProcess(t *testing.T) {
	cmds := []command.Command{
		command.NoteOn{Note: 60},
		command.SetParameter{Name: command.Frequency, Value: 100},
		command.NoteOff{},
	}
	module := &mock.Module{}
	r := &mock.Receiver{Commands: append([]command.Command(nil), cmds...)}
	stream := &mock.Stream{FramesPerBuffer: framesPerBuffer}
	p, _ := newProcessor(t, stream, module, r)

	require.NoError(t, p.Cycle())
	assert.Equal(t, cmds, module.Applied)
	assert.Equal(t, 1, module.Processed)
	// three commands and one empty result.
	assert.Equal(t, 4, r.Calls)
}

func TestDrainIsBounded(t *testing.T) {
	cmds := make([]command.Command, 40)
	for i := range cmds {
		cmds[i] = command.NoteOn{Note: uint8(i)}
	}
	module := &mock.Module{}
	r := &mock.Receiver{Commands: cmds}
	p, _ := newProcessor(t, &mock.Stream{FramesPerBuffer: framesPerBuffer}, module, r)

	require.NoError(t, p.Cycle())
	assert.Len(t, module.Applied, testConfig().QueueCapacity)
	require.NoError(t, p.Cycle())
	assert.Len(t, module.Applied, 2*testConfig().QueueCapacity)
}

func TestTransientConditions(t *testing.T) {
	tests := []struct {
		name     string
		stream   *mock.Stream
		expected string
	}{
		{
			name: "input overflow",
			stream: &mock.Stream{
				ReadErrors: map[int]error{1: synth.ErrInputOverflowed},
			},
			expected: "input overflowed",
		},
		{
			name: "wrapped input overflow without data",
			stream: &mock.Stream{
				ReadErrors: map[int]error{1: fmt.Errorf("device: %w", synth.ErrInputOverflowed)},
				NilInput:   true,
			},
			expected: "input overflowed",
		},
		{
			name: "output underflow",
			stream: &mock.Stream{
				WriteErrors: map[int]error{1: synth.ErrOutputUnderflowed},
			},
			expected: "output underflowed",
		},
	}
	for _, c := range tests {
		t.Run(c.name, func(t *testing.T) {
			c.stream.FramesPerBuffer = framesPerBuffer
			c.stream.Limit = 4
			c.stream.Value = 0.25
			module := &mock.Module{}
			p, hook := newProcessor(t, c.stream, module, &mock.Receiver{})

			assert.NoError(t, p.Run(context.Background()))
			assert.Equal(t, 4, module.Processed)
			assert.Equal(t, 4, c.stream.Writes)
			assert.Equal(t, []string{c.expected}, messages(hook, logrus.WarnLevel))
			// partial cycles still get the latest complete input.
			assert.Equal(t, float32(0.25), module.LastInput[0])
		})
	}
}

func TestFatalErrors(t *testing.T) {
	errDevice := errors.New("device unavailable")
	tests := []struct {
		name     string
		stream   *mock.Stream
		expected error
		writes   int
	}{
		{
			name:     "read",
			stream:   &mock.Stream{ReadErrors: map[int]error{2: errDevice}},
			expected: errDevice,
			writes:   2,
		},
		{
			name:     "write",
			stream:   &mock.Stream{WriteErrors: map[int]error{1: errDevice}},
			expected: errDevice,
			writes:   2,
		},
		{
			name:     "input length",
			stream:   &mock.Stream{InputLength: framesPerBuffer},
			expected: synth.ErrBufferLength,
		},
		{
			name:     "output length",
			stream:   &mock.Stream{OutputLength: framesPerBuffer*synth.Channels + 2},
			expected: synth.ErrBufferLength,
		},
	}
	for _, c := range tests {
		t.Run(c.name, func(t *testing.T) {
			c.stream.FramesPerBuffer = framesPerBuffer
			c.stream.Limit = 10
			p, _ := newProcessor(t, c.stream, &mock.Module{}, &mock.Receiver{})

			err := p.Run(context.Background())
			assert.True(t, errors.Is(err, c.expected), "unexpected error %v", err)
			assert.Equal(t, c.writes, c.stream.Writes)
		})
	}
}

func TestRunCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := &mock.Stream{
		FramesPerBuffer: framesPerBuffer,
		BeforeRead: func(cycle int) {
			if cycle == 4 {
				cancel()
			}
		},
	}
	p, _ := newProcessor(t, stream, &mock.Module{}, &mock.Receiver{})
	assert.NoError(t, p.Run(ctx))
	assert.Equal(t, 5, stream.Writes)
}

func TestPromotion(t *testing.T) {
	calls := 0
	promote := func() error {
		calls++
		return errors.New("permission denied")
	}
	stream := &mock.Stream{FramesPerBuffer: framesPerBuffer, Limit: 2}
	p, hook := newProcessor(t, stream, &mock.Module{}, &mock.Receiver{}, synth.WithPromotion(promote))

	assert.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, stream.Writes)
	assert.Equal(t, []string{"could not run the audio in real time: permission denied"}, messages(hook, logrus.WarnLevel))
}

func TestMeter(t *testing.T) {
	type meteredLoop struct{}
	meter := metric.New(meteredLoop{}, 44100)
	stream := &mock.Stream{
		FramesPerBuffer: framesPerBuffer,
		Limit:           3,
		ReadErrors:      map[int]error{0: synth.ErrInputOverflowed},
	}
	r := &mock.Receiver{Commands: []command.Command{command.NoteOff{}, command.NoteOff{}}}
	p, _ := newProcessor(t, stream, &mock.Module{}, r, synth.WithMeter(meter))

	require.NoError(t, p.Run(context.Background()))
	values := metric.Get(meteredLoop{})
	assert.Equal(t, "3", values[metric.CycleCounter])
	assert.Equal(t, fmt.Sprint(3*framesPerBuffer), values[metric.FrameCounter])
	assert.Equal(t, "1", values[metric.OverflowCounter])
	assert.Equal(t, "2", values[metric.CommandCounter])
}

func TestNewProcessorValidation(t *testing.T) {
	c := testConfig()
	c.FramesPerBuffer = 0
	_, err := synth.NewProcessor(c, &mock.Stream{}, &mock.Module{}, &mock.Receiver{})
	assert.True(t, errors.Is(err, synth.ErrInvalidConfig))

	_, err = synth.NewProcessor(testConfig(), nil, &mock.Module{}, &mock.Receiver{})
	assert.True(t, errors.Is(err, synth.ErrInvalidConfig))
}

func TestConfig(t *testing.T) {
	c := synth.DefaultConfig()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 256, c.SamplesPerBuffer())
	assert.Equal(t, float32(44100), c.SampleRate)
	assert.Equal(t, 100000, c.TableSize)
	assert.Equal(t, 1024, c.QueueCapacity)

	for _, broken := range []func(*synth.Config){
		func(c *synth.Config) { c.SampleRate = 0 },
		func(c *synth.Config) { c.SampleRate = -1 },
		func(c *synth.Config) { c.TableSize = 0 },
		func(c *synth.Config) { c.QueueCapacity = -5 },
	} {
		c := synth.DefaultConfig()
		broken(&c)
		assert.True(t, errors.Is(c.Validate(), synth.ErrInvalidConfig))
	}
}
