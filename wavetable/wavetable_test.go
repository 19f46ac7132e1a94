package wavetable_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/synth/wavetable"
)

const tolerance = 1e-6

func TestGenerateLength(t *testing.T) {
	for _, resolution := range []int{1, 1000, 4096, 100000} {
		for _, kind := range wavetable.Kinds() {
			table, err := wavetable.Generate(kind, 1, 1, 0, resolution)
			require.NoError(t, err)
			assert.Equal(t, resolution, len(table), "kind %v", kind)
		}
	}
}

func TestGenerateClosedForm(t *testing.T) {
	closedForm := map[wavetable.Kind]func(x, a, c, p float64) float64{
		wavetable.Sine: func(x, a, c, p float64) float64 {
			return a * math.Sin(2*math.Pi*c*x+p)
		},
		wavetable.Sawtooth: func(x, a, c, p float64) float64 {
			return -2 * a / math.Pi * math.Atan(1/math.Tan(math.Pi*c*x+p/2))
		},
		wavetable.Triangle: func(x, a, c, p float64) float64 {
			return 2 * a / math.Pi * math.Asin(math.Sin(2*math.Pi*c*x+p))
		},
	}
	tests := []struct {
		amplitude, cycles, phase float64
		resolution               int
	}{
		{amplitude: 1, cycles: 1, phase: 0, resolution: 1000},
		{amplitude: 0.5, cycles: 2, phase: 0.3, resolution: 1024},
		{amplitude: 0.8, cycles: 3, phase: math.Pi / 2, resolution: 999},
	}
	for _, c := range tests {
		for kind, fn := range closedForm {
			table, err := wavetable.Generate(kind, c.amplitude, c.cycles, c.phase, c.resolution)
			require.NoError(t, err)
			for i, v := range table {
				x := float64(i) / float64(c.resolution)
				assert.InDelta(t, fn(x, c.amplitude, c.cycles, c.phase), v, tolerance, "kind %v sample %d", kind, i)
			}
		}
	}
}

func TestSineAntisymmetric(t *testing.T) {
	resolution := 1000
	table, err := wavetable.Generate(wavetable.Sine, 1, 1, 0, resolution)
	require.NoError(t, err)
	for i := 1; i < resolution; i++ {
		assert.InDelta(t, -table[resolution-i], table[i], tolerance, "sample %d", i)
	}
	assert.InDelta(t, 0, table[0], tolerance)
	assert.InDelta(t, 0, table[resolution/2], tolerance)
}

func TestSquareLevels(t *testing.T) {
	amplitude := float32(0.7)
	for _, resolution := range []int{2, 1000, 100000} {
		table, err := wavetable.Generate(wavetable.Square, float64(amplitude), 1, 0, resolution)
		require.NoError(t, err)

		var high, low int
		for _, v := range table {
			switch v {
			case amplitude:
				high++
			case -amplitude:
				low++
			default:
				t.Fatalf("unexpected square level %v", v)
			}
		}
		assert.Equal(t, resolution/2, high)
		assert.Equal(t, resolution/2, low)
		// zero crossings resolve to the level of the half they open.
		assert.Equal(t, amplitude, table[0])
		assert.Equal(t, -amplitude, table[resolution/2])
	}
}

func TestSquareMatchesSignOfSine(t *testing.T) {
	resolution := 1000
	square, err := wavetable.Generate(wavetable.Square, 1, 3, 0.25, resolution)
	require.NoError(t, err)
	for i, v := range square {
		s := math.Sin(2*math.Pi*3*float64(i)/float64(resolution) + 0.25)
		if math.Abs(s) < 1e-9 {
			continue
		}
		assert.Equal(t, float32(math.Copysign(1, s)), v, "sample %d", i)
	}
}

func TestSawtoothAndTriangleRange(t *testing.T) {
	resolution := 1000
	saw, err := wavetable.Generate(wavetable.Sawtooth, 1, 1, 0, resolution)
	require.NoError(t, err)
	assert.InDelta(t, -1, saw[0], tolerance)
	assert.InDelta(t, -0.5, saw[resolution/4], tolerance)
	assert.InDelta(t, 0, saw[resolution/2], tolerance)
	for i := 1; i < resolution; i++ {
		assert.Greater(t, saw[i], saw[i-1], "sawtooth must rise at %d", i)
	}

	tri, err := wavetable.Generate(wavetable.Triangle, 1, 1, 0, resolution)
	require.NoError(t, err)
	assert.InDelta(t, 0, tri[0], tolerance)
	assert.InDelta(t, 1, tri[resolution/4], tolerance)
	assert.InDelta(t, -1, tri[3*resolution/4], tolerance)
}

func TestGenerateDeterministic(t *testing.T) {
	for _, kind := range wavetable.Kinds() {
		a, err := wavetable.Generate(kind, 1, 1, 0, 512)
		require.NoError(t, err)
		b, err := wavetable.Generate(kind, 1, 1, 0, 512)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestGenerateErrors(t *testing.T) {
	_, err := wavetable.Generate(wavetable.Sine, 1, 1, 0, 0)
	assert.True(t, errors.Is(err, wavetable.ErrResolution))
	_, err = wavetable.Generate(wavetable.Sine, 1, 1, 0, -10)
	assert.True(t, errors.Is(err, wavetable.ErrResolution))
	_, err = wavetable.Generate(wavetable.Kind(42), 1, 1, 0, 10)
	assert.True(t, errors.Is(err, wavetable.ErrUnknownKind))
}

func TestParseKind(t *testing.T) {
	for _, kind := range wavetable.Kinds() {
		parsed, err := wavetable.ParseKind(kind.String())
		assert.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}
	_, err := wavetable.ParseKind("noise")
	assert.True(t, errors.Is(err, wavetable.ErrUnknownKind))
	assert.Equal(t, "kind(9)", wavetable.Kind(9).String())
}

func TestBank(t *testing.T) {
	bank, err := wavetable.NewBank(1000)
	require.NoError(t, err)
	for _, kind := range wavetable.Kinds() {
		assert.Len(t, bank.Get(kind), 1000)
	}
	assert.Nil(t, bank.Get(wavetable.Kind(-1)))

	custom := wavetable.Table{0, 1, 0, -1}
	require.NoError(t, bank.Put(wavetable.Square, custom))
	assert.Equal(t, custom, bank.Get(wavetable.Square))
	assert.Error(t, bank.Put(wavetable.Square, nil))
	assert.Error(t, bank.Put(wavetable.Kind(7), custom))

	_, err = wavetable.NewBank(0)
	assert.True(t, errors.Is(err, wavetable.ErrResolution))
}
