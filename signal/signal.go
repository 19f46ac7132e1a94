// Package signal provides helpers for interleaved float32 audio buffers:
// 	- silence and frame arithmetic
//	- conversion to int samples of a given bit depth
//	- encoding as little endian float32 PCM
//	- duration of a number of frames
package signal

import (
	"encoding/binary"
	"math"
	"time"
)

// Float32 is an interleaved float32 signal.
type Float32 []float32

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// BitDepth contains values required for float-to-int conversion.
type BitDepth int

// multiplier is used when float to int conversion is done.
func (bitDepth BitDepth) multiplier() float64 {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// DurationOf returns time duration of passed frames for this sample rate.
func DurationOf(sampleRate int, frames int64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}

// FramesIn returns number of frames that fit into duration.
func FramesIn(sampleRate int, d time.Duration) int64 {
	return int64(d.Seconds() * float64(sampleRate))
}

// Silence sets every sample to zero.
func (floats Float32) Silence() {
	for i := range floats {
		floats[i] = 0
	}
}

// Frames returns number of frames for provided number of channels.
func (floats Float32) Frames(numChannels int) int {
	if numChannels <= 0 {
		return 0
	}
	return len(floats) / numChannels
}

// Channel copies samples of a single channel into dst and returns it.
// dst is reallocated if it's too short.
func (floats Float32) Channel(channel, numChannels int, dst []float32) []float32 {
	frames := floats.Frames(numChannels)
	if cap(dst) < frames {
		dst = make([]float32, frames)
	}
	dst = dst[:frames]
	for i := range dst {
		dst[i] = floats[i*numChannels+channel]
	}
	return dst
}

// AsInts converts the signal to ints of the provided bit depth. Values
// are clipped to [-1, 1]. dst is reused when it has enough capacity.
func (floats Float32) AsInts(bitDepth BitDepth, dst []int) []int {
	if cap(dst) < len(floats) {
		dst = make([]int, len(floats))
	}
	dst = dst[:len(floats)]
	multiplier := bitDepth.multiplier()
	for i, v := range floats {
		f := float64(v)
		switch {
		case f > 1:
			f = 1
		case f < -1:
			f = -1
		}
		dst[i] = int(f * multiplier)
	}
	return dst
}

// AsFloat32LE encodes the signal as little endian IEEE 754 samples, 4
// bytes per sample. dst is reused when it has enough capacity.
func (floats Float32) AsFloat32LE(dst []byte) []byte {
	n := len(floats) * 4
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, v := range floats {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
	return dst
}
