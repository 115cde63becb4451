package testutil

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-stems/dsp/buffer"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// StereoSine returns a two-channel block with the same sine on both channels.
func StereoSine(freqHz, sampleRate, amplitude float64, frames int) *buffer.Block {
	s := DeterministicSine(freqHz, sampleRate, amplitude, frames)
	return buffer.FromChannels(s, append([]float64(nil), s...))
}

// StereoNoise returns a two-channel block of independent deterministic noise.
func StereoNoise(seed int64, amplitude float64, frames int) *buffer.Block {
	return buffer.FromChannels(
		DeterministicNoise(seed, amplitude, frames),
		DeterministicNoise(seed+1, amplitude, frames),
	)
}

// Quanta splits a block into consecutive quantum-sized views. A trailing
// partial quantum is dropped.
func Quanta(b *buffer.Block, quantum int) []*buffer.Block {
	if quantum <= 0 {
		return nil
	}
	n := b.Frames() / quantum
	out := make([]*buffer.Block, n)
	for q := range out {
		views := make([][]float64, b.Channels())
		for c := range views {
			views[c] = b.Channel(c)[q*quantum : (q+1)*quantum]
		}
		out[q] = buffer.FromChannels(views...)
	}
	return out
}

// RMS returns the root mean square of data, or 0 for empty input.
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(data)))
}

// Peak returns the maximum absolute value in data.
func Peak(data []float64) float64 {
	p := 0.0
	for _, v := range data {
		if a := math.Abs(v); a > p {
			p = a
		}
	}
	return p
}
