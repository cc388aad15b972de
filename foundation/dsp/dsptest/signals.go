// Package dsptest generates synthetic signals for analysis tests.
package dsptest

import (
	"math"
	"math/rand"
)

// Sine returns n samples of a sine wave.
func Sine(freq, amplitude float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// Harmonic returns n samples of a tone at f0 whose k-th harmonic has
// amplitude amplitudes[k-1].
func Harmonic(f0 float64, amplitudes []float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		for k, a := range amplitudes {
			out[i] += a * math.Sin(2*math.Pi*f0*float64(k+1)*t)
		}
	}
	return out
}

// Clipped limits samples to the [-1, 1] range of a full scale recording.
func Clipped(samples []float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = math.Max(-1, math.Min(1, s))
	}
	return out
}

// Square returns n samples of a full scale square wave whose period is
// period samples.
func Square(period, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%period < period/2 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out
}

// Bursty silences every silentEvery-th frame of frameSize samples, starting
// with frame silentEvery-1, producing an irregular energy envelope.
func Bursty(samples []float64, frameSize, silentEvery int) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)
	for i := range out {
		if (i/frameSize)%silentEvery == silentEvery-1 {
			out[i] = 0
		}
	}
	return out
}

// Noise returns n samples of uniform noise in [-amplitude, amplitude].
func Noise(seed int64, amplitude float64, n int) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * (2*r.Float64() - 1)
	}
	return out
}

// Silence returns n zero samples.
func Silence(n int) []float64 {
	return make([]float64, n)
}
