// Package dsp implements the acoustic features used for stress analysis.
//
// Every function is pure: samples are float64 values normalised to [-1, 1],
// nothing is retained between calls and no function panics on empty or
// degenerate input. Degenerate input yields neutral values instead.
package dsp

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// EnergyFrameSize is the frame length used by EnergyVariance.
const EnergyFrameSize = 1024

// RMS returns the root mean square amplitude of samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Volume maps an RMS amplitude onto the 0-100 volume scale.
func Volume(rms float64) float64 {
	if math.IsNaN(rms) || rms < 0 {
		return 0
	}
	return math.Min(100, rms*100)
}

// ZeroCrossingRate returns the fraction of adjacent sample pairs whose sign
// differs. Zero counts as positive.
func ZeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var crossings int
	for i := 1; i < len(samples); i++ {
		if (samples[i] >= 0) != (samples[i-1] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// EnergyVariance measures how bursty the energy envelope is: the population
// standard deviation of the RMS energy of consecutive EnergyFrameSize frames,
// relative to their mean. The result does not depend on overall gain; a
// steady tone gives 0 and a tone with every third frame silenced gives
// about 0.71. Fewer than two frames or an all silent buffer give 0.
func EnergyVariance(samples []float64) float64 {
	frames := len(samples) / EnergyFrameSize
	if frames < 2 {
		return 0
	}

	energies := make([]float64, frames)
	for i := range energies {
		energies[i] = RMS(samples[i*EnergyFrameSize : (i+1)*EnergyFrameSize])
	}

	mean, std := stat.PopMeanStdDev(energies, nil)
	if mean == 0 || math.IsNaN(std) {
		return 0
	}
	return std / mean
}

// SpeechRateRange is a typical-speech band used to normalise a feature.
type SpeechRateRange struct {
	ZCRLow, ZCRHigh           float64
	VarianceLow, VarianceHigh float64
}

const (
	minSpeechRate = 1.0
	maxSpeechRate = 6.0
)

// EstimateSpeechRate is an empirical words-per-second proxy built from the
// zero crossing rate and energy variance. It is not a word counter; it only
// tracks how busy and bursty the signal is relative to typical speech. The
// normalised inputs are deliberately left unclamped, the result is always in
// [1, 6].
func EstimateSpeechRate(zcr, energyVariance float64, r SpeechRateRange) float64 {
	nz := normalise(zcr, r.ZCRLow, r.ZCRHigh)
	nv := normalise(energyVariance, r.VarianceLow, r.VarianceHigh)

	rate := 2.0 + 2.0*nz + 1.5*nv
	if math.IsNaN(rate) {
		return minSpeechRate
	}
	return math.Max(minSpeechRate, math.Min(maxSpeechRate, rate))
}

func normalise(v, low, high float64) float64 {
	if high <= low {
		return 0
	}
	return (v - low) / (high - low)
}
