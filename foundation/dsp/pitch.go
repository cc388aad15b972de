package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// NeutralPitch is returned whenever the pitch estimate is unreliable.
	NeutralPitch = 150.0

	minSearchHz = 50.0
	maxSearchHz = 500.0
	minVoiceHz  = 80.0
	maxVoiceHz  = 500.0

	// minPitchCorrelation is the weakest normalised autocorrelation trusted
	// as a periodicity.
	minPitchCorrelation = 0.3

	// keyPeakRatio is the share of the strongest autocorrelation peak that
	// the first accepted peak must reach. A periodic signal peaks again at
	// every multiple of its period, so the earliest strong peak is the
	// period itself.
	keyPeakRatio = 0.9

	pitchWindow = 4096
)

// EstimatePitch estimates the fundamental frequency with a normalised
// autocorrelation search over lags covering 50-500 Hz. The search runs on
// the most energetic window of the buffer. Each correlation peak is refined
// to a fractional lag by parabolic interpolation and the first peak within
// keyPeakRatio of the strongest one gives the period. Weak correlation or a
// result outside the 80-500 Hz voice band yields NeutralPitch.
func EstimatePitch(samples []float64, sampleRate int) float64 {
	if sampleRate <= 0 {
		return NeutralPitch
	}

	x := loudestWindow(samples, pitchWindow)

	minLag := int(math.Ceil(float64(sampleRate) / maxSearchHz))
	maxLag := int(math.Floor(float64(sampleRate) / minSearchHz))
	if maxLag > len(x)/2-1 {
		maxLag = len(x)/2 - 1
	}
	if minLag < 1 || minLag > maxLag {
		return NeutralPitch
	}

	// One extra lag on each side gives every candidate two neighbours.
	corr := make([]float64, maxLag+2)
	for lag := minLag - 1; lag <= maxLag+1; lag++ {
		corr[lag] = correlation(x, lag)
	}

	var peaks []peak
	best := math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		if corr[lag] <= corr[lag-1] || corr[lag] < corr[lag+1] {
			continue
		}
		p := refinePeak(corr, lag)
		peaks = append(peaks, p)
		best = math.Max(best, p.value)
	}
	if len(peaks) == 0 || best < minPitchCorrelation {
		return NeutralPitch
	}

	for _, p := range peaks {
		if p.value < keyPeakRatio*best {
			continue
		}
		freq := float64(sampleRate) / p.lag
		if freq < minVoiceHz || freq > maxVoiceHz {
			return NeutralPitch
		}
		return freq
	}
	return NeutralPitch
}

// correlation is the normalised autocorrelation of x at lag.
func correlation(x []float64, lag int) float64 {
	a := x[:len(x)-lag]
	b := x[lag:]

	den := math.Sqrt(floats.Dot(a, a) * floats.Dot(b, b))
	if den == 0 {
		return 0
	}
	return floats.Dot(a, b) / den
}

type peak struct {
	lag   float64
	value float64
}

// refinePeak fits a parabola through the local maximum at lag and its two
// neighbours and returns the vertex.
func refinePeak(corr []float64, lag int) peak {
	y0, y1, y2 := corr[lag-1], corr[lag], corr[lag+1]

	den := y0 - 2*y1 + y2
	if den >= 0 {
		return peak{lag: float64(lag), value: y1}
	}

	delta := 0.5 * (y0 - y2) / den
	delta = math.Max(-0.5, math.Min(0.5, delta))

	return peak{
		lag:   float64(lag) + delta,
		value: y1 - 0.25*(y0-y2)*delta,
	}
}

// loudestWindow returns the size-sample window with the highest energy,
// stepping by whole windows. Short buffers are returned unchanged.
func loudestWindow(samples []float64, size int) []float64 {
	if len(samples) <= size {
		return samples
	}

	best := samples[:size]
	bestEnergy := floats.Dot(best, best)
	for start := size; start+size <= len(samples); start += size {
		w := samples[start : start+size]
		if e := floats.Dot(w, w); e > bestEnergy {
			best, bestEnergy = w, e
		}
	}
	return best
}
