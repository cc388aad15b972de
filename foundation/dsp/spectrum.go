package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const maxCentroidFrame = 8192

// SpectralCentroid returns the magnitude weighted mean frequency in Hz. The
// buffer is split into Hamming windowed frames of the largest power of two
// not exceeding its length (capped at 8192) and the spectra are pooled.
// Buffers too short for a transform fall back to a scaled zero crossing
// rate.
func SpectralCentroid(samples []float64, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}

	n := floorPow2(min(len(samples), maxCentroidFrame))
	if n < 2 {
		return ZeroCrossingRate(samples) * float64(sampleRate) / 2
	}

	fft := fourier.NewFFT(n)
	frame := make([]float64, n)
	coeff := make([]complex128, n/2+1)

	var weighted, total float64
	for start := 0; start+n <= len(samples); start += n {
		copy(frame, samples[start:start+n])
		window.Hamming(frame)
		coeff = fft.Coefficients(coeff, frame)

		for i, c := range coeff {
			mag := cmplx.Abs(c)
			weighted += fft.Freq(i) * float64(sampleRate) * mag
			total += mag
		}
	}

	if total == 0 {
		return 0
	}
	return weighted / total
}

// MFCC layout.
const (
	MFCCFrameSize    = 2048
	MFCCHopSize      = 512
	MFCCFilters      = 26
	MFCCCoefficients = 13

	// DefaultMFCCFrames is the number of zero frames returned when no frame
	// can be extracted.
	DefaultMFCCFrames = 100
)

// MFCC computes mel-frequency cepstral coefficients per frame: Hamming
// window, FFT magnitude, triangular mel filter bank spanning 0..Nyquist, log
// energies and a DCT-II keeping the first MFCCCoefficients terms. When the
// buffer holds no complete frame, DefaultMFCCFrames zero vectors are
// returned.
func MFCC(samples []float64, sampleRate int) [][]float64 {
	if sampleRate <= 0 || len(samples) < MFCCFrameSize {
		return zeroFrames(DefaultMFCCFrames)
	}

	fft := fourier.NewFFT(MFCCFrameSize)
	dct := fourier.NewDCT(MFCCFilters)
	bank := melFilterBank(MFCCFilters, MFCCFrameSize, sampleRate)

	frame := make([]float64, MFCCFrameSize)
	coeff := make([]complex128, MFCCFrameSize/2+1)
	mags := make([]float64, len(coeff))
	energies := make([]float64, MFCCFilters)
	cepstrum := make([]float64, MFCCFilters)

	var out [][]float64
	for start := 0; start+MFCCFrameSize <= len(samples); start += MFCCHopSize {
		copy(frame, samples[start:start+MFCCFrameSize])
		window.Hamming(frame)
		coeff = fft.Coefficients(coeff, frame)
		for i, c := range coeff {
			mags[i] = cmplx.Abs(c)
		}

		for m, filter := range bank {
			var e float64
			for i, w := range filter {
				e += w * mags[i]
			}
			energies[m] = math.Log(e + 1e-10)
		}

		dct.Transform(cepstrum, energies)

		vec := make([]float64, MFCCCoefficients)
		copy(vec, cepstrum[:MFCCCoefficients])
		out = append(out, vec)
	}

	if len(out) == 0 {
		return zeroFrames(DefaultMFCCFrames)
	}
	return out
}

// Flatten lays frames out row by row as float32, padding with zero frames or
// truncating so the result always holds frames*MFCCCoefficients values.
func Flatten(mfcc [][]float64, frames int) []float32 {
	out := make([]float32, frames*MFCCCoefficients)
	for i := 0; i < frames && i < len(mfcc); i++ {
		for j := 0; j < MFCCCoefficients && j < len(mfcc[i]); j++ {
			out[i*MFCCCoefficients+j] = float32(mfcc[i][j])
		}
	}
	return out
}

// HzToMel converts a frequency to the mel scale.
func HzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

// MelToHz converts a mel value back to Hz.
func MelToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterBank returns n triangular filters over the frameSize/2+1 FFT
// bins, evenly spaced on the mel scale between 0 Hz and Nyquist.
func melFilterBank(n, frameSize, sampleRate int) [][]float64 {
	bins := frameSize/2 + 1
	nyquist := float64(sampleRate) / 2
	maxMel := HzToMel(nyquist)

	// n filters need n+2 edge points.
	edges := make([]float64, n+2)
	for i := range edges {
		hz := MelToHz(maxMel * float64(i) / float64(n+1))
		edges[i] = hz * float64(frameSize) / float64(sampleRate)
	}

	bank := make([][]float64, n)
	for m := range bank {
		left, center, right := edges[m], edges[m+1], edges[m+2]
		filter := make([]float64, bins)
		for k := range filter {
			f := float64(k)
			switch {
			case f > left && f <= center && center > left:
				filter[k] = (f - left) / (center - left)
			case f > center && f < right && right > center:
				filter[k] = (right - f) / (right - center)
			}
		}
		bank[m] = filter
	}
	return bank
}

func zeroFrames(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, MFCCCoefficients)
	}
	return out
}

func floorPow2(n int) int {
	if n < 1 {
		return 0
	}
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}
