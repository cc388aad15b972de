// Package voice runs one captured clip through feature extraction, the voice
// activity gate and the stress classifier.
package voice

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/superfeelapi/goVoiceStress/business/stress"
	"github.com/superfeelapi/goVoiceStress/business/vad"
	"github.com/superfeelapi/goVoiceStress/foundation/capture"
	"github.com/superfeelapi/goVoiceStress/foundation/config"
	"github.com/superfeelapi/goVoiceStress/foundation/dsp"
	"github.com/superfeelapi/goVoiceStress/foundation/metrics"
	"go.uber.org/zap"
)

// Settings configures a Pipeline.
type Settings struct {
	Calibration config.Calibration
	MFCCFrames  int
	Logger      *zap.SugaredLogger
	Metrics     *metrics.Metrics
	Classifier  *stress.Classifier

	// Detector replaces the gate built from the calibration.
	Detector vad.Detector
}

type Pipeline struct {
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics
	classifier *stress.Classifier
	detector   vad.Detector
	frames     int

	cal atomic.Pointer[config.Calibration]
}

func New(s Settings) *Pipeline {
	if s.MFCCFrames <= 0 {
		s.MFCCFrames = dsp.DefaultMFCCFrames
	}
	if s.Metrics == nil {
		s.Metrics = metrics.Default()
	}

	p := &Pipeline{
		logger:     s.Logger,
		metrics:    s.Metrics,
		classifier: s.Classifier,
		detector:   s.Detector,
		frames:     s.MFCCFrames,
	}
	p.SetCalibration(s.Calibration)

	return p
}

// SetCalibration swaps the thresholds for the gate, the speech rate
// normalisation and the classifier. Clips already being analysed keep the
// old values.
func (p *Pipeline) SetCalibration(cal config.Calibration) {
	p.cal.Store(&cal)
	p.classifier.SetCalibration(cal)
}

// UsingAI reports whether the classifier has a model loaded.
func (p *Pipeline) UsingAI() bool {
	return p.classifier.UsingAI()
}

// PerformVoiceAnalysis classifies clip. The clip's samples are wiped before
// classification starts. Silence and clips without speech give the calm
// baseline, as does any failure during extraction.
func (p *Pipeline) PerformVoiceAnalysis(ctx context.Context, clip *capture.Clip) (result stress.StressLevel) {
	start := time.Now()
	at := clip.CapturedAt

	defer clip.Discard()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorw("voice: PerformVoiceAnalysis: recovered", "ERROR", r)
			result = stress.Baseline(at)
		}
	}()

	cal := p.cal.Load()
	det := p.detector
	if det == nil {
		det = vad.New(cal.Gate)
	}

	samples, sr := clip.Samples, clip.SampleRate

	rms := dsp.RMS(samples)
	volume := dsp.Volume(rms)
	if det.IsSilent(volume) {
		p.metrics.RecordTick(ctx, metrics.OutcomeSilent)
		return stress.Baseline(at)
	}

	zcr := dsp.ZeroCrossingRate(samples)
	centroid := dsp.SpectralCentroid(samples, sr)
	if !det.HasVoiceActivity(rms, zcr, centroid) {
		p.metrics.RecordTick(ctx, metrics.OutcomeNoVoice)
		return stress.Baseline(at)
	}

	variance := dsp.EnergyVariance(samples)
	a := &stress.Analysis{
		Volume: volume,
		Pitch:  dsp.EstimatePitch(samples, sr),
		SpeechRate: dsp.EstimateSpeechRate(zcr, variance, dsp.SpeechRateRange{
			ZCRLow:       cal.SpeechRate.ZCRLow,
			ZCRHigh:      cal.SpeechRate.ZCRHigh,
			VarianceLow:  cal.SpeechRate.VarianceLow,
			VarianceHigh: cal.SpeechRate.VarianceHigh,
		}),
		Raw: stress.Raw{
			RMS:              rms,
			ZCR:              zcr,
			SpectralCentroid: centroid,
			EnergyVariance:   variance,
		},
		CapturedAt: at,
	}
	if p.classifier.UsingAI() {
		a.MFCC = dsp.Flatten(dsp.MFCC(samples, sr), p.frames)
	}

	clip.Discard()

	result = p.classifier.Classify(ctx, a)

	p.metrics.RecordTick(ctx, metrics.OutcomeAnalyzed)
	p.metrics.RecordAnalysis(ctx, time.Since(start))

	p.logger.Debugw("voice: PerformVoiceAnalysis",
		"level", result.Level.String(),
		"volume", a.Volume,
		"pitch", a.Pitch,
		"speechRate", a.SpeechRate,
		"zcr", zcr,
		"centroid", centroid,
		"energyVariance", variance,
	)

	return result
}
