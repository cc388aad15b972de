// Package stress turns analysed clip features into a stress level, either
// through the emotion model when one is loaded or through fixed rules.
package stress

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/superfeelapi/goVoiceStress/foundation/config"
	"github.com/superfeelapi/goVoiceStress/foundation/metrics"
	"go.uber.org/zap"
)

// ErrModelUnavailable is returned by a Loader that cannot run a model in
// this build or on this host.
var ErrModelUnavailable = errors.New("emotion model unavailable")

// DefaultInferenceTimeout bounds one model call.
const DefaultInferenceTimeout = 300 * time.Millisecond

// Fallback reasons.
const (
	FallbackBusy          = "busy"
	FallbackTimeout       = "timeout"
	FallbackError         = "error"
	FallbackLowConfidence = "low_confidence"
	FallbackNoFeatures    = "no_features"
)

// Predictor runs the emotion model on flattened MFCC features and returns
// the five class probabilities.
type Predictor interface {
	Predict(ctx context.Context, features []float32) ([]float32, error)
	Close() error
}

// Loader opens the model at path.
type Loader func(path string) (Predictor, error)

type loaded struct {
	p Predictor
}

// Config holds the classifier settings.
type Config struct {
	Calibration      config.Calibration
	InferenceTimeout time.Duration
}

// Classifier selects the scoring strategy per clip. It is the only owner of
// the model availability flag.
type Classifier struct {
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	timeout time.Duration

	cal       atomic.Pointer[config.Calibration]
	predictor atomic.Pointer[loaded]

	// inflight is held for the whole model call, including calls abandoned
	// after a timeout.
	inflight sync.Mutex
	initOnce sync.Once
}

func NewClassifier(cfg Config, logger *zap.SugaredLogger, m *metrics.Metrics) *Classifier {
	if cfg.InferenceTimeout <= 0 {
		cfg.InferenceTimeout = DefaultInferenceTimeout
	}
	if m == nil {
		m = metrics.Default()
	}

	c := &Classifier{
		logger:  logger,
		metrics: m,
		timeout: cfg.InferenceTimeout,
	}
	c.SetCalibration(cfg.Calibration)

	return c
}

// SetCalibration swaps the thresholds used from the next clip on.
func (c *Classifier) SetCalibration(cal config.Calibration) {
	c.cal.Store(&cal)
}

// UsingAI reports whether a model is loaded.
func (c *Classifier) UsingAI() bool {
	return c.predictor.Load() != nil
}

// InitModel attempts to load the model once. A missing file or a loader
// error leaves the classifier on rules; neither is reported to the caller.
func (c *Classifier) InitModel(path string, load Loader) {
	c.initOnce.Do(func() {
		if _, err := os.Stat(path); err != nil {
			c.logger.Debugw("stress: InitModel: model not found, using rules", "path", path)
			return
		}

		p, err := load(path)
		if err != nil {
			c.logger.Debugw("stress: InitModel: model not loaded, using rules", "path", path, "ERROR", err)
			return
		}

		c.predictor.Store(&loaded{p: p})
		c.logger.Infow("stress: InitModel: emotion model loaded", "path", path)
	})
}

// Classify scores a. The model path is taken only when a model is loaded,
// a.MFCC is set, inference finishes in time and the model is confident
// enough; every other case uses the rules for this clip.
func (c *Classifier) Classify(ctx context.Context, a *Analysis) StressLevel {
	cal := c.cal.Load()

	if l := c.predictor.Load(); l != nil {
		reason := FallbackNoFeatures
		if a.MFCC != nil {
			var pred Prediction
			pred, reason = c.infer(ctx, l.p, a.MFCC)
			if reason == "" {
				a.AIPrediction = &pred
				if pred.ModelConfidence > cal.Emotion.MinModelConfidence {
					return NewEmotionScorer(cal.Emotion).Classify(a)
				}
				reason = FallbackLowConfidence
			}
		}
		c.metrics.RecordFallback(ctx, reason)
	}

	return NewRuleScorer(cal.Rules).Classify(a)
}

func (c *Classifier) infer(ctx context.Context, p Predictor, features []float32) (Prediction, string) {
	if !c.inflight.TryLock() {
		return Prediction{}, FallbackBusy
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		out []float32
		err error
	}
	resultCh := make(chan result, 1)

	start := time.Now()
	go func() {
		out, err := p.Predict(ctx, features)
		c.inflight.Unlock()
		resultCh <- result{out: out, err: err}
	}()

	select {
	case r := <-resultCh:
		c.metrics.RecordInference(ctx, time.Since(start))
		if r.err != nil {
			c.logger.Debugw("stress: infer", "ERROR", r.err)
			return Prediction{}, FallbackError
		}
		pred, err := NewPrediction(r.out)
		if err != nil {
			c.logger.Debugw("stress: infer", "ERROR", err)
			return Prediction{}, FallbackError
		}
		return pred, ""

	case <-ctx.Done():
		c.logger.Debugw("stress: infer: inference abandoned", "ERROR", ctx.Err())
		return Prediction{}, FallbackTimeout
	}
}

// Close unloads the model, waiting for a running inference to finish.
func (c *Classifier) Close() error {
	l := c.predictor.Swap(nil)
	if l == nil {
		return nil
	}

	c.inflight.Lock()
	defer c.inflight.Unlock()

	return l.p.Close()
}
