package stress

import (
	"errors"
	"fmt"
	"math"

	"github.com/superfeelapi/goVoiceStress/foundation/config"
)

// EmotionClasses is the size of the model output vector.
const EmotionClasses = 5

// EmotionScorer maps an emotion model prediction onto a stress level.
type EmotionScorer struct {
	cfg config.Emotion
}

func NewEmotionScorer(cfg config.Emotion) EmotionScorer {
	return EmotionScorer{
		cfg: cfg,
	}
}

// Score weights the negative emotions: 3 stressed, 3 angry, 2 fearful, 1 sad.
func (EmotionScorer) Score(p Prediction) float64 {
	e := p.Emotions
	return 3*e[1] + 3*e[2] + 2*e[3] + 1*e[4]
}

// Classify builds the result from a.AIPrediction, which must be set.
func (s EmotionScorer) Classify(a *Analysis) StressLevel {
	p := *a.AIPrediction
	e := p.Emotions

	indicators := []string{}
	if e[1] > s.cfg.EmotionTrigger {
		indicators = append(indicators, IndicatorStressed)
	}
	if e[2] > s.cfg.EmotionTrigger {
		indicators = append(indicators, IndicatorAngry)
	}
	if e[3] > s.cfg.EmotionTrigger {
		indicators = append(indicators, IndicatorFearful)
	}
	if a.Volume > s.cfg.VolumeTrigger {
		indicators = append(indicators, IndicatorShouting)
	}
	if a.SpeechRate > s.cfg.SpeechRateTrigger {
		indicators = append(indicators, IndicatorRapidSpeech)
	}

	var level Level
	switch score := s.Score(p); {
	case score > 2.5:
		level = Crisis
	case score > 1.5:
		level = High
	case score > 0.8:
		level = Moderate
	case score > 0.3:
		level = Mild
	default:
		level = Calm
	}

	return StressLevel{
		Level:      level,
		Confidence: clamp01(p.ModelConfidence),
		Indicators: indicators,
		Timestamp:  a.CapturedAt,
		Emotions: &Emotions{
			Calm:     e[0],
			Stressed: e[1],
			Angry:    e[2],
			Fearful:  e[3],
			Sad:      e[4],
		},
	}
}

// NewPrediction validates a raw model output.
func NewPrediction(out []float32) (Prediction, error) {
	if len(out) != EmotionClasses {
		return Prediction{}, fmt.Errorf("model output has %d values, want %d", len(out), EmotionClasses)
	}

	var p Prediction
	for i, v := range out {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Prediction{}, errors.New("model output is not finite")
		}
		p.Emotions[i] = clamp01(f)
		p.ModelConfidence = math.Max(p.ModelConfidence, p.Emotions[i])
	}

	return p, nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
