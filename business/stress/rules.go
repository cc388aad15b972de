package stress

import (
	"math"

	"github.com/superfeelapi/goVoiceStress/foundation/config"
)

// Indicator texts.
const (
	IndicatorShouting    = "Elevated voice volume detected"
	IndicatorRapidSpeech = "Rapid speech detected"
	IndicatorHighPitch   = "Elevated pitch detected"
	IndicatorIrregular   = "Irregular speech pattern detected"
	IndicatorStressed    = "Stress detected in voice"
	IndicatorAngry       = "Anger detected in voice"
	IndicatorFearful     = "Fear detected in voice"
)

// Rule weights.
const (
	weightShouting    = 3
	weightRapidSpeech = 2
	weightHighPitch   = 2
	weightIrregular   = 1
)

// RuleScorer is the threshold based strategy. It needs no model and is
// always available.
type RuleScorer struct {
	cfg config.Rules
}

func NewRuleScorer(cfg config.Rules) RuleScorer {
	return RuleScorer{
		cfg: cfg,
	}
}

// Evaluate checks each raw metric against its threshold.
func (r RuleScorer) Evaluate(a *Analysis) Indicators {
	return Indicators{
		Shouting:         a.Volume > r.cfg.ShoutingVolume,
		RapidSpeech:      a.SpeechRate > r.cfg.RapidSpeechRate,
		HighPitch:        a.Pitch > r.cfg.HighPitchHz,
		IrregularPattern: a.Raw.EnergyVariance > r.cfg.IrregularVariance,
	}
}

// Score sums the weights of the indicators that fired.
func Score(ind Indicators) int {
	var score int
	if ind.Shouting {
		score += weightShouting
	}
	if ind.RapidSpeech {
		score += weightRapidSpeech
	}
	if ind.HighPitch {
		score += weightHighPitch
	}
	if ind.IrregularPattern {
		score += weightIrregular
	}
	return score
}

// Classify evaluates the indicators, stores them on a and maps the score
// onto a level.
func (r RuleScorer) Classify(a *Analysis) StressLevel {
	ind := r.Evaluate(a)
	a.Indicators = ind

	indicators := []string{}
	if ind.Shouting {
		indicators = append(indicators, IndicatorShouting)
	}
	if ind.RapidSpeech {
		indicators = append(indicators, IndicatorRapidSpeech)
	}
	if ind.HighPitch {
		indicators = append(indicators, IndicatorHighPitch)
	}
	if ind.IrregularPattern {
		indicators = append(indicators, IndicatorIrregular)
	}

	level, confidence := band(Score(ind))

	return StressLevel{
		Level:      level,
		Confidence: confidence,
		Indicators: indicators,
		Timestamp:  a.CapturedAt,
	}
}

func band(score int) (Level, float64) {
	s := float64(score)
	switch {
	case score >= 6:
		return Crisis, math.Min(0.9, s/8)
	case score >= 4:
		return High, math.Min(0.8, s/6)
	case score >= 2:
		return Moderate, math.Min(0.7, s/4)
	case score >= 1:
		return Mild, math.Min(0.6, s/2)
	}
	return Calm, baselineConfidence
}
