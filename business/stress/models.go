package stress

import "time"

// Level is an ordinal stress severity.
type Level int

const (
	Calm Level = iota
	Mild
	Moderate
	High
	Crisis
)

func (l Level) String() string {
	switch l {
	case Calm:
		return "calm"
	case Mild:
		return "mild"
	case Moderate:
		return "moderate"
	case High:
		return "high"
	case Crisis:
		return "crisis"
	}
	return "unknown"
}

// Emotions is the model's probability per emotion class.
type Emotions struct {
	Calm     float64 `json:"calm"`
	Stressed float64 `json:"stressed"`
	Angry    float64 `json:"angry"`
	Fearful  float64 `json:"fearful"`
	Sad      float64 `json:"sad"`
}

// StressLevel is the result of analysing one clip. Emotions is only set when
// the emotion model produced the result.
type StressLevel struct {
	Level      Level     `json:"level"`
	Confidence float64   `json:"confidence"`
	Indicators []string  `json:"indicators"`
	Timestamp  time.Time `json:"timestamp"`
	Emotions   *Emotions `json:"emotions,omitempty"`
}

// EpochMillis returns the capture time in unix milliseconds.
func (s StressLevel) EpochMillis() int64 {
	return s.Timestamp.UnixMilli()
}

// Baseline is the low confidence calm result used for silence, clips
// without speech and failed analyses.
func Baseline(at time.Time) StressLevel {
	return StressLevel{
		Level:      Calm,
		Confidence: baselineConfidence,
		Indicators: []string{},
		Timestamp:  at,
	}
}

const baselineConfidence = 0.1

// =====================================================================================================================

// Indicators are the rule checks that fired for a clip.
type Indicators struct {
	Shouting         bool
	RapidSpeech      bool
	HighPitch        bool
	IrregularPattern bool
}

// Raw holds the features the indicators were derived from.
type Raw struct {
	RMS              float64
	ZCR              float64
	SpectralCentroid float64
	EnergyVariance   float64
}

// Prediction is one emotion model output, ordered calm, stressed, angry,
// fearful, sad. ModelConfidence is the largest probability.
type Prediction struct {
	Emotions        [5]float64
	ModelConfidence float64
}

// Analysis is the per clip feature set handed to the classifier. It is
// created for one tick and dropped after classification.
type Analysis struct {
	Volume     float64
	Pitch      float64
	SpeechRate float64
	Indicators Indicators
	Raw        Raw

	// MFCC is the flattened model input. It is nil when no model is loaded.
	MFCC []float32

	AIPrediction *Prediction
	CapturedAt   time.Time
}
