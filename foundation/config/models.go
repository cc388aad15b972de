package config

// Calibration holds every tunable threshold of the analysis pipeline.
type Calibration struct {
	Gate       Gate       `yaml:"gate"`
	Rules      Rules      `yaml:"rules"`
	Emotion    Emotion    `yaml:"emotion"`
	SpeechRate SpeechRate `yaml:"speech_rate"`
}

// Gate configures the voice activity gate.
type Gate struct {
	SilenceVolume float64 `yaml:"silence_volume"`
	RMSFloor      float64 `yaml:"rms_floor"`
	ZCRMin        float64 `yaml:"zcr_min"`
	ZCRMax        float64 `yaml:"zcr_max"`
	CentroidMin   float64 `yaml:"centroid_min"`
	CentroidMax   float64 `yaml:"centroid_max"`
}

// Rules configures the rule based stress scorer.
type Rules struct {
	ShoutingVolume    float64 `yaml:"shouting_volume"`
	RapidSpeechRate   float64 `yaml:"rapid_speech_rate"`
	HighPitchHz       float64 `yaml:"high_pitch_hz"`

	// IrregularVariance is compared with the frame energy spread relative to
	// its mean, see dsp.EnergyVariance.
	IrregularVariance float64 `yaml:"irregular_variance"`
}

// Emotion configures the model based scorer.
type Emotion struct {
	MinModelConfidence float64 `yaml:"min_model_confidence"`
	EmotionTrigger     float64 `yaml:"emotion_trigger"`
	VolumeTrigger      float64 `yaml:"volume_trigger"`
	SpeechRateTrigger  float64 `yaml:"speech_rate_trigger"`
}

// SpeechRate holds the typical speech ranges used to normalise the
// speech rate proxy inputs.
type SpeechRate struct {
	ZCRLow       float64 `yaml:"zcr_low"`
	ZCRHigh      float64 `yaml:"zcr_high"`
	VarianceLow  float64 `yaml:"variance_low"`
	VarianceHigh float64 `yaml:"variance_high"`
}
