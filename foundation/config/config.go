// Package config loads the analysis calibration file and keeps it current.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Default returns the calibration used when no file is configured.
func Default() Calibration {
	return Calibration{
		Gate: Gate{
			SilenceVolume: 3,
			RMSFloor:      0.04,
			ZCRMin:        0.02,
			ZCRMax:        0.30,
			CentroidMin:   200,
			CentroidMax:   5000,
		},
		Rules: Rules{
			ShoutingVolume:    70,
			RapidSpeechRate:   5.0,
			HighPitchHz:       280,
			IrregularVariance: 0.45,
		},
		Emotion: Emotion{
			MinModelConfidence: 0.5,
			EmotionTrigger:     0.3,
			VolumeTrigger:      65,
			SpeechRateTrigger:  4.5,
		},
		SpeechRate: SpeechRate{
			ZCRLow:       0.02,
			ZCRHigh:      0.30,
			VarianceLow:  0,
			VarianceHigh: 1.0,
		},
	}
}

// Load reads a YAML calibration file. Keys missing from the file keep
// their default value.
func Load(path string) (Calibration, error) {
	file, err := os.Open(path)
	if err != nil {
		return Calibration{}, err
	}
	defer file.Close()

	return Decode(file)
}

// Decode parses calibration YAML on top of the defaults.
func Decode(r io.Reader) (Calibration, error) {
	cal := Default()

	if err := yaml.NewDecoder(r).Decode(&cal); err != nil && !errors.Is(err, io.EOF) {
		return Calibration{}, fmt.Errorf("decode calibration: %w", err)
	}

	if err := cal.Validate(); err != nil {
		return Calibration{}, err
	}

	return cal, nil
}

// Validate rejects bands whose bounds are inverted or negative.
func (c Calibration) Validate() error {
	switch {
	case c.Gate.ZCRMin > c.Gate.ZCRMax:
		return fmt.Errorf("gate: zcr_min[%v] > zcr_max[%v]", c.Gate.ZCRMin, c.Gate.ZCRMax)
	case c.Gate.CentroidMin > c.Gate.CentroidMax:
		return fmt.Errorf("gate: centroid_min[%v] > centroid_max[%v]", c.Gate.CentroidMin, c.Gate.CentroidMax)
	case c.Gate.SilenceVolume < 0 || c.Gate.RMSFloor < 0:
		return errors.New("gate: negative threshold")
	case c.SpeechRate.ZCRLow >= c.SpeechRate.ZCRHigh:
		return fmt.Errorf("speech_rate: zcr_low[%v] >= zcr_high[%v]", c.SpeechRate.ZCRLow, c.SpeechRate.ZCRHigh)
	case c.SpeechRate.VarianceLow >= c.SpeechRate.VarianceHigh:
		return fmt.Errorf("speech_rate: variance_low[%v] >= variance_high[%v]", c.SpeechRate.VarianceLow, c.SpeechRate.VarianceHigh)
	case c.Emotion.MinModelConfidence < 0 || c.Emotion.MinModelConfidence > 1:
		return fmt.Errorf("emotion: min_model_confidence[%v] outside [0,1]", c.Emotion.MinModelConfidence)
	}
	return nil
}
