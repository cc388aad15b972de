// Package vad decides whether a clip holds speech worth classifying.
package vad

import "github.com/superfeelapi/goVoiceStress/foundation/config"

// Detector reports voice activity from the raw clip features.
type Detector interface {
	IsSilent(volume float64) bool
	HasVoiceActivity(rms, zcr, centroid float64) bool
}

// Gate is a three feature majority vote with a silence cutoff in front.
type Gate struct {
	cfg config.Gate
}

func New(cfg config.Gate) Gate {
	return Gate{
		cfg: cfg,
	}
}

// IsSilent reports whether the clip is too quiet to analyse at all.
func (g Gate) IsSilent(volume float64) bool {
	return volume < g.cfg.SilenceVolume
}

// HasVoiceActivity needs at least two of: energy above the floor, a speech
// like zero crossing rate, and a centroid inside the speech band.
func (g Gate) HasVoiceActivity(rms, zcr, centroid float64) bool {
	var votes int

	if rms > g.cfg.RMSFloor {
		votes++
	}
	if zcr >= g.cfg.ZCRMin && zcr <= g.cfg.ZCRMax {
		votes++
	}
	if centroid >= g.cfg.CentroidMin && centroid <= g.cfg.CentroidMax {
		votes++
	}

	return votes >= 2
}
