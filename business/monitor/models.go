package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/superfeelapi/goVoiceStress/business/stress"
	"github.com/superfeelapi/goVoiceStress/foundation/capture"
	"github.com/superfeelapi/goVoiceStress/foundation/metrics"
	"go.uber.org/zap"
)

// Messages passed to OnError. Only permission problems are phrased for the
// end user.
const (
	MsgPermissionDenied = "Microphone access is required for stress monitoring. Please allow microphone access in settings."
	MsgSetupFailed      = "Could not start voice monitoring."
	MsgCaptureFailed    = "Voice sample could not be recorded."
)

// Analyzer classifies one clip.
type Analyzer interface {
	PerformVoiceAnalysis(ctx context.Context, clip *capture.Clip) stress.StressLevel
	UsingAI() bool
}

type Settings struct {
	Config
	Logger      *zap.SugaredLogger
	Metrics     *metrics.Metrics
	Capturer    capture.Capturer
	Permissions capture.Permissions
	Analyzer    Analyzer

	// Both callbacks run on the monitoring goroutine and must not block. They
	// may call StopMonitoring; the stop then completes without waiting for
	// the callback to return.
	OnStressDetected func(stress.StressLevel)
	OnError          func(message string)
}

type Config struct {
	Interval     time.Duration
	ClipDuration time.Duration
}

// DefaultConfig captures three seconds every five seconds.
func DefaultConfig() Config {
	return Config{
		Interval:     5 * time.Second,
		ClipDuration: 3 * time.Second,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Interval <= 0:
		return errors.New("interval must be positive")
	case c.ClipDuration <= 0:
		return errors.New("clip duration must be positive")
	case c.ClipDuration >= c.Interval:
		return fmt.Errorf("clip duration[%s] must be shorter than interval[%s]", c.ClipDuration, c.Interval)
	}
	return nil
}
