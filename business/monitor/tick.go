package monitor

import (
	"errors"
	"time"

	"github.com/superfeelapi/goVoiceStress/business/stress"
	"github.com/superfeelapi/goVoiceStress/foundation/capture"
	"github.com/superfeelapi/goVoiceStress/foundation/metrics"
	"github.com/superfeelapi/goVoiceStress/foundation/state"
)

func (c *Controller) monitorOperation(sess *session) {
	c.logger.Infow("monitor: monitorOperation: G started", "session", sess.id)
	defer c.logger.Infow("monitor: monitorOperation: G completed", "session", sess.id)

	// A tick that overruns the interval leaves at most one tick pending.
	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	c.logger.Infow("monitor: monitorOperation: G listening", "session", sess.id)
	for {
		select {
		case <-ticker.C:
			if sess.ctx.Err() != nil {
				return
			}
			if !c.tick(sess) {
				c.endSession(sess)
				return
			}

		case <-sess.ctx.Done():
			c.logger.Infow("monitor: monitorOperation: received shut signal", "session", sess.id)
			return
		}
	}
}

// tick captures and analyses one clip. It returns false when monitoring
// must end.
func (c *Controller) tick(sess *session) bool {
	ctx := sess.ctx

	clip, err := c.settings.Capturer.Capture(ctx, c.config.ClipDuration)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			c.metrics.RecordTick(ctx, metrics.OutcomeCancelled)
			return true

		case errors.Is(err, capture.ErrPermissionDenied):
			c.logger.Errorw("monitor: tick: permission revoked", "session", sess.id, "ERROR", err)
			return false

		default:
			c.metrics.RecordTick(ctx, metrics.OutcomeCaptureFailed)
			c.logger.Errorw("monitor: tick: capture", "session", sess.id, "ERROR", err)
			sess.deliver(func() { c.settings.OnError(MsgCaptureFailed) })
			return true
		}
	}

	level := c.settings.Analyzer.PerformVoiceAnalysis(ctx, &clip)
	if ctx.Err() != nil {
		return true
	}

	if level.Level == stress.Calm {
		return true
	}

	strategy := "rules"
	if level.Emotions != nil {
		strategy = "ai"
	}
	c.metrics.RecordDetection(ctx, level.Level.String(), strategy)
	c.logger.Infow("monitor: tick: stress detected",
		"session", sess.id,
		"level", level.Level.String(),
		"confidence", level.Confidence,
		"indicators", level.Indicators,
		"strategy", strategy,
	)

	sess.deliver(func() { c.settings.OnStressDetected(level) })

	return true
}

// endSession winds down a session whose loop is exiting because permission
// was revoked. The session reads as stopped before the error is reported,
// so a StartMonitoring call from then on starts a fresh session.
func (c *Controller) endSession(sess *session) {
	sess.cancel()
	c.state.Transition(state.Running, state.Stopping)

	sess.callbacks.Lock()
	c.settings.OnError(MsgPermissionDenied)
	sess.callbacks.Unlock()

	go c.stopSession(sess)
}
