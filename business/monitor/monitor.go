// Package monitor owns the monitoring lifecycle: permission, audio setup and
// the periodic capture and analysis loop.
package monitor

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/superfeelapi/goVoiceStress/business/stress"
	"github.com/superfeelapi/goVoiceStress/foundation/metrics"
	"github.com/superfeelapi/goVoiceStress/foundation/state"
	"go.uber.org/zap"
)

// session is one Running period. Its context is cancelled by stop or when
// the loop ends on its own. Callbacks run with callbacks held.
type session struct {
	id        string
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	callbacks sync.Mutex
}

// deliver runs fn unless the session has been stopped.
func (s *session) deliver(fn func()) {
	s.callbacks.Lock()
	defer s.callbacks.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	fn()
}

type Controller struct {
	config  Config
	state   *state.State
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics

	settings Settings

	mu      sync.Mutex
	session *session
}

func New(s Settings) (*Controller, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	switch {
	case s.Capturer == nil:
		return nil, errors.New("capturer is required")
	case s.Permissions == nil:
		return nil, errors.New("permissions is required")
	case s.Analyzer == nil:
		return nil, errors.New("analyzer is required")
	}
	if s.Metrics == nil {
		s.Metrics = metrics.Default()
	}
	if s.OnStressDetected == nil {
		s.OnStressDetected = func(stress.StressLevel) {}
	}
	if s.OnError == nil {
		s.OnError = func(string) {}
	}

	return &Controller{
		config:   s.Config,
		state:    state.NewState(),
		logger:   s.Logger,
		metrics:  s.Metrics,
		settings: s,
	}, nil
}

// RequestPermissions asks for audio access without starting anything.
func (c *Controller) RequestPermissions(ctx context.Context) bool {
	granted, err := c.settings.Permissions.RequestPermissions(ctx)
	if err != nil {
		c.logger.Errorw("monitor: RequestPermissions", "ERROR", err)
		return false
	}
	return granted
}

// StartMonitoring begins periodic analysis. It returns true at once when
// already running and false when permission or audio setup fails.
func (c *Controller) StartMonitoring(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sess := c.session; sess != nil {
		if sess.ctx.Err() == nil {
			return true
		}
		// The loop ended on its own and its cleanup has not run yet.
		c.shutdown(sess)
	}

	c.logger.Infow("monitor: StartMonitoring: started")
	c.state.Transition(state.Idle, state.Starting)

	if !c.RequestPermissions(ctx) {
		c.state.Set(state.Idle)
		c.settings.OnError(MsgPermissionDenied)
		return false
	}

	if err := c.settings.Capturer.Configure(ctx); err != nil {
		c.logger.Errorw("monitor: StartMonitoring: configure", "ERROR", err)
		c.state.Set(state.Idle)
		c.settings.OnError(MsgSetupFailed)
		return false
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:     uuid.NewString(),
		ctx:    sessCtx,
		cancel: cancel,
	}

	c.session = sess
	c.state.Transition(state.Starting, state.Running)
	c.metrics.ActiveSessions.Add(ctx, 1)

	sess.wg.Add(1)
	hasStarted := make(chan bool)
	go func() {
		defer sess.wg.Done()
		hasStarted <- true
		c.monitorOperation(sess)
	}()
	<-hasStarted

	c.logger.Infow("monitor: StartMonitoring: running", "session", sess.id, "usingAI", c.IsUsingAI())

	return true
}

// StopMonitoring cancels the loop and any capture in flight and waits for
// the loop to exit. No callback of the stopped session starts after it
// returns. When a callback is running, typically because it called
// StopMonitoring itself, the loop is left to finish in the background.
// Safe to call in any state.
func (c *Controller) StopMonitoring() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shutdown(c.session)
}

// stopSession stops sess unless it has already been replaced or stopped.
func (c *Controller) stopSession(sess *session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == sess {
		c.shutdown(sess)
	}
}

// shutdown must be called with mu held.
func (c *Controller) shutdown(sess *session) {
	if sess == nil {
		c.state.Set(state.Idle)
		return
	}

	c.logger.Infow("monitor: shutdown: started", "session", sess.id)
	defer c.logger.Infow("monitor: shutdown: completed", "session", sess.id)

	c.state.Transition(state.Running, state.Stopping)
	sess.cancel()

	if sess.callbacks.TryLock() {
		sess.callbacks.Unlock()
		sess.wg.Wait()
	} else {
		c.logger.Infow("monitor: shutdown: callback in flight, not waiting", "session", sess.id)
	}

	c.session = nil
	c.state.Set(state.Idle)
	c.metrics.ActiveSessions.Add(context.Background(), -1)
}

func (c *Controller) IsCurrentlyMonitoring() bool {
	return c.state.Get() == state.Running
}

// Phase returns the lifecycle phase.
func (c *Controller) Phase() state.Phase {
	return c.state.Get()
}

// IsUsingAI reports whether the classifier has an emotion model loaded.
func (c *Controller) IsUsingAI() bool {
	return c.settings.Analyzer.UsingAI()
}
