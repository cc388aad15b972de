// Package crisis decides which stress levels become user facing alerts and
// dispatches the actions the user picks on them.
package crisis

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/superfeelapi/goVoiceStress/business/stress"
	"github.com/superfeelapi/goVoiceStress/foundation/pubsub"
	"go.uber.org/zap"
)

// AlertTopic is the broker topic alerts are published on.
const AlertTopic = "alerts"

var (
	ErrUnknownAlert     = errors.New("unknown or superseded alert")
	ErrActionNotOffered = errors.New("action not offered on alert")
	ErrNoHandler        = errors.New("no handler for action")
)

type Workflow struct {
	logger   *zap.SugaredLogger
	handlers Handlers
	broker   *pubsub.Broker[Alert]
	cooldown time.Duration
	now      func() time.Time

	mu          sync.Mutex
	delivered   bool
	lastLevel   stress.Level
	lastAt      time.Time
	snoozeUntil time.Time
	current     *Alert
}

func New(cfg Config, handlers Handlers, logger *zap.SugaredLogger) *Workflow {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Workflow{
		logger:   logger,
		handlers: handlers,
		broker:   pubsub.NewBroker[Alert](),
		cooldown: cfg.Cooldown,
		now:      cfg.Clock,
	}
}

// Subscribe returns a subscriber receiving every alert. Alerts are dropped
// for a subscriber whose channel is full.
func (w *Workflow) Subscribe(capacity int) *pubsub.Subscriber[Alert] {
	sub := pubsub.NewSubscriber[Alert](capacity)
	w.broker.Subscribe(AlertTopic, sub)
	return sub
}

func (w *Workflow) Unsubscribe(sub *pubsub.Subscriber[Alert]) error {
	return w.broker.UnSubscribe(AlertTopic, sub)
}

// Handle turns a stress level into an alert unless it is calm or debounced.
// An escalation always passes; a level at or below the last alert inside
// the cooldown does not, and after a dismiss only crisis passes until the
// snooze ends.
func (w *Workflow) Handle(level stress.StressLevel) (Alert, bool) {
	if level.Level == stress.Calm {
		return Alert{}, false
	}

	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()
	{
		if now.Before(w.snoozeUntil) && level.Level < stress.Crisis {
			w.logger.Debugw("crisis: Handle: snoozed", "level", level.Level.String())
			return Alert{}, false
		}
		if w.delivered && now.Sub(w.lastAt) < w.cooldown && level.Level <= w.lastLevel {
			w.logger.Debugw("crisis: Handle: debounced", "level", level.Level.String(), "last", w.lastLevel.String())
			return Alert{}, false
		}

		alert := newAlert(level, now)

		w.delivered = true
		w.lastLevel = level.Level
		w.lastAt = now
		w.current = &alert

		if _, err := w.broker.Publish(AlertTopic, alert); err != nil {
			w.logger.Debugw("crisis: Handle: publish", "ERROR", err)
		}

		return alert, true
	}
}

func newAlert(level stress.StressLevel, now time.Time) Alert {
	urgent := level.Level == stress.Crisis

	actions := []Action{ActionDismiss, ActionBreathing, ActionSupport}
	if urgent {
		actions = append(actions, ActionEmergency)
	}

	return Alert{
		ID:         uuid.NewString(),
		Level:      level.Level,
		Confidence: level.Confidence,
		Indicators: append([]string(nil), level.Indicators...),
		Urgent:     urgent,
		Haptic:     urgent,
		Actions:    actions,
		CreatedAt:  now,
	}
}

// Invoke runs action on the current alert and resolves it. Dismiss also
// starts the snooze window.
func (w *Workflow) Invoke(alertID string, action Action) error {
	w.mu.Lock()
	alert := w.current
	if alert == nil || alert.ID != alertID {
		w.mu.Unlock()
		return ErrUnknownAlert
	}
	if !alert.Offers(action) {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrActionNotOffered, action)
	}
	handler := w.handlers.forAction(action)
	if handler == nil && action != ActionDismiss {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoHandler, action)
	}
	if action == ActionDismiss {
		w.snoozeUntil = w.now().Add(w.cooldown)
	}
	w.current = nil
	w.mu.Unlock()

	w.logger.Infow("crisis: Invoke", "alert", alertID, "action", string(action), "level", alert.Level.String())

	if handler != nil {
		handler(*alert)
	}

	return nil
}
