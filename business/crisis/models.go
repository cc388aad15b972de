package crisis

import (
	"slices"
	"time"

	"github.com/superfeelapi/goVoiceStress/business/stress"
)

// Action is a user response offered on an alert.
type Action string

const (
	ActionDismiss   Action = "dismiss"
	ActionBreathing Action = "breathing_exercise"
	ActionSupport   Action = "talk_to_support"
	ActionEmergency Action = "call_emergency"
)

// Alert is what the presentation layer shows for one delivered stress
// level. Urgent alerts need immediate attention grabbing presentation.
type Alert struct {
	ID         string
	Level      stress.Level
	Confidence float64
	Indicators []string
	Urgent     bool
	Haptic     bool
	Actions    []Action
	CreatedAt  time.Time
}

// Offers reports whether a is one of the alert's actions.
func (a Alert) Offers(action Action) bool {
	return slices.Contains(a.Actions, action)
}

// Handlers are supplied by the presentation layer. A nil handler makes the
// action fail when invoked, except dismiss which always works.
type Handlers struct {
	Dismiss   func(Alert)
	Breathing func(Alert)
	Support   func(Alert)
	Emergency func(Alert)
}

func (h Handlers) forAction(action Action) func(Alert) {
	switch action {
	case ActionDismiss:
		return h.Dismiss
	case ActionBreathing:
		return h.Breathing
	case ActionSupport:
		return h.Support
	case ActionEmergency:
		return h.Emergency
	}
	return nil
}

type Config struct {
	// Cooldown suppresses repeats at or below the last level and is also the
	// snooze length after a dismiss.
	Cooldown time.Duration

	// Clock defaults to time.Now.
	Clock func() time.Time
}

const DefaultCooldown = 60 * time.Second
