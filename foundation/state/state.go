package state

import "sync"

// Phase is a monitoring session lifecycle phase.
type Phase int

const (
	Idle Phase = iota
	Starting
	Running
	Stopping
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	}
	return "unknown"
}

type State struct {
	sync.RWMutex

	phase Phase
}

func NewState() *State {
	return &State{
		phase: Idle,
	}
}

func (s *State) Get() Phase {
	s.RLock()
	defer s.RUnlock()
	{
		return s.phase
	}
}

func (s *State) Set(p Phase) {
	s.Lock()
	defer s.Unlock()
	{
		s.phase = p
	}
}

// Transition moves from one phase to another and reports whether the
// current phase was from.
func (s *State) Transition(from, to Phase) bool {
	s.Lock()
	defer s.Unlock()
	{
		if s.phase != from {
			return false
		}
		s.phase = to
	}
	return true
}
