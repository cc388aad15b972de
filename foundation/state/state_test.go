package state_test

import (
	"sync"
	"testing"

	"github.com/superfeelapi/goVoiceStress/foundation/state"
)

func TestTransition(t *testing.T) {
	s := state.NewState()
	if got := s.Get(); got != state.Idle {
		t.Fatalf("initial phase = %s, want idle", got)
	}

	if !s.Transition(state.Idle, state.Starting) {
		t.Fatal("idle -> starting rejected")
	}
	if s.Transition(state.Idle, state.Running) {
		t.Fatal("transition from stale phase accepted")
	}
	if got := s.Get(); got != state.Starting {
		t.Fatalf("phase = %s, want starting", got)
	}

	s.Set(state.Idle)
	if got := s.Get(); got != state.Idle {
		t.Fatalf("phase = %s, want idle", got)
	}
}

func TestTransitionExclusive(t *testing.T) {
	s := state.NewState()

	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Transition(state.Idle, state.Starting) {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if won != 1 {
		t.Fatalf("winners = %d, want 1", won)
	}
}
