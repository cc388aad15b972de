package pubsub

import "sync"

type Subscriber[T any] struct {
	payload chan T
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
}

// NewSubscriber returns a subscriber whose channel holds up to
// channelCapacity undelivered values (minimum one).
func NewSubscriber[T any](channelCapacity int) *Subscriber[T] {
	if channelCapacity < 1 {
		channelCapacity = 1
	}
	return &Subscriber[T]{
		payload: make(chan T, channelCapacity),
	}
}

// Signal delivers data if there is room, reporting whether it was accepted.
func (s *Subscriber[T]) Signal(data T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.payload <- data:
		return true
	default:
		return false
	}
}

func (s *Subscriber[T]) GetChannel() <-chan T {
	return s.payload
}

func (s *Subscriber[T]) CloseChannel() {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		close(s.payload)
	})
}
