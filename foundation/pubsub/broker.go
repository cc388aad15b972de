package pubsub

import (
	"fmt"
	"sync"
)

// Broker fans published values out to the subscribers of a topic.
type Broker[T any] struct {
	topics map[string][]*Subscriber[T]
	sync.RWMutex
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		topics: make(map[string][]*Subscriber[T]),
	}
}

// Publish hands data to every subscriber of topic without blocking and
// returns how many subscribers accepted it. Subscribers with a full channel
// miss the value.
func (b *Broker[T]) Publish(topic string, data T) (int, error) {
	b.RLock()
	defer b.RUnlock()

	subs, exists := b.topics[topic]
	if !exists || len(subs) == 0 {
		return 0, fmt.Errorf("topic[%s] has no subscribers", topic)
	}

	var delivered int
	for _, sub := range subs {
		if sub.Signal(data) {
			delivered++
		}
	}
	return delivered, nil
}

func (b *Broker[T]) Subscribe(topic string, s *Subscriber[T]) {
	b.Lock()
	defer b.Unlock()
	{
		b.topics[topic] = append(b.topics[topic], s)
	}
}

func (b *Broker[T]) UnSubscribe(topic string, s *Subscriber[T]) error {
	b.Lock()
	defer b.Unlock()
	{
		subs, exists := b.topics[topic]
		if !exists {
			return fmt.Errorf("topic[%s] does not exist", topic)
		}

		b.topics[topic] = removeFromSlice(subs, s)
		s.CloseChannel()
	}

	return nil
}

// =================================================================================================================

func removeFromSlice[T comparable](s []T, d T) []T {
	for i := range s {
		if s[i] == d {
			s[i] = s[len(s)-1]
			return s[:len(s)-1]
		}
	}
	return s
}
