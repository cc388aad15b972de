package pubsub_test

import (
	"testing"

	"github.com/superfeelapi/goVoiceStress/foundation/pubsub"
)

func TestBroker(t *testing.T) {
	b := pubsub.NewBroker[string]()
	s1 := pubsub.NewSubscriber[string](2)
	s2 := pubsub.NewSubscriber[string](2)

	b.Subscribe("alerts", s1)
	b.Subscribe("alerts", s2)

	n, err := b.Publish("alerts", "crisis")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}

	for i, s := range []*pubsub.Subscriber[string]{s1, s2} {
		select {
		case got := <-s.GetChannel():
			if got != "crisis" {
				t.Fatalf("subscriber %d got %q", i, got)
			}
		default:
			t.Fatalf("subscriber %d received nothing", i)
		}
	}
}

func TestBrokerNoSubscribers(t *testing.T) {
	b := pubsub.NewBroker[int]()
	if _, err := b.Publish("missing", 1); err == nil {
		t.Fatal("expected error for topic without subscribers")
	}
}

func TestBrokerFullSubscriberDoesNotBlock(t *testing.T) {
	b := pubsub.NewBroker[int]()
	s := pubsub.NewSubscriber[int](1)
	b.Subscribe("alerts", s)

	if n, _ := b.Publish("alerts", 1); n != 1 {
		t.Fatalf("first publish delivered %d", n)
	}
	if n, _ := b.Publish("alerts", 2); n != 0 {
		t.Fatalf("second publish delivered %d, want 0", n)
	}
}

func TestUnSubscribe(t *testing.T) {
	b := pubsub.NewBroker[int]()
	s := pubsub.NewSubscriber[int](1)
	b.Subscribe("alerts", s)

	if err := b.UnSubscribe("alerts", s); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-s.GetChannel(); ok {
		t.Fatal("channel should be closed")
	}
	if s.Signal(3) {
		t.Fatal("signal on closed subscriber accepted")
	}
	if err := b.UnSubscribe("missing", s); err == nil {
		t.Fatal("expected error for unknown topic")
	}
}
