package eventbus

import (
	"context"
	"testing"
	"time"
)

func TestBus_PublishDeliversToSubscriber(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, events := b.Subscribe(ctx, TopicGlobal)
	b.Publish(TopicGlobal, Event{Kind: EventProcessorAdded, ProcessorID: "abc0123456"})

	select {
	case ev := <-events:
		if ev.Kind != EventProcessorAdded {
			t.Fatalf("Kind = %v, want EventProcessorAdded", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestBus_PublishToUnsubscribedTopicIsNoOp(t *testing.T) {
	b := New()
	// Should not panic or block with zero subscribers.
	b.Publish("processor:none", Event{Kind: EventProcessorStarted})
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ctx := context.Background()
	id, events := b.Subscribe(ctx, TopicGlobal)
	b.Unsubscribe(TopicGlobal, id)

	_, open := <-events
	if open {
		t.Fatal("channel still open after Unsubscribe")
	}
}

func TestBus_ContextCancelUnsubscribes(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	_, events := b.Subscribe(ctx, TopicGlobal)
	cancel()

	select {
	case _, open := <-events:
		if open {
			t.Fatal("channel delivered a value instead of closing")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for context-cancel unsubscribe")
	}
}

func TestBus_LaggingSubscriberGetsLaggedEvent(t *testing.T) {
	b := New()
	ctx := context.Background()
	_, events := b.Subscribe(ctx, TopicGlobal)

	// Fill the subscriber's buffer without draining it.
	for i := 0; i < defaultBufferSize+5; i++ {
		b.Publish(TopicGlobal, Event{Kind: EventProcessorStateChanged})
	}

	var sawLagged bool
	for i := 0; i < defaultBufferSize; i++ {
		select {
		case ev := <-events:
			if ev.Kind == EventLagged {
				sawLagged = true
			}
		default:
		}
	}
	if !sawLagged {
		t.Fatal("expected an EventLagged event after overflowing the subscriber buffer")
	}
}
