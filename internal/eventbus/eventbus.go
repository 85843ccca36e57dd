// Package eventbus implements the topic-addressed publish/subscribe bus the
// runtime broadcasts lifecycle and processor events on. It is adapted from
// tvarr's internal/service/logs.Service: that type already keeps a
// map of subscribers each with a buffered channel plus a Done channel, and
// broadcasts with a non-blocking select/default. Bus generalizes it from
// one fixed log-entry stream to arbitrary topic strings
// (runtime:global, processor:{id}, or any caller-chosen topic), and
// reports a lagging subscriber explicitly via a Lagged value sent on its
// channel instead of silently dropping the event.
package eventbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/tatolab/streamlib/internal/ids"
)

// TopicGlobal is the conventional topic for lifecycle events not scoped to
// a single processor (ProcessorAdded/Removed, LinkAdded, runtime
// start/stop).
const TopicGlobal = "runtime:global"

// TopicProcessor is the conventional per-processor topic name.
func TopicProcessor(id ids.ID) string {
	return fmt.Sprintf("processor:%s", id)
}

// EventKind classifies an Event payload.
type EventKind int

const (
	EventProcessorAdded EventKind = iota
	EventProcessorRemoved
	EventProcessorStarted
	EventProcessorStopped
	EventProcessorStateChanged
	EventLinkAdded
	EventLinkRemoved
	EventConfigUpdated
	// EventLagged is synthesized by Bus itself (never published by callers)
	// the first time a subscriber's buffer is found full since an event was
	// last delivered to it, reporting how many events were dropped at that
	// point. Further drops in the same overflow are not reported.
	EventLagged
)

func (k EventKind) String() string {
	switch k {
	case EventProcessorAdded:
		return "processor_added"
	case EventProcessorRemoved:
		return "processor_removed"
	case EventProcessorStarted:
		return "processor_started"
	case EventProcessorStopped:
		return "processor_stopped"
	case EventProcessorStateChanged:
		return "processor_state_changed"
	case EventLinkAdded:
		return "link_added"
	case EventLinkRemoved:
		return "link_removed"
	case EventConfigUpdated:
		return "config_updated"
	case EventLagged:
		return "lagged"
	default:
		return "unknown"
	}
}

// Event is one message delivered to subscribers of a topic.
type Event struct {
	Kind        EventKind
	ProcessorID ids.ID
	LinkID      ids.ID
	Reason      string
	// Lagged is the number of events this subscriber missed, populated only
	// when Kind == EventLagged.
	Lagged int
}

// subscriber is one open subscription to a topic.
type subscriber struct {
	events chan Event
	done   chan struct{}
	lagged int
}

const defaultBufferSize = 64

// Bus is a topic-addressed, fire-and-forget publisher. Publish never
// blocks: a full subscriber channel is reported to that subscriber via a
// single EventLagged event rather than silently dropped, the first time
// its buffer is found full since an event was last delivered to it.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[string]*subscriber
	next uint64
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string]map[string]*subscriber)}
}

// Subscribe returns a fresh receiver for topic. The subscription is torn
// down automatically when ctx is done or Unsubscribe is called with the
// returned id.
func (b *Bus) Subscribe(ctx context.Context, topic string) (id string, events <-chan Event) {
	b.mu.Lock()
	b.next++
	subID := fmt.Sprintf("sub-%d", b.next)
	sub := &subscriber{
		events: make(chan Event, defaultBufferSize),
		done:   make(chan struct{}),
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[string]*subscriber)
	}
	b.subs[topic][subID] = sub
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-sub.done:
		}
		b.Unsubscribe(topic, subID)
	}()

	return subID, sub.events
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.subs[topic]
	if !ok {
		return
	}
	if sub, ok := subs[id]; ok {
		close(sub.events)
		delete(subs, id)
	}
	if len(subs) == 0 {
		delete(b.subs, topic)
	}
}

// Publish fans ev out to every current subscriber of topic. Delivery is
// non-blocking per subscriber: a full channel drops ev for that subscriber
// and increments its lag counter. On the first such drop since an event
// was last delivered to it, the oldest buffered event is evicted as well
// and an EventLagged event takes its place (also non-blocking, so the
// publisher never waits on a subscriber).
func (b *Bus) Publish(topic string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[topic] {
		select {
		case sub.events <- ev:
			sub.lagged = 0
		default:
			sub.lagged++
			if sub.lagged > 1 {
				continue
			}
			select {
			case <-sub.events:
				sub.lagged++
			default:
			}
			select {
			case sub.events <- Event{Kind: EventLagged, Lagged: sub.lagged}:
			default:
			}
		}
	}
}

// SubscriberCount reports the number of active subscribers on topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
