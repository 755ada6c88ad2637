package push

import (
	"context"
	"sync"
)

// Topic identifies one fan-out key. Conversation topics deliver appended
// messages; index topics deliver chat-list entry deltas for one user.
type Topic string

func ConversationTopic(conversationID string) Topic { return Topic("conv:" + conversationID) }
func IndexTopic(userID string) Topic                { return Topic("index:" + userID) }

// EventKind discriminates broker event payloads.
type EventKind string

const (
	EventSnapshot EventKind = "snapshot"
	EventMessage  EventKind = "message"
	EventEntry    EventKind = "entry"
)

// Event is one delivery on a topic. Data holds a domain value
// (message, chat-list entry, or a snapshot slice); transports encode it.
type Event struct {
	Topic Topic
	Kind  EventKind
	Data  any
}

// SnapshotFunc produces the current state of a topic for a new
// subscriber. It runs under the topic's publish lock, so every event
// published after it completes is guaranteed to reach the subscriber's
// channel: snapshot first, then deltas, nothing missed in between.
type SnapshotFunc func(ctx context.Context) ([]Event, error)

// Subscription is a live registration on one topic. Events arrives in
// publish order for that topic. The channel is closed when the
// subscription is cancelled or the subscriber falls too far behind.
type Subscription struct {
	Events <-chan Event

	topic  Topic
	id     uint64
	broker *Broker
}

// Cancel removes the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.broker.cancel(s.topic, s.id)
}

// Broker is an in-process pub/sub hub with per-topic ordering and
// snapshot-before-delta subscription semantics. Publishers never block:
// a subscriber whose buffer is full is dropped and its channel closed,
// which the transport observes as a reconnect signal.
type Broker struct {
	mu     sync.Mutex
	nextID uint64
	topics map[Topic]*topicState
}

type topicState struct {
	mu   sync.Mutex // serializes publishes and snapshot subscriptions
	subs map[uint64]chan Event
}

func NewBroker() *Broker {
	return &Broker{topics: make(map[Topic]*topicState)}
}

// Subscribe registers a subscriber on the topic. When snapshot is
// non-nil its events are delivered first, ahead of any delta published
// after the subscription took effect. buffer bounds the subscriber's
// queue; zero selects a default.
func (b *Broker) Subscribe(ctx context.Context, topic Topic, buffer int, snapshot SnapshotFunc) (*Subscription, error) {
	if buffer <= 0 {
		buffer = 64
	}

	b.mu.Lock()
	ts, ok := b.topics[topic]
	if !ok {
		ts = &topicState{subs: make(map[uint64]chan Event)}
		b.topics[topic] = ts
	}
	b.nextID++
	id := b.nextID
	b.mu.Unlock()

	ts.mu.Lock()
	var snapEvents []Event
	if snapshot != nil {
		var err error
		snapEvents, err = snapshot(ctx)
		if err != nil {
			ts.mu.Unlock()
			return nil, err
		}
	}
	// The channel must hold the snapshot outright; deltas reuse the
	// remaining capacity.
	if buffer < len(snapEvents) {
		buffer = len(snapEvents) * 2
	}
	ch := make(chan Event, buffer)
	for _, ev := range snapEvents {
		ch <- ev
	}
	ts.subs[id] = ch
	ts.mu.Unlock()

	return &Subscription{Events: ch, topic: topic, id: id, broker: b}, nil
}

// Publish delivers ev to every current subscriber of ev.Topic, in
// publish order per topic. Returns the number of subscribers reached.
func (b *Broker) Publish(ev Event) int {
	b.mu.Lock()
	ts, ok := b.topics[ev.Topic]
	b.mu.Unlock()
	if !ok {
		return 0
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	delivered := 0
	for id, ch := range ts.subs {
		select {
		case ch <- ev:
			delivered++
		default:
			// Slow consumer: drop it rather than stall the topic.
			delete(ts.subs, id)
			close(ch)
		}
	}
	return delivered
}

func (b *Broker) cancel(topic Topic, id uint64) {
	b.mu.Lock()
	ts, ok := b.topics[topic]
	b.mu.Unlock()
	if !ok {
		return
	}

	ts.mu.Lock()
	if ch, ok := ts.subs[id]; ok {
		delete(ts.subs, id)
		close(ch)
	}
	ts.mu.Unlock()
}

// Subscribers reports the current subscriber count for a topic.
func (b *Broker) Subscribers(topic Topic) int {
	b.mu.Lock()
	ts, ok := b.topics[topic]
	b.mu.Unlock()
	if !ok {
		return 0
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.subs)
}
