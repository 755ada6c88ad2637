package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/toji20/HomoChat/internal/infrastructure/push"
)

type recordedEvent struct {
	userID string
	ev     push.Event
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) sink(userID string, ev push.Event) {
	r.mu.Lock()
	r.events = append(r.events, recordedEvent{userID: userID, ev: ev})
	r.mu.Unlock()
}

func (r *recorder) snapshot() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func (r *recorder) waitFor(t *testing.T, n int) []recordedEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if evs := r.snapshot(); len(evs) >= n {
			return evs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events (have %d)", n, len(r.snapshot()))
	return nil
}

func staticSnapshot(data string) func(userID string) push.SnapshotFunc {
	return func(userID string) push.SnapshotFunc {
		return func(ctx context.Context) ([]push.Event, error) {
			return []push.Event{{Topic: push.IndexTopic(userID), Kind: push.EventSnapshot, Data: data + ":" + userID}}, nil
		}
	}
}

func TestWatcherSnapshotThenDeltas(t *testing.T) {
	t.Parallel()

	broker := push.NewBroker()
	rec := &recorder{}
	w := NewWatcher(broker, staticSnapshot("snap"), rec.sink, nil)

	provider := NewChanProvider()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { defer close(done); _ = w.Run(ctx, provider) }()

	provider.Emit("alice")
	rec.waitFor(t, 1) // the subscription is live once the snapshot landed

	broker.Publish(push.Event{Topic: push.IndexTopic("alice"), Kind: push.EventEntry, Data: "delta-1"})

	evs := rec.waitFor(t, 2)
	if evs[0].ev.Kind != push.EventSnapshot || evs[0].ev.Data != "snap:alice" {
		t.Fatalf("first event = %+v, want snapshot", evs[0])
	}
	if evs[1].ev.Kind != push.EventEntry || evs[1].ev.Data != "delta-1" {
		t.Fatalf("second event = %+v, want delta", evs[1])
	}

	provider.Close()
	<-done
}

func TestWatcherSwitchesUsers(t *testing.T) {
	t.Parallel()

	broker := push.NewBroker()
	rec := &recorder{}
	w := NewWatcher(broker, staticSnapshot("snap"), rec.sink, nil)

	provider := NewChanProvider()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { defer close(done); _ = w.Run(ctx, provider) }()

	provider.Emit("alice")
	rec.waitFor(t, 1)
	provider.Emit("bob")
	rec.waitFor(t, 2)

	// After the switch alice's topic has no subscriber left; bob's does.
	if n := broker.Subscribers(push.IndexTopic("alice")); n != 0 {
		t.Fatalf("alice still has %d subscribers after sign-out", n)
	}
	if n := broker.Subscribers(push.IndexTopic("bob")); n != 1 {
		t.Fatalf("bob has %d subscribers, want 1", n)
	}

	// Events for the old user no longer reach the sink.
	broker.Publish(push.Event{Topic: push.IndexTopic("alice"), Kind: push.EventEntry, Data: "stale"})
	broker.Publish(push.Event{Topic: push.IndexTopic("bob"), Kind: push.EventEntry, Data: "fresh"})

	evs := rec.waitFor(t, 3)
	for _, e := range evs {
		if e.ev.Data == "stale" {
			t.Fatal("event for the previous user leaked into the sink")
		}
	}
	last := evs[len(evs)-1]
	if last.userID != "bob" || last.ev.Data != "fresh" {
		t.Fatalf("last event = %+v", last)
	}

	provider.Close()
	<-done
}

func TestWatcherSignOutCancelsSubscription(t *testing.T) {
	t.Parallel()

	broker := push.NewBroker()
	rec := &recorder{}
	w := NewWatcher(broker, staticSnapshot("snap"), rec.sink, nil)

	provider := NewChanProvider()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { defer close(done); _ = w.Run(ctx, provider) }()

	provider.Emit("alice")
	rec.waitFor(t, 1)
	provider.Emit("") // signed out

	deadline := time.Now().Add(2 * time.Second)
	for broker.Subscribers(push.IndexTopic("alice")) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription survived sign-out")
		}
		time.Sleep(5 * time.Millisecond)
	}

	provider.Close()
	<-done
}
