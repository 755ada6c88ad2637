package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/toji20/HomoChat/internal/infrastructure/push"
)

// Provider is the external credential/session collaborator. Changes
// emits the current user id on every session transition; an empty
// string means signed out. The channel is closed when the provider
// shuts down.
type Provider interface {
	Changes() <-chan string
}

// ChanProvider is the trivial Provider backed by a channel, used by
// embedding hosts and tests.
type ChanProvider struct {
	ch chan string
}

func NewChanProvider() *ChanProvider {
	return &ChanProvider{ch: make(chan string, 8)}
}

func (p *ChanProvider) Changes() <-chan string { return p.ch }

// Emit publishes a session transition.
func (p *ChanProvider) Emit(userID string) { p.ch <- userID }

// Close ends the stream.
func (p *ChanProvider) Close() { close(p.ch) }

// Sink receives index events for the currently signed-in user.
type Sink func(userID string, ev push.Event)

// Watcher follows session transitions: on every change it tears down
// the previous user's chat-index subscription and opens one for the new
// user, delivering the snapshot first and deltas after. One Watcher
// serves one client session (e.g. one device).
type Watcher struct {
	broker      *push.Broker
	snapshotFor func(userID string) push.SnapshotFunc
	sink        Sink
	log         *zap.Logger
}

func NewWatcher(broker *push.Broker, snapshotFor func(userID string) push.SnapshotFunc, sink Sink, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{broker: broker, snapshotFor: snapshotFor, sink: sink, log: log}
}

// Run blocks until the provider closes or ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, provider Provider) error {
	var current *push.Subscription
	defer func() {
		if current != nil {
			current.Cancel()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case userID, ok := <-provider.Changes():
			if !ok {
				return nil
			}
			if current != nil {
				current.Cancel()
				current = nil
			}
			if userID == "" {
				continue
			}

			sub, err := w.broker.Subscribe(ctx, push.IndexTopic(userID), 0, w.snapshotFor(userID))
			if err != nil {
				w.log.Warn("index subscription failed", zap.String("user_id", userID), zap.Error(err))
				continue
			}
			current = sub
			go w.forward(userID, sub)
		}
	}
}

func (w *Watcher) forward(userID string, sub *push.Subscription) {
	for ev := range sub.Events {
		w.sink(userID, ev)
	}
}
