package chat

import "strings"

// ViewState models the lifecycle of one open conversation view.
type ViewState int

const (
	ViewIdle       ViewState = iota // no conversation selected
	ViewSubscribed                  // live conversation open, listening
	ViewSending                     // a send round-trip is in flight
)

// ConversationView is the per-open-view value object. A fresh view is
// constructed every time a conversation is selected, with the block
// flags read from the Block Relation Store at that moment; flags are
// never carried over from a previously selected conversation.
type ConversationView struct {
	ConversationID string
	CounterpartID  string
	State          ViewState
	Blocks         BlockStatus
}

// NewConversationView opens a view in the Subscribed state.
func NewConversationView(conversationID, counterpartID string, blocks BlockStatus) *ConversationView {
	return &ConversationView{
		ConversationID: conversationID,
		CounterpartID:  counterpartID,
		State:          ViewSubscribed,
		Blocks:         blocks,
	}
}

// CanCompose reports whether the composer should be enabled.
func (v *ConversationView) CanCompose() bool {
	return v.State != ViewIdle && v.Blocks.Composable()
}

// BeginSend validates the payload and moves the view to Sending.
// The message itself travels through the synchronization engine; the
// view only tracks the in-flight state.
func (v *ConversationView) BeginSend(body *string, attachmentURL *string) error {
	switch v.State {
	case ViewIdle:
		return ErrNotSubscribed
	case ViewSending:
		return ErrSendInFlight
	}
	if !v.Blocks.Composable() {
		return ErrBlocked
	}

	hasBody := body != nil && strings.TrimSpace(*body) != ""
	if !hasBody && attachmentURL == nil {
		return ErrEmptyMessage
	}

	v.State = ViewSending
	return nil
}

// FinishSend returns the view to Subscribed after a durable append.
func (v *ConversationView) FinishSend() {
	if v.State == ViewSending {
		v.State = ViewSubscribed
	}
}

// FailSend reverts to Subscribed; the failed message is not retried and
// the caller surfaces the error to the user.
func (v *ConversationView) FailSend() {
	if v.State == ViewSending {
		v.State = ViewSubscribed
	}
}

// Close returns the view to Idle, detaching it from the conversation.
func (v *ConversationView) Close() {
	v.State = ViewIdle
	v.ConversationID = ""
	v.CounterpartID = ""
	v.Blocks = BlockStatus{}
}
