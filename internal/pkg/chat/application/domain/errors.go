package chat

import "errors"

// Domain-level errors for chat behaviors
var (
	ErrNotFound       = errors.New("chat: conversation or user not found")
	ErrNotParticipant = errors.New("chat: user is not a participant in the conversation")
	ErrBlocked        = errors.New("chat: message not allowed because one of the parties is blocked")
	ErrEmptyMessage   = errors.New("chat: empty message (no body or attachment)")
	ErrSelfChat       = errors.New("chat: cannot open a conversation with yourself")
	ErrNotSubscribed  = errors.New("chat: view is not subscribed to a conversation")
	ErrSendInFlight   = errors.New("chat: a send is already in flight for this view")
)
