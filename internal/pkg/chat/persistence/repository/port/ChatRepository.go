package repository

import (
	"context"

	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
)

// ChatRepository defines persistence operations for the chat domain:
// the conversation log, the per-user chat index, and the block relation.
//
// Contract notes:
//   - OpenConversation is idempotent on the unordered pair and creates the
//     conversation together with both participants' index entries.
//   - AppendMessage assigns the server-side monotonic Seq; appends to the
//     same conversation are serialized by the adapter.
//   - UpsertEntry and MarkSeen are per-key writes. Adapters must never
//     implement them as read-whole-collection/write-whole-collection.
type ChatRepository interface {
	// OpenConversation returns the conversation for the unordered pair
	// (a, b), creating it and both ChatListEntry records atomically if it
	// does not exist yet. created reports whether this call created it.
	OpenConversation(ctx context.Context, a, b string) (conv *chat.Conversation, created bool, err error)

	// GetConversation fetches a conversation by id. Returns
	// chat.ErrNotFound for unknown ids.
	GetConversation(ctx context.Context, id string) (*chat.Conversation, error)

	// AppendMessage durably appends m to its conversation's log, assigning
	// ID, Seq and CreatedAt. Returns chat.ErrNotFound for unknown
	// conversations.
	AppendMessage(ctx context.Context, m chat.Message) (*chat.Message, error)

	// Messages returns messages with Seq > afterSeq in ascending Seq
	// order, at most limit (adapter default when limit <= 0).
	Messages(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]chat.Message, error)

	// UpsertEntry inserts or replaces the single entry keyed by
	// (e.UserID, e.ConversationID).
	UpsertEntry(ctx context.Context, e chat.ChatListEntry) error

	// MarkSeen sets is_seen on exactly one entry, leaving every other
	// field and entry untouched. Returns chat.ErrNotFound when the entry
	// does not exist.
	MarkSeen(ctx context.Context, userID, conversationID string) error

	// ListEntries returns the user's entries ordered by UpdatedAt
	// descending.
	ListEntries(ctx context.Context, userID string) ([]chat.ChatListEntry, error)

	// SetBlock adds (blocked=true) or removes (blocked=false) the directed
	// edge owner -> target. Both operations are idempotent.
	SetBlock(ctx context.Context, ownerID, targetID string, blocked bool) error

	// IsBlocked reports whether owner currently blocks target.
	IsBlocked(ctx context.Context, ownerID, targetID string) (bool, error)
}
