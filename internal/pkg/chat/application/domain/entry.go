package chat

import "time"

// ChatListEntry is the per-user denormalized projection of one
// conversation: who the counterpart is, what was said last, whether the
// owner has seen it, and how fresh it is.
// Primary key: (UserID, ConversationID). Entries are only ever written
// through per-key upserts; the owning collection is never replaced
// wholesale (that loses concurrent updates from the user's other
// devices).
type ChatListEntry struct {
	UserID         string    `db:"user_id"`
	ConversationID string    `db:"conversation_id"`
	CounterpartID  string    `db:"counterpart_id"`
	LastMessage    string    `db:"last_message"`
	IsSeen         bool      `db:"is_seen"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// EntriesOnSend produces the two entries a committed message projects to:
// the sender's (seen) and the counterpart's (unseen). Both share the same
// preview and timestamp so the owners converge on identical values.
func EntriesOnSend(conv *Conversation, msg *Message) [2]ChatListEntry {
	preview := msg.Preview()
	counterpart := conv.Counterpart(msg.SenderID)
	return [2]ChatListEntry{
		{
			UserID:         msg.SenderID,
			ConversationID: conv.ID,
			CounterpartID:  counterpart,
			LastMessage:    preview,
			IsSeen:         true,
			UpdatedAt:      msg.CreatedAt,
		},
		{
			UserID:         counterpart,
			ConversationID: conv.ID,
			CounterpartID:  msg.SenderID,
			LastMessage:    preview,
			IsSeen:         false,
			UpdatedAt:      msg.CreatedAt,
		},
	}
}
