package chat

import (
	"strings"
	"time"
)

// Message is an immutable log entry in a conversation. Seq is assigned by
// the repository at append time and is the authoritative ordering key;
// CreatedAt is informational and must not be used for ordering.
type Message struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	Seq            int64     `db:"seq"`
	Body           *string   `db:"body"`
	AttachmentURL  *string   `db:"attachment_url"`
	CreatedAt      time.Time `db:"created_at"`
}

// NewMessage validates and normalizes a message prior to persistence.
// The body is trimmed; an all-whitespace body counts as absent. At least
// one of body or attachment must be present.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID == "" || m.SenderID == "" {
		return nil, ErrNotFound
	}

	if m.Body != nil {
		trimmed := strings.TrimSpace(*m.Body)
		if trimmed == "" {
			m.Body = nil
		} else {
			m.Body = &trimmed
		}
	}

	if m.Body == nil && m.AttachmentURL == nil {
		return nil, ErrEmptyMessage
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	return &m, nil
}

// Preview is the one-line projection of this message for chat lists.
// Attachment-only messages render as the "Image" sentinel.
func (m *Message) Preview() string {
	if m.Body != nil {
		return *m.Body
	}
	return ImagePreview
}

// ImagePreview is the lastMessage sentinel for attachment-only messages.
const ImagePreview = "Image"
