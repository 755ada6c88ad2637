package chat

import (
	"strings"
	"time"
)

// Conversation is a 1:1 thread between exactly two participants.
// PairKey is derived from the unordered participant pair and carries a
// uniqueness constraint, so repeated open attempts for the same pair
// resolve to the same conversation.
type Conversation struct {
	ID           string    `db:"id"`
	PairKey      string    `db:"pair_key"`
	ParticipantA string    `db:"participant_a"`
	ParticipantB string    `db:"participant_b"`
	LastSeq      int64     `db:"last_seq"`
	CreatedAt    time.Time `db:"created_at"`
}

// PairKey builds the canonical key for an unordered participant pair.
func PairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + ":" + b
}

// Counterpart returns the other participant, or "" if userID is not a member.
func (c *Conversation) Counterpart(userID string) string {
	switch userID {
	case c.ParticipantA:
		return c.ParticipantB
	case c.ParticipantB:
		return c.ParticipantA
	}
	return ""
}

// HasParticipant tells whether userID is part of this conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (userID == c.ParticipantA || userID == c.ParticipantB)
}
