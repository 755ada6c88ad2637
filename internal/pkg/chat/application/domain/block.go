package chat

import "time"

// Block is a directed suppression edge: OwnerID has blocked TargetID.
// The relation is asymmetric; both directions are evaluated separately
// when gating a send or rendering an open conversation.
type Block struct {
	OwnerID   string    `db:"owner_id"`
	TargetID  string    `db:"target_id"`
	CreatedAt time.Time `db:"created_at"`
}

// BlockStatus carries both block directions as seen from one user.
type BlockStatus struct {
	BlockedPeer   bool // the viewer blocked the counterpart (reversible via unblock)
	BlockedByPeer bool // the counterpart blocked the viewer (terminal from this side)
}

// Composable reports whether the viewer may compose messages.
func (s BlockStatus) Composable() bool {
	return !s.BlockedPeer && !s.BlockedByPeer
}
