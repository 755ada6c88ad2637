package adapter

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	repository "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/port"
)

// MemChatRepository is an in-memory ChatRepository used by tests and by
// the dev mode of the API binary. Entries are stored per (user,
// conversation) key, so concurrent upserts and seen-flips on different
// keys never observe each other, mirroring the per-row semantics of the
// Postgres adapter.
type MemChatRepository struct {
	mu            sync.RWMutex
	conversations map[string]*chat.Conversation            // id -> conversation
	byPair        map[string]string                        // pair key -> id
	logs          map[string][]chat.Message                // id -> append-only log
	entries       map[string]map[string]chat.ChatListEntry // userID -> conversationID -> entry
	blocks        map[string]map[string]bool               // ownerID -> targetID
}

func NewMemChatRepository() *MemChatRepository {
	return &MemChatRepository{
		conversations: make(map[string]*chat.Conversation),
		byPair:        make(map[string]string),
		logs:          make(map[string][]chat.Message),
		entries:       make(map[string]map[string]chat.ChatListEntry),
		blocks:        make(map[string]map[string]bool),
	}
}

var _ repository.ChatRepository = (*MemChatRepository)(nil)

func (r *MemChatRepository) OpenConversation(ctx context.Context, a, b string) (*chat.Conversation, bool, error) {
	if a == "" || b == "" {
		return nil, false, chat.ErrNotFound
	}
	if a == b {
		return nil, false, chat.ErrSelfChat
	}
	key := chat.PairKey(a, b)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPair[key]; ok {
		cp := *r.conversations[id]
		return &cp, false, nil
	}

	first, second := a, b
	if key != a+":"+b {
		first, second = b, a
	}
	conv := &chat.Conversation{
		ID:           uuid.NewString(),
		PairKey:      key,
		ParticipantA: first,
		ParticipantB: second,
		CreatedAt:    time.Now().UTC(),
	}
	r.conversations[conv.ID] = conv
	r.byPair[key] = conv.ID

	for _, e := range [2]chat.ChatListEntry{
		{UserID: first, ConversationID: conv.ID, CounterpartID: second, IsSeen: true, UpdatedAt: conv.CreatedAt},
		{UserID: second, ConversationID: conv.ID, CounterpartID: first, IsSeen: true, UpdatedAt: conv.CreatedAt},
	} {
		r.putEntryLocked(e)
	}

	cp := *conv
	return &cp, true, nil
}

func (r *MemChatRepository) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.conversations[id]
	if !ok {
		return nil, chat.ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (r *MemChatRepository) AppendMessage(ctx context.Context, m chat.Message) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[m.ConversationID]
	if !ok {
		return nil, chat.ErrNotFound
	}

	conv.LastSeq++
	m.Seq = conv.LastSeq
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	r.logs[conv.ID] = append(r.logs[conv.ID], m)

	cp := m
	return &cp, nil
}

func (r *MemChatRepository) Messages(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.conversations[conversationID]; !ok {
		return nil, chat.ErrNotFound
	}
	var out []chat.Message
	for _, m := range r.logs[conversationID] {
		if m.Seq > afterSeq {
			out = append(out, m)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *MemChatRepository) UpsertEntry(ctx context.Context, e chat.ChatListEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putEntryLocked(e)
	return nil
}

func (r *MemChatRepository) MarkSeen(ctx context.Context, userID, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byConv, ok := r.entries[userID]
	if !ok {
		return chat.ErrNotFound
	}
	e, ok := byConv[conversationID]
	if !ok {
		return chat.ErrNotFound
	}
	e.IsSeen = true
	byConv[conversationID] = e
	return nil
}

func (r *MemChatRepository) ListEntries(ctx context.Context, userID string) ([]chat.ChatListEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byConv := r.entries[userID]
	out := make([]chat.ChatListEntry, 0, len(byConv))
	for _, e := range byConv {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *MemChatRepository) SetBlock(ctx context.Context, ownerID, targetID string, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if blocked {
		set, ok := r.blocks[ownerID]
		if !ok {
			set = make(map[string]bool)
			r.blocks[ownerID] = set
		}
		set[targetID] = true
		return nil
	}
	delete(r.blocks[ownerID], targetID)
	return nil
}

func (r *MemChatRepository) IsBlocked(ctx context.Context, ownerID, targetID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.blocks[ownerID][targetID], nil
}

func (r *MemChatRepository) putEntryLocked(e chat.ChatListEntry) {
	byConv, ok := r.entries[e.UserID]
	if !ok {
		byConv = make(map[string]chat.ChatListEntry)
		r.entries[e.UserID] = byConv
	}
	byConv[e.ConversationID] = e
}
