package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	repository "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/port"
)

// PgChatRepository persists the conversation log, the chat index and the
// block relation in Postgres.
//
// Expected schema (schema "chat"):
//
//	conversation(id uuid pk, pair_key text unique, participant_a uuid,
//	             participant_b uuid, last_seq bigint, created_at timestamptz)
//	message(id uuid pk, conversation_id uuid, sender_id uuid, seq bigint,
//	        body text, attachment_url text, created_at timestamptz,
//	        unique(conversation_id, seq))
//	chat_list_entry(user_id uuid, conversation_id uuid, counterpart_id uuid,
//	                last_message text, is_seen bool, updated_at timestamptz,
//	                primary key(user_id, conversation_id))
//	block(owner_id uuid, target_id uuid, created_at timestamptz,
//	      primary key(owner_id, target_id))
type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

func (r *PgChatRepository) OpenConversation(ctx context.Context, a, b string) (*chat.Conversation, bool, error) {
	if r == nil || r.pool == nil {
		return nil, false, errors.New("PgChatRepository: nil pool")
	}
	if a == "" || b == "" {
		return nil, false, chat.ErrNotFound
	}
	if a == b {
		return nil, false, chat.ErrSelfChat
	}
	// Store participants in pair-key order so concurrent opens from either
	// side race on the same row.
	first, second := a, b
	if chat.PairKey(a, b) != a+":"+b {
		first, second = b, a
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	conv := chat.Conversation{
		PairKey:      chat.PairKey(a, b),
		ParticipantA: first,
		ParticipantB: second,
		CreatedAt:    now,
	}

	created := true
	err = tx.QueryRow(ctx, `
		INSERT INTO chat.conversation (pair_key, participant_a, participant_b, last_seq, created_at)
		VALUES ($1, $2::uuid, $3::uuid, 0, $4)
		ON CONFLICT (pair_key) DO NOTHING
		RETURNING id::text
	`, conv.PairKey, first, second, now).Scan(&conv.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race or the pair already talked; reuse the existing row.
		created = false
		err = tx.QueryRow(ctx, `
			SELECT id::text, participant_a::text, participant_b::text, last_seq, created_at
			FROM chat.conversation
			WHERE pair_key = $1
		`, conv.PairKey).Scan(&conv.ID, &conv.ParticipantA, &conv.ParticipantB, &conv.LastSeq, &conv.CreatedAt)
	}
	if err != nil {
		return nil, false, err
	}

	if created {
		for _, e := range [2]chat.ChatListEntry{
			{UserID: first, ConversationID: conv.ID, CounterpartID: second, IsSeen: true, UpdatedAt: now},
			{UserID: second, ConversationID: conv.ID, CounterpartID: first, IsSeen: true, UpdatedAt: now},
		} {
			if _, err := tx.Exec(ctx, `
				INSERT INTO chat.chat_list_entry (user_id, conversation_id, counterpart_id, last_message, is_seen, updated_at)
				VALUES ($1::uuid, $2::uuid, $3::uuid, '', $4, $5)
				ON CONFLICT (user_id, conversation_id) DO NOTHING
			`, e.UserID, e.ConversationID, e.CounterpartID, e.IsSeen, e.UpdatedAt); err != nil {
				return nil, false, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return &conv, created, nil
}

func (r *PgChatRepository) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	var conv chat.Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, pair_key, participant_a::text, participant_b::text, last_seq, created_at
		FROM chat.conversation
		WHERE id = $1::uuid
	`, id).Scan(&conv.ID, &conv.PairKey, &conv.ParticipantA, &conv.ParticipantB, &conv.LastSeq, &conv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *PgChatRepository) AppendMessage(ctx context.Context, m chat.Message) (*chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// The row lock taken by this UPDATE serializes concurrent appends to
	// the same conversation, which is what makes Seq gap-free and ordered.
	err = tx.QueryRow(ctx, `
		UPDATE chat.conversation
		SET last_seq = last_seq + 1
		WHERE id = $1::uuid
		RETURNING last_seq
	`, m.ConversationID).Scan(&m.Seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO chat.message (conversation_id, sender_id, seq, body, attachment_url, created_at)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6)
		RETURNING id::text
	`, m.ConversationID, m.SenderID, m.Seq, m.Body, m.AttachmentURL, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgChatRepository) Messages(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, seq, body, attachment_url, created_at
		FROM chat.message
		WHERE conversation_id = $1::uuid AND seq > $2
		ORDER BY seq ASC
		LIMIT $3
	`, conversationID, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var msg chat.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Seq, &msg.Body, &msg.AttachmentURL, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}

func (r *PgChatRepository) UpsertEntry(ctx context.Context, e chat.ChatListEntry) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat.chat_list_entry (user_id, conversation_id, counterpart_id, last_message, is_seen, updated_at)
		VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6)
		ON CONFLICT (user_id, conversation_id)
		DO UPDATE SET counterpart_id = EXCLUDED.counterpart_id,
		              last_message = EXCLUDED.last_message,
		              is_seen = EXCLUDED.is_seen,
		              updated_at = EXCLUDED.updated_at
	`, e.UserID, e.ConversationID, e.CounterpartID, e.LastMessage, e.IsSeen, e.UpdatedAt)
	return err
}

func (r *PgChatRepository) MarkSeen(ctx context.Context, userID, conversationID string) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.chat_list_entry
		SET is_seen = TRUE
		WHERE user_id = $1::uuid AND conversation_id = $2::uuid
	`, userID, conversationID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return chat.ErrNotFound
	}
	return nil
}

func (r *PgChatRepository) ListEntries(ctx context.Context, userID string) ([]chat.ChatListEntry, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT user_id::text, conversation_id::text, counterpart_id::text, last_message, is_seen, updated_at
		FROM chat.chat_list_entry
		WHERE user_id = $1::uuid
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []chat.ChatListEntry
	for rows.Next() {
		var e chat.ChatListEntry
		if err := rows.Scan(&e.UserID, &e.ConversationID, &e.CounterpartID, &e.LastMessage, &e.IsSeen, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

func (r *PgChatRepository) SetBlock(ctx context.Context, ownerID, targetID string, blocked bool) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	if blocked {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO chat.block (owner_id, target_id, created_at)
			VALUES ($1::uuid, $2::uuid, $3)
			ON CONFLICT (owner_id, target_id) DO NOTHING
		`, ownerID, targetID, time.Now().UTC())
		return err
	}
	_, err := r.pool.Exec(ctx, `
		DELETE FROM chat.block
		WHERE owner_id = $1::uuid AND target_id = $2::uuid
	`, ownerID, targetID)
	return err
}

func (r *PgChatRepository) IsBlocked(ctx context.Context, ownerID, targetID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgChatRepository: nil pool")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat.block WHERE owner_id = $1::uuid AND target_id = $2::uuid
		)
	`, ownerID, targetID).Scan(&exists)
	return exists, err
}
