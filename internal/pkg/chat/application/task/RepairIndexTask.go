package task

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/toji20/HomoChat/internal/infrastructure/push"
	qport "github.com/toji20/HomoChat/internal/infrastructure/queue/port"
	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	"github.com/toji20/HomoChat/internal/pkg/chat/application/usecase"
	repository "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/port"
)

// RegisterRepairIndexTask binds the index-repair handler to the queue
// server. The handler re-derives one user's ChatListEntry for one
// conversation from the conversation log — the log is the source of
// truth, the index converges to it. The handler is idempotent, so asynq
// retries (and at-least-once delivery) are safe.
func RegisterRepairIndexTask(srv qport.Server, repo repository.ChatRepository, broker *push.Broker) {
	srv.Register(usecase.RepairIndexTaskType, func(ctx context.Context, t qport.Task) error {
		var p usecase.RepairIndexPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// Malformed payload will never become valid; drop it.
			return nil
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		entry, err := deriveEntry(ctx, repo, p.ConversationID, p.UserID)
		if err != nil {
			if errors.Is(err, chat.ErrNotFound) || errors.Is(err, chat.ErrNotParticipant) {
				return nil // nothing to repair
			}
			return err // retry per queue policy
		}

		if err := repo.UpsertEntry(ctx, *entry); err != nil {
			return err
		}
		if broker != nil {
			broker.Publish(push.Event{Topic: push.IndexTopic(p.UserID), Kind: push.EventEntry, Data: *entry})
		}
		return nil
	})
}

// deriveEntry rebuilds the entry from the last committed message. The
// seen flag is re-derived from the last sender, which may undo a
// concurrent mark-seen; the next open corrects it, and losing an unread
// highlight beats losing the message preview.
func deriveEntry(ctx context.Context, repo repository.ChatRepository, conversationID, userID string) (*chat.ChatListEntry, error) {
	conv, err := repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, chat.ErrNotParticipant
	}

	entry := chat.ChatListEntry{
		UserID:         userID,
		ConversationID: conv.ID,
		CounterpartID:  conv.Counterpart(userID),
		IsSeen:         true,
		UpdatedAt:      conv.CreatedAt,
	}
	if conv.LastSeq > 0 {
		msgs, err := repo.Messages(ctx, conv.ID, conv.LastSeq-1, 1)
		if err != nil {
			return nil, err
		}
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			entry.LastMessage = last.Preview()
			entry.IsSeen = last.SenderID == userID
			entry.UpdatedAt = last.CreatedAt
		}
	}
	return &entry, nil
}
