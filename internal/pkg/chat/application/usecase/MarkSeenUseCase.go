package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/toji20/HomoChat/internal/infrastructure/push"
	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	repository "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/port"
)

// MarkSeenInput identifies the single entry to flip.
type MarkSeenInput struct {
	UserID         string
	ConversationID string
}

// MarkSeenUseCase sets is_seen on exactly one chat-index entry — the
// one the user just opened — and notifies that user's index
// subscribers (their other devices) so the unread highlight clears
// everywhere. No other entry is touched.
type MarkSeenUseCase struct {
	Repo   repository.ChatRepository
	Broker *push.Broker
}

func NewMarkSeenUseCase(repo repository.ChatRepository, broker *push.Broker) *MarkSeenUseCase {
	return &MarkSeenUseCase{Repo: repo, Broker: broker}
}

func (uc *MarkSeenUseCase) Execute(ctx context.Context, in MarkSeenInput) error {
	if in.UserID == "" || in.ConversationID == "" {
		return fmt.Errorf("user_id and conversation_id are required")
	}

	if err := uc.Repo.MarkSeen(ctx, in.UserID, in.ConversationID); err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return chat.ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if uc.Broker != nil {
		// Republish the updated entry so other devices converge.
		entries, err := uc.Repo.ListEntries(ctx, in.UserID)
		if err == nil {
			for _, e := range entries {
				if e.ConversationID == in.ConversationID {
					uc.Broker.Publish(push.Event{Topic: push.IndexTopic(in.UserID), Kind: push.EventEntry, Data: e})
					break
				}
			}
		}
	}
	return nil
}
