package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	repository "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/port"
)

// GetMessageInput carries parameters to fetch messages of a conversation.
// AfterSeq supports incremental reads: a reconnecting client passes the
// last sequence number it saw and receives only what it missed.
type GetMessageInput struct {
	ConversationID string
	AfterSeq       int64
	Limit          int
}

// GetMessageUseCase fetches messages for a given conversation in
// ascending sequence order.
type GetMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewGetMessageUseCase(repo repository.ChatRepository) *GetMessageUseCase {
	return &GetMessageUseCase{Repo: repo}
}

func (uc *GetMessageUseCase) Execute(ctx context.Context, in GetMessageInput) ([]chat.Message, error) {
	if in.ConversationID == "" {
		return nil, fmt.Errorf("conversationId is required")
	}

	var msgs []chat.Message
	err := backoff.Retry(func() error {
		var err error
		msgs, err = uc.Repo.Messages(ctx, in.ConversationID, in.AfterSeq, in.Limit)
		if errors.Is(err, chat.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}, readBackoff(ctx))
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return nil, chat.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}
