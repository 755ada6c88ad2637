package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	repository "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/port"
)

// OpenViewInput identifies the user session selecting a conversation.
type OpenViewInput struct {
	ConversationID string
	UserID         string
}

// OpenViewUseCase verifies membership and constructs a fresh
// ConversationView with the block flags read at selection time. Every
// selection builds a new view value, so flags from a previously open
// conversation can never leak into this one.
type OpenViewUseCase struct {
	Repo repository.ChatRepository
}

func NewOpenViewUseCase(repo repository.ChatRepository) *OpenViewUseCase {
	return &OpenViewUseCase{Repo: repo}
}

func (uc *OpenViewUseCase) Execute(ctx context.Context, in OpenViewInput) (*chat.ConversationView, error) {
	if in.ConversationID == "" || in.UserID == "" {
		return nil, fmt.Errorf("conversation_id and user_id are required")
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return nil, chat.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !conv.HasParticipant(in.UserID) {
		return nil, chat.ErrNotParticipant
	}
	counterpart := conv.Counterpart(in.UserID)

	blockedPeer, err := uc.Repo.IsBlocked(ctx, in.UserID, counterpart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	blockedByPeer, err := uc.Repo.IsBlocked(ctx, counterpart, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return chat.NewConversationView(conv.ID, counterpart, chat.BlockStatus{
		BlockedPeer:   blockedPeer,
		BlockedByPeer: blockedByPeer,
	}), nil
}
