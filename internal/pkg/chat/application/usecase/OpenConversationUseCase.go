package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/toji20/HomoChat/internal/infrastructure/push"
	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	repository "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/port"
	userport "github.com/toji20/HomoChat/internal/repository/port"
)

// OpenConversationInput carries the two participants; Username, when set,
// resolves PeerID through the profile store (the add-user search flow).
type OpenConversationInput struct {
	UserID   string
	PeerID   string
	Username string
}

// OpenConversationResult reports the conversation and whether this call
// created it; repeated opens for the same pair return the existing one.
type OpenConversationResult struct {
	Conversation *chat.Conversation
	Created      bool
}

// OpenConversationUseCase opens (or returns) the conversation for an
// unordered participant pair. Creation also writes both participants'
// chat-index entries and notifies each owner's index subscribers.
type OpenConversationUseCase struct {
	Repo   repository.ChatRepository
	Users  userport.UserRepository
	Broker *push.Broker
}

func NewOpenConversationUseCase(repo repository.ChatRepository, users userport.UserRepository, broker *push.Broker) *OpenConversationUseCase {
	return &OpenConversationUseCase{Repo: repo, Users: users, Broker: broker}
}

func (uc *OpenConversationUseCase) Execute(ctx context.Context, in OpenConversationInput) (*OpenConversationResult, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	peerID := in.PeerID
	if peerID == "" && in.Username != "" {
		peer, err := uc.Users.FindByUsername(ctx, in.Username)
		if err != nil {
			if errors.Is(err, userport.ErrUserNotFound) {
				return nil, chat.ErrNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		peerID = peer.ID
	}
	if peerID == "" {
		return nil, fmt.Errorf("peer_id or username is required")
	}
	if peerID == in.UserID {
		return nil, chat.ErrSelfChat
	}

	conv, created, err := uc.Repo.OpenConversation(ctx, in.UserID, peerID)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) || errors.Is(err, chat.ErrSelfChat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if created && uc.Broker != nil {
		for _, userID := range []string{conv.ParticipantA, conv.ParticipantB} {
			entry := chat.ChatListEntry{
				UserID:         userID,
				ConversationID: conv.ID,
				CounterpartID:  conv.Counterpart(userID),
				IsSeen:         true,
				UpdatedAt:      conv.CreatedAt,
			}
			uc.Broker.Publish(push.Event{Topic: push.IndexTopic(userID), Kind: push.EventEntry, Data: entry})
		}
	}

	return &OpenConversationResult{Conversation: conv, Created: created}, nil
}
