package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	repository "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/port"
	userport "github.com/toji20/HomoChat/internal/repository/port"
)

// ListChatsInput wraps the owner of the chat list.
type ListChatsInput struct {
	UserID string
}

// ChatListItem is one hydrated chat-list row: the entry plus the
// counterpart's public profile.
type ChatListItem struct {
	Entry       chat.ChatListEntry
	Counterpart *userport.User // nil when the profile could not be resolved
}

// ListChatsUseCase returns the user's conversations ordered by
// freshness, each hydrated with the counterpart's profile. Reads are
// retried a bounded number of times with backoff; a missing profile
// degrades the row instead of failing the whole list.
type ListChatsUseCase struct {
	Repo  repository.ChatRepository
	Users userport.UserRepository
}

func NewListChatsUseCase(repo repository.ChatRepository, users userport.UserRepository) *ListChatsUseCase {
	return &ListChatsUseCase{Repo: repo, Users: users}
}

func (uc *ListChatsUseCase) Execute(ctx context.Context, in ListChatsInput) ([]ChatListItem, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	var entries []chat.ChatListEntry
	err := backoff.Retry(func() error {
		var err error
		entries, err = uc.Repo.ListEntries(ctx, in.UserID)
		return err
	}, readBackoff(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	items := make([]ChatListItem, 0, len(entries))
	for _, e := range entries {
		item := ChatListItem{Entry: e}
		profile, err := uc.Users.GetProfile(ctx, e.CounterpartID)
		if err == nil {
			item.Counterpart = profile
		} else if !errors.Is(err, userport.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// readBackoff bounds read-path retries: a few quick attempts, then give
// up and surface the failure to the caller.
func readBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	return backoff.WithContext(backoff.WithMaxRetries(b, 3), ctx)
}
