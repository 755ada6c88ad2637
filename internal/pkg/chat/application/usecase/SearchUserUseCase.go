package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	userport "github.com/toji20/HomoChat/internal/repository/port"
)

// SearchUserInput is an exact-username lookup from the add-user dialog.
type SearchUserInput struct {
	Username string
}

// SearchUserUseCase resolves a username to a public profile.
type SearchUserUseCase struct {
	Users userport.UserRepository
}

func NewSearchUserUseCase(users userport.UserRepository) *SearchUserUseCase {
	return &SearchUserUseCase{Users: users}
}

func (uc *SearchUserUseCase) Execute(ctx context.Context, in SearchUserInput) (*userport.User, error) {
	if in.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	u, err := uc.Users.FindByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, userport.ErrUserNotFound) {
			return nil, chat.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return u, nil
}
