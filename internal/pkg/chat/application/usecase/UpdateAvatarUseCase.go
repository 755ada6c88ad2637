package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	"github.com/toji20/HomoChat/internal/pkg/media"
	userport "github.com/toji20/HomoChat/internal/repository/port"
)

// UpdateAvatarInput carries the raw image selected by the user.
type UpdateAvatarInput struct {
	UserID   string
	Filename string
	Data     []byte
}

// UpdateAvatarUseCase stages the image for immediate preview, resolves
// it through the blob store, and only then persists the new avatar
// reference. A failed upload aborts the change; nothing is retried
// silently.
type UpdateAvatarUseCase struct {
	Users userport.UserRepository
	Media *media.Coordinator
}

func NewUpdateAvatarUseCase(users userport.UserRepository, coordinator *media.Coordinator) *UpdateAvatarUseCase {
	return &UpdateAvatarUseCase{Users: users, Media: coordinator}
}

func (uc *UpdateAvatarUseCase) Execute(ctx context.Context, in UpdateAvatarInput) (avatarURL string, err error) {
	if in.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}

	staged, err := uc.Media.StageLocal(in.Filename, in.Data)
	if err != nil {
		return "", err
	}
	url, err := uc.Media.Resolve(ctx, staged)
	if err != nil {
		return "", err // media.ErrUploadFailed
	}

	if err := uc.Users.UpdateAvatar(ctx, in.UserID, url); err != nil {
		if errors.Is(err, userport.ErrUserNotFound) {
			return "", chat.ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return url, nil
}
