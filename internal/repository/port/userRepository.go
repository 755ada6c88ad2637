package repository

import (
	"context"
	"errors"
)

// User is the public profile of a registered user. Registration and
// credential verification happen outside this service; this repository
// only reads profiles and updates the avatar reference.
type User struct {
	ID        string `db:"id"`
	Username  string `db:"username"`
	AvatarURL string `db:"avatar_url"`
}

// ErrUserNotFound is returned for unknown user ids or usernames.
var ErrUserNotFound = errors.New("user: not found")

// UserRepository defines the profile-store contract.
type UserRepository interface {
	// GetProfile fetches a profile by user id.
	GetProfile(ctx context.Context, id string) (*User, error)

	// FindByUsername performs an exact-match lookup (usernames are unique).
	FindByUsername(ctx context.Context, username string) (*User, error)

	// UpdateAvatar replaces the avatar reference for the user.
	UpdateAvatar(ctx context.Context, id string, avatarURL string) error
}
