package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	repository "github.com/toji20/HomoChat/internal/repository/port"
)

// PgUserRepository reads profiles from the chat.app_user table
// (id uuid pk, username text unique, avatar_url text).
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

var _ repository.UserRepository = (*PgUserRepository)(nil)

func (r *PgUserRepository) GetProfile(ctx context.Context, id string) (*repository.User, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgUserRepository: nil pool")
	}
	var u repository.User
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, username, COALESCE(avatar_url, '')
		FROM chat.app_user
		WHERE id = $1::uuid
	`, id).Scan(&u.ID, &u.Username, &u.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) FindByUsername(ctx context.Context, username string) (*repository.User, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgUserRepository: nil pool")
	}
	var u repository.User
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, username, COALESCE(avatar_url, '')
		FROM chat.app_user
		WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) UpdateAvatar(ctx context.Context, id string, avatarURL string) error {
	if r == nil || r.pool == nil {
		return errors.New("PgUserRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.app_user
		SET avatar_url = $2
		WHERE id = $1::uuid
	`, id, avatarURL)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}
