package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	cacheport "github.com/toji20/HomoChat/internal/infrastructure/cache/port"
	repository "github.com/toji20/HomoChat/internal/repository/port"
)

const profileTTL = 10 * time.Minute

// CachedUserRepository is a read-through cache decorator over another
// UserRepository. Chat-list hydration hits GetProfile once per
// counterpart per list render, so profiles are cached with a short TTL
// and invalidated on avatar change.
type CachedUserRepository struct {
	next  repository.UserRepository
	cache cacheport.Cache
}

func NewCachedUserRepository(next repository.UserRepository, cache cacheport.Cache) *CachedUserRepository {
	return &CachedUserRepository{next: next, cache: cache}
}

var _ repository.UserRepository = (*CachedUserRepository)(nil)

func profileKey(id string) string { return "profile:" + id }

func (r *CachedUserRepository) GetProfile(ctx context.Context, id string) (*repository.User, error) {
	if raw, err := r.cache.Get(ctx, profileKey(id)); err == nil {
		var u repository.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			return &u, nil
		}
		// Corrupt cache entry: fall through and refresh from the source.
	} else if !errors.Is(err, cacheport.ErrMiss) {
		// Cache transport errors degrade to the source, never fail the read.
		_ = err
	}

	u, err := r.next.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(u); err == nil {
		_ = r.cache.Set(ctx, profileKey(id), string(raw), profileTTL)
	}
	return u, nil
}

func (r *CachedUserRepository) FindByUsername(ctx context.Context, username string) (*repository.User, error) {
	// Username lookups back the add-user search box; they are rare enough
	// to always go to the source.
	return r.next.FindByUsername(ctx, username)
}

func (r *CachedUserRepository) UpdateAvatar(ctx context.Context, id string, avatarURL string) error {
	if err := r.next.UpdateAvatar(ctx, id, avatarURL); err != nil {
		return err
	}
	_, _ = r.cache.Del(ctx, profileKey(id))
	return nil
}
