package adapter

import (
	"context"
	"sync"

	repository "github.com/toji20/HomoChat/internal/repository/port"
)

// MemUserRepository is an in-memory UserRepository for tests and dev mode.
type MemUserRepository struct {
	mu     sync.RWMutex
	byID   map[string]repository.User
	byName map[string]string // username -> id
}

func NewMemUserRepository(users ...repository.User) *MemUserRepository {
	r := &MemUserRepository{
		byID:   make(map[string]repository.User),
		byName: make(map[string]string),
	}
	for _, u := range users {
		r.Put(u)
	}
	return r
}

var _ repository.UserRepository = (*MemUserRepository)(nil)

// Put registers or replaces a user. Registration itself is out of scope
// for the service; tests use this to seed profiles.
func (r *MemUserRepository) Put(u repository.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	r.byName[u.Username] = u.ID
}

func (r *MemUserRepository) GetProfile(ctx context.Context, id string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *MemUserRepository) FindByUsername(ctx context.Context, username string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *MemUserRepository) UpdateAvatar(ctx context.Context, id string, avatarURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.AvatarURL = avatarURL
	r.byID[id] = u
	return nil
}
