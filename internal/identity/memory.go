package identity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tableside.org/internal/ids"
)

// MemoryDirectory is an in-memory Directory for tests and local development.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]*User
}

var _ Directory = (*MemoryDirectory)(nil)

// NewMemoryDirectory constructs an empty MemoryDirectory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]*User)}
}

func (d *MemoryDirectory) Create(ctx context.Context, u *User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.users {
		if existing.Username == u.Username {
			return fmt.Errorf("%w: username %q", ErrAlreadyExists, u.Username)
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	cp := *u
	d.users[u.ID] = &cp
	return nil
}

func (d *MemoryDirectory) Find(ctx context.Context, id string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *u
	return &cp, nil
}

func (d *MemoryDirectory) FindByUsername(ctx context.Context, username string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: username %q", ErrNotFound, username)
}

func (d *MemoryDirectory) Exists(ctx context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.users[id]
	return ok, nil
}

func (d *MemoryDirectory) List(ctx context.Context) ([]*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]*User, 0, len(d.users))
	for _, u := range d.users {
		cp := *u
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}
