package shops

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	shops map[string]*Shop
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{shops: make(map[string]*Shop)}
}

func (m *MemoryStore) Create(ctx context.Context, s *Shop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.shops[s.ID] = &cp
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, s *Shop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shops[s.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, s.ID)
	}
	cp := *s
	m.shops[s.ID] = &cp
	return nil
}

func (m *MemoryStore) Find(ctx context.Context, id string) (*Shop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.shops[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Shop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Shop, 0, len(m.shops))
	for _, s := range m.shops {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
