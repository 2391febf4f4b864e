package authz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory catalog and grant store used by tests and
// local development. It enforces the same uniqueness invariants as the
// PostgreSQL schema, including the one-active-grant-per-pair constraint.
// Catalog() and Grants() expose the two store views over shared state.
type MemoryStore struct {
	mu     sync.RWMutex
	perms  map[string]*Permission
	grants map[string]*Grant
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		perms:  make(map[string]*Permission),
		grants: make(map[string]*Grant),
	}
}

// Catalog returns the CatalogStore view.
func (s *MemoryStore) Catalog() CatalogStore { return memoryCatalog{s} }

// Grants returns the GrantStore view.
func (s *MemoryStore) Grants() GrantStore { return memoryGrants{s} }

type memoryCatalog struct{ s *MemoryStore }

var _ CatalogStore = memoryCatalog{}

func (c memoryCatalog) Create(ctx context.Context, p *Permission) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, existing := range c.s.perms {
		if existing.Name == p.Name {
			return fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
		}
		if existing.Resource == p.Resource && existing.Action == p.Action {
			return fmt.Errorf("%w: %s:%s", ErrDuplicateResourceAction, p.Resource, p.Action)
		}
	}
	cp := *p
	c.s.perms[p.ID] = &cp
	return nil
}

func (c memoryCatalog) Update(ctx context.Context, p *Permission) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.perms[p.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrPermissionNotFound, p.ID)
	}
	cp := *p
	c.s.perms[p.ID] = &cp
	return nil
}

func (c memoryCatalog) Find(ctx context.Context, id string) (*Permission, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	p, ok := c.s.perms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPermissionNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (c memoryCatalog) FindByName(ctx context.Context, name string) (*Permission, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	for _, p := range c.s.perms {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPermissionNotFound, name)
}

func (c memoryCatalog) ListActive(ctx context.Context) ([]Permission, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var result []Permission
	for _, p := range c.s.perms {
		if p.Active {
			result = append(result, *p)
		}
	}
	sortPermissions(result)
	return result, nil
}

func (c memoryCatalog) ListByResource(ctx context.Context, resource string) ([]Permission, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var result []Permission
	for _, p := range c.s.perms {
		if p.Active && p.Resource == resource {
			result = append(result, *p)
		}
	}
	sortPermissions(result)
	return result, nil
}

func (c memoryCatalog) Search(ctx context.Context, term string) ([]Permission, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	needle := strings.ToLower(term)
	var result []Permission
	for _, p := range c.s.perms {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			result = append(result, *p)
		}
	}
	sortPermissions(result)
	return result, nil
}

func (c memoryCatalog) ExistsByName(ctx context.Context, name string) (bool, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	for _, p := range c.s.perms {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (c memoryCatalog) ExistsByResourceAction(ctx context.Context, resource, action string) (bool, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	for _, p := range c.s.perms {
		if p.Resource == resource && p.Action == action {
			return true, nil
		}
	}
	return false, nil
}

type memoryGrants struct{ s *MemoryStore }

var _ GrantStore = memoryGrants{}

func (g memoryGrants) Create(ctx context.Context, grant *Grant) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	for _, existing := range g.s.grants {
		if existing.UserID == grant.UserID && existing.PermissionID == grant.PermissionID && existing.Active {
			return fmt.Errorf("%w: active grant exists", ErrAlreadyGranted)
		}
	}
	cp := *grant
	g.s.grants[grant.ID] = &cp
	return nil
}

func (g memoryGrants) Update(ctx context.Context, grant *Grant) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	if _, ok := g.s.grants[grant.ID]; !ok {
		return fmt.Errorf("%w: grant %s", ErrNotGranted, grant.ID)
	}
	cp := *grant
	g.s.grants[grant.ID] = &cp
	return nil
}

func (g memoryGrants) FindActive(ctx context.Context, userID, permissionID string) (*Grant, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()
	for _, grant := range g.s.grants {
		if grant.UserID == userID && grant.PermissionID == permissionID && grant.Active {
			cp := *grant
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", ErrNotGranted, userID)
}

func (g memoryGrants) ListByUser(ctx context.Context, userID string) ([]Grant, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()
	var result []Grant
	for _, grant := range g.s.grants {
		if grant.UserID == userID {
			result = append(result, *grant)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (g memoryGrants) HasEffective(ctx context.Context, userID, resource, action string, now time.Time) (bool, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()
	for _, grant := range g.s.grants {
		if grant.UserID != userID || !grant.EffectiveAt(now) {
			continue
		}
		p, ok := g.s.perms[grant.PermissionID]
		if ok && p.Active && p.Resource == resource && p.Action == action {
			return true, nil
		}
	}
	return false, nil
}

func (g memoryGrants) ListEffective(ctx context.Context, userID string, now time.Time) ([]Permission, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()
	var result []Permission
	for _, grant := range g.s.grants {
		if grant.UserID != userID || !grant.EffectiveAt(now) {
			continue
		}
		if p, ok := g.s.perms[grant.PermissionID]; ok && p.Active {
			result = append(result, *p)
		}
	}
	sortPermissions(result)
	return result, nil
}

func (g memoryGrants) ListExpired(ctx context.Context, now time.Time) ([]Grant, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()
	var result []Grant
	for _, grant := range g.s.grants {
		if grant.Active && grant.ExpiredAt(now) {
			result = append(result, *grant)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func sortPermissions(perms []Permission) {
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
}
