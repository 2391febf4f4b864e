package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tableside.org/internal/ids"
)

// Catalog defines and manages the vocabulary of grantable capabilities.
// Mutations are audit-logged by the caller layer; the catalog keeps no
// history beyond the active flag.
type Catalog struct {
	store CatalogStore
	now   func() time.Time
}

// CatalogOption configures Catalog behavior.
type CatalogOption func(*Catalog)

// WithCatalogClock overrides the time source (useful for tests).
func WithCatalogClock(fn func() time.Time) CatalogOption {
	return func(c *Catalog) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCatalog constructs a Catalog over the given store.
func NewCatalog(store CatalogStore, opts ...CatalogOption) (*Catalog, error) {
	if store == nil {
		return nil, errors.New("catalog store is required")
	}
	c := &Catalog{store: store, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreatePermission registers a new active catalog entry. The name must be
// globally unique and the (resource, action) pair unique across active and
// inactive entries, so a deactivated capability can never be shadowed by an
// ambiguous duplicate.
func (c *Catalog) CreatePermission(ctx context.Context, name, description, resource, action string) (Permission, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))
	if name == "" || resource == "" || action == "" {
		return Permission{}, fmt.Errorf("%w: name, resource and action are required", ErrInvalidInput)
	}

	if exists, err := c.store.ExistsByName(ctx, name); err != nil {
		return Permission{}, err
	} else if exists {
		return Permission{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	if exists, err := c.store.ExistsByResourceAction(ctx, resource, action); err != nil {
		return Permission{}, err
	} else if exists {
		return Permission{}, fmt.Errorf("%w: %s:%s", ErrDuplicateResourceAction, resource, action)
	}

	now := c.now()
	p := Permission{
		ID:          ids.New(),
		Name:        name,
		Description: description,
		Resource:    resource,
		Action:      action,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.store.Create(ctx, &p); err != nil {
		return Permission{}, err
	}
	return p, nil
}

// UpdatePermission mutates an existing entry. A name change that collides
// with a different entry is rejected.
func (c *Catalog) UpdatePermission(ctx context.Context, id, name, description, resource, action string) (Permission, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))
	if id == "" {
		return Permission{}, fmt.Errorf("%w: permission id is required", ErrInvalidInput)
	}
	if name == "" || resource == "" || action == "" {
		return Permission{}, fmt.Errorf("%w: name, resource and action are required", ErrInvalidInput)
	}

	p, err := c.store.Find(ctx, id)
	if err != nil {
		return Permission{}, err
	}
	if p.Name != name {
		if exists, err := c.store.ExistsByName(ctx, name); err != nil {
			return Permission{}, err
		} else if exists {
			return Permission{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
	}
	if p.Resource != resource || p.Action != action {
		if exists, err := c.store.ExistsByResourceAction(ctx, resource, action); err != nil {
			return Permission{}, err
		} else if exists {
			return Permission{}, fmt.Errorf("%w: %s:%s", ErrDuplicateResourceAction, resource, action)
		}
	}

	p.Name = name
	p.Description = description
	p.Resource = resource
	p.Action = action
	p.UpdatedAt = c.now()
	if err := c.store.Update(ctx, p); err != nil {
		return Permission{}, err
	}
	return *p, nil
}

// DeactivatePermission marks the entry inactive. Repeated calls are safe
// no-ops. Deactivation cascades: effective grants referencing the entry stop
// authorizing immediately, though the grant rows remain for audit.
func (c *Catalog) DeactivatePermission(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: permission id is required", ErrInvalidInput)
	}
	p, err := c.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if !p.Active {
		return nil
	}
	p.Active = false
	p.UpdatedAt = c.now()
	return c.store.Update(ctx, p)
}

// GetByID returns the catalog entry with the given id.
func (c *Catalog) GetByID(ctx context.Context, id string) (Permission, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Permission{}, fmt.Errorf("%w: permission id is required", ErrInvalidInput)
	}
	p, err := c.store.Find(ctx, id)
	if err != nil {
		return Permission{}, err
	}
	return *p, nil
}

// GetByName returns the catalog entry with the given unique name.
func (c *Catalog) GetByName(ctx context.Context, name string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, fmt.Errorf("%w: permission name is required", ErrInvalidInput)
	}
	p, err := c.store.FindByName(ctx, name)
	if err != nil {
		return Permission{}, err
	}
	return *p, nil
}

// ListActive returns all active catalog entries.
func (c *Catalog) ListActive(ctx context.Context) ([]Permission, error) {
	return c.store.ListActive(ctx)
}

// ListByResource returns active entries within a resource namespace.
func (c *Catalog) ListByResource(ctx context.Context, resource string) ([]Permission, error) {
	resource = strings.ToLower(strings.TrimSpace(resource))
	if resource == "" {
		return nil, fmt.Errorf("%w: resource is required", ErrInvalidInput)
	}
	return c.store.ListByResource(ctx, resource)
}

// Search returns entries whose name or description contains the term.
func (c *Catalog) Search(ctx context.Context, term string) ([]Permission, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: search term is required", ErrInvalidInput)
	}
	return c.store.Search(ctx, term)
}
