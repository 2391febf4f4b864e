package authz

import (
	"context"
	"time"
)

// CatalogStore is the persistence boundary for permission definitions.
type CatalogStore interface {
	Create(ctx context.Context, p *Permission) error
	Update(ctx context.Context, p *Permission) error
	Find(ctx context.Context, id string) (*Permission, error)
	FindByName(ctx context.Context, name string) (*Permission, error)
	ListActive(ctx context.Context) ([]Permission, error)
	ListByResource(ctx context.Context, resource string) ([]Permission, error)
	Search(ctx context.Context, term string) ([]Permission, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	ExistsByResourceAction(ctx context.Context, resource, action string) (bool, error)
}

// GrantStore is the persistence boundary for grants. Implementations must
// enforce at most one active row per (user, permission); Create returns
// ErrAlreadyGranted when a concurrent writer got there first, which is the
// storage-level guard the check-then-write in the engine relies on.
type GrantStore interface {
	Create(ctx context.Context, g *Grant) error
	Update(ctx context.Context, g *Grant) error

	// FindActive returns the single active row for (user, permission), or
	// ErrNotGranted when none exists. The row may still be expired; callers
	// apply the effectiveness predicate themselves.
	FindActive(ctx context.Context, userID, permissionID string) (*Grant, error)
	ListByUser(ctx context.Context, userID string) ([]Grant, error)

	// HasEffective applies the full effectiveness predicate at query time:
	// active grant, not expired at now, and the referenced permission is
	// still an active catalog entry matching (resource, action).
	HasEffective(ctx context.Context, userID, resource, action string, now time.Time) (bool, error)

	// ListEffective returns the active catalog permissions effectively held
	// by the user at now, under the same predicate as HasEffective.
	ListEffective(ctx context.Context, userID string, now time.Time) ([]Permission, error)

	// ListExpired returns active grants whose expiration has passed.
	ListExpired(ctx context.Context, now time.Time) ([]Grant, error)
}

// UserResolver confirms user existence. The user accounts themselves are
// owned by the identity package; the engine only checks that a grant target
// exists.
type UserResolver interface {
	Exists(ctx context.Context, userID string) (bool, error)
}
