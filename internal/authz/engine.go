package authz

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"tableside.org/internal/ids"
	"tableside.org/internal/obs"
)

// Engine is the authoritative source of which users hold which permissions
// and the single place that answers whether a permission is effective for a
// user right now. It is stateless between calls; all state lives in the
// grant store.
type Engine struct {
	catalog CatalogStore
	grants  GrantStore
	users   UserResolver
	now     func() time.Time
}

// EngineOption configures Engine behavior.
type EngineOption func(*Engine)

// WithEngineClock overrides the time source (useful for tests).
func WithEngineClock(fn func() time.Time) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

// NewEngine constructs an Engine over the catalog, grant store and user
// resolver.
func NewEngine(catalog CatalogStore, grants GrantStore, users UserResolver, opts ...EngineOption) (*Engine, error) {
	if catalog == nil || grants == nil || users == nil {
		return nil, errors.New("catalog store, grant store and user resolver are required")
	}
	e := &Engine{
		catalog: catalog,
		grants:  grants,
		users:   users,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Grant creates a new effective grant. Preconditions: the user exists, the
// permission exists and is active, the expiration (if any) lies in the
// future, and the user does not already effectively hold the permission.
// The storage layer backs the already-granted check with a uniqueness
// constraint, so a concurrent double-grant loses with ErrAlreadyGranted
// rather than slipping through the check-then-write window.
func (e *Engine) Grant(ctx context.Context, userID, permissionID, grantedBy string, expiresAt *time.Time) (Grant, error) {
	userID = strings.TrimSpace(userID)
	permissionID = strings.TrimSpace(permissionID)
	grantedBy = strings.TrimSpace(grantedBy)
	if userID == "" || permissionID == "" || grantedBy == "" {
		return Grant{}, fmt.Errorf("%w: user_id, permission_id and granted_by are required", ErrInvalidInput)
	}

	exists, err := e.users.Exists(ctx, userID)
	if err != nil {
		return Grant{}, err
	}
	if !exists {
		return Grant{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	perm, err := e.catalog.Find(ctx, permissionID)
	if err != nil {
		return Grant{}, err
	}
	if !perm.Active {
		return Grant{}, fmt.Errorf("%w: %q", ErrPermissionInactive, perm.Name)
	}

	now := e.now()
	if expiresAt != nil && !expiresAt.After(now) {
		return Grant{}, fmt.Errorf("%w: expires_at must be in the future", ErrInvalidInput)
	}

	existing, err := e.grants.FindActive(ctx, userID, permissionID)
	if err != nil && !errors.Is(err, ErrNotGranted) {
		return Grant{}, err
	}
	if existing != nil {
		if existing.EffectiveAt(now) {
			return Grant{}, fmt.Errorf("%w: %q", ErrAlreadyGranted, perm.Name)
		}
		// Active but expired: retire the stale row so the uniqueness
		// constraint admits the fresh grant. Same transition the sweep makes.
		existing.Active = false
		if err := e.grants.Update(ctx, existing); err != nil {
			return Grant{}, err
		}
	}

	g := Grant{
		ID:           ids.New(),
		UserID:       userID,
		PermissionID: permissionID,
		GrantedBy:    grantedBy,
		GrantedAt:    now,
		Active:       true,
	}
	if expiresAt != nil {
		at := expiresAt.UTC()
		g.ExpiresAt = &at
	}
	if err := e.grants.Create(ctx, &g); err != nil {
		if errors.Is(err, ErrAlreadyGranted) {
			return Grant{}, fmt.Errorf("%w: %q", ErrAlreadyGranted, perm.Name)
		}
		return Grant{}, err
	}
	return g, nil
}

// Revoke finds the user's currently effective grant for the permission and
// transitions it to revoked, stamping the revoker, time and reason. The
// transition is one-way; re-granting later produces a fresh grant row.
func (e *Engine) Revoke(ctx context.Context, userID, permissionID, revokedBy, reason string) (Grant, error) {
	userID = strings.TrimSpace(userID)
	permissionID = strings.TrimSpace(permissionID)
	revokedBy = strings.TrimSpace(revokedBy)
	if userID == "" || permissionID == "" || revokedBy == "" {
		return Grant{}, fmt.Errorf("%w: user_id, permission_id and revoked_by are required", ErrInvalidInput)
	}

	g, err := e.grants.FindActive(ctx, userID, permissionID)
	if err != nil {
		return Grant{}, err
	}
	now := e.now()
	if !g.EffectiveAt(now) {
		return Grant{}, fmt.Errorf("%w: grant expired", ErrNotGranted)
	}
	g.revoke(revokedBy, reason, now)
	if err := e.grants.Update(ctx, g); err != nil {
		return Grant{}, err
	}
	return *g, nil
}

// HasPermission reports whether the user effectively holds the capability
// identified by (resource, action). The expiration predicate is applied live
// at query time, so correctness never depends on the sweep having run.
func (e *Engine) HasPermission(ctx context.Context, userID, resource, action string) (bool, error) {
	userID = strings.TrimSpace(userID)
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))
	if userID == "" || resource == "" || action == "" {
		return false, fmt.Errorf("%w: user_id, resource and action are required", ErrInvalidInput)
	}
	return e.grants.HasEffective(ctx, userID, resource, action, e.now())
}

// HasPermissionByName resolves a catalog name to its (resource, action) pair
// and delegates to HasPermission. An unknown name fails with
// ErrPermissionNotFound so callers can tell misconfiguration from denial.
func (e *Engine) HasPermissionByName(ctx context.Context, userID, permissionName string) (bool, error) {
	permissionName = strings.TrimSpace(permissionName)
	if permissionName == "" {
		return false, fmt.Errorf("%w: permission name is required", ErrInvalidInput)
	}
	perm, err := e.catalog.FindByName(ctx, permissionName)
	if err != nil {
		return false, err
	}
	return e.HasPermission(ctx, userID, perm.Resource, perm.Action)
}

// EffectivePermissions returns a one-shot sequence of the catalog
// permissions the user effectively holds right now. Intended for UI and
// audit display, not hot-path checks; hot paths use HasPermission.
func (e *Engine) EffectivePermissions(ctx context.Context, userID string) (iter.Seq[Permission], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	exists, err := e.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	perms, err := e.grants.ListEffective(ctx, userID, e.now())
	if err != nil {
		return nil, err
	}
	consumed := false
	return func(yield func(Permission) bool) {
		if consumed {
			return
		}
		consumed = true
		for _, p := range perms {
			if !yield(p) {
				return
			}
		}
	}, nil
}

// UserGrants returns every grant row for the user, effective or not, for
// audit display.
func (e *Engine) UserGrants(ctx context.Context, userID string) ([]Grant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return e.grants.ListByUser(ctx, userID)
}

// BulkFailure records one element of a batch that could not be processed.
type BulkFailure struct {
	PermissionID string `json:"permission_id"`
	Err          error  `json:"-"`
	Reason       string `json:"reason"`
}

// BulkResult reports the outcome of a bulk grant or revoke: successes and
// failures side by side, never an aborted batch.
type BulkResult struct {
	Granted []Grant       `json:"granted,omitempty"`
	Revoked []Grant       `json:"revoked,omitempty"`
	Failed  []BulkFailure `json:"failed,omitempty"`
}

// GrantMultiple attempts each grant independently; one bad id does not block
// the rest. Failures are logged and collected.
func (e *Engine) GrantMultiple(ctx context.Context, userID string, permissionIDs []string, grantedBy string) BulkResult {
	var res BulkResult
	for _, pid := range permissionIDs {
		g, err := e.Grant(ctx, userID, pid, grantedBy, nil)
		if err != nil {
			obs.Warn("bulk grant element failed", map[string]any{
				"user_id":       userID,
				"permission_id": pid,
				"error":         err.Error(),
			})
			res.Failed = append(res.Failed, BulkFailure{PermissionID: pid, Err: err, Reason: err.Error()})
			continue
		}
		res.Granted = append(res.Granted, g)
	}
	return res
}

// RevokeMultiple attempts each revocation independently with the same
// partial-failure semantics as GrantMultiple.
func (e *Engine) RevokeMultiple(ctx context.Context, userID string, permissionIDs []string, revokedBy, reason string) BulkResult {
	var res BulkResult
	for _, pid := range permissionIDs {
		g, err := e.Revoke(ctx, userID, pid, revokedBy, reason)
		if err != nil {
			obs.Warn("bulk revoke element failed", map[string]any{
				"user_id":       userID,
				"permission_id": pid,
				"error":         err.Error(),
			})
			res.Failed = append(res.Failed, BulkFailure{PermissionID: pid, Err: err, Reason: err.Error()})
			continue
		}
		res.Revoked = append(res.Revoked, g)
	}
	return res
}

// SweepExpired deactivates active grants whose expiration has passed at now
// and returns how many rows it retired. Purely housekeeping: live checks
// re-evaluate the expiration predicate themselves, so a lagging or
// concurrent sweep can never cause an incorrect allow. Idempotent.
func (e *Engine) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := e.grants.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	deactivated := 0
	for i := range expired {
		g := expired[i]
		g.Active = false
		if err := e.grants.Update(ctx, &g); err != nil {
			return deactivated, err
		}
		deactivated++
	}
	if deactivated > 0 {
		obs.ObserveSweep(deactivated)
		obs.Info("expired grants deactivated", map[string]any{"count": deactivated})
	}
	return deactivated, nil
}
