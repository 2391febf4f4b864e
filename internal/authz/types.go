// Package authz implements the dynamic permission engine: a catalog of
// grantable capabilities, per-user grants with optional expiration and
// revocation audit metadata, and the evaluator that authorization
// checkpoints consult before executing a protected action.
package authz

import (
	"strings"
	"time"
)

// Permission is a catalog entry: a named capability identified by a
// (resource, action) pair. Entries are never deleted, only deactivated, so
// historical grants keep a valid referent.
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Key returns the canonical "resource:action" form of the permission.
func (p Permission) Key() string {
	return p.Resource + ":" + p.Action
}

// Grant records that a user holds a catalog permission, who granted it and
// when, with optional expiration. Revocation is a one-way transition that
// stamps the revoker, time and reason; a revoked grant is never reactivated.
type Grant struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	PermissionID     string     `json:"permission_id"`
	GrantedBy        string     `json:"granted_by"`
	GrantedAt        time.Time  `json:"granted_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	Active           bool       `json:"active"`
	RevokedBy        string     `json:"revoked_by,omitempty"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevocationReason string     `json:"revocation_reason,omitempty"`
}

// ExpiredAt reports whether the grant's expiration has passed at the given time.
func (g Grant) ExpiredAt(now time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(now)
}

// EffectiveAt reports whether the grant authorizes its permission at the
// given time: active and not expired. Every authorization decision reduces
// to this predicate evaluated live; the expiration sweep only tidies rows.
func (g Grant) EffectiveAt(now time.Time) bool {
	return g.Active && !g.ExpiredAt(now)
}

func (g *Grant) revoke(revokedBy, reason string, now time.Time) {
	g.Active = false
	g.RevokedBy = revokedBy
	at := now
	g.RevokedAt = &at
	g.RevocationReason = strings.TrimSpace(reason)
}
