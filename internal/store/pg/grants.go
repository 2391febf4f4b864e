package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tableside.org/internal/authz"
)

// Grants returns the authz.GrantStore view.
func (s *Store) Grants() authz.GrantStore { return &grantStore{db: s.db} }

type grantStore struct{ db *sql.DB }

var _ authz.GrantStore = (*grantStore)(nil)

const grantColumns = `id, user_id, permission_id, granted_by, granted_at, expires_at,
	is_active, revoked_by, revoked_at, revocation_reason`

func scanGrant(row interface{ Scan(...any) error }) (*authz.Grant, error) {
	var (
		g         authz.Grant
		expiresAt sql.NullTime
		revokedBy sql.NullString
		revokedAt sql.NullTime
		reason    sql.NullString
	)
	err := row.Scan(&g.ID, &g.UserID, &g.PermissionID, &g.GrantedBy, &g.GrantedAt,
		&expiresAt, &g.Active, &revokedBy, &revokedAt, &reason)
	if err != nil {
		return nil, err
	}
	g.ExpiresAt = timePtr(expiresAt)
	g.RevokedBy = revokedBy.String
	g.RevokedAt = timePtr(revokedAt)
	g.RevocationReason = reason.String
	return &g, nil
}

func (s *grantStore) Create(ctx context.Context, g *authz.Grant) error {
	_, err := s.db.ExecContext(ctx, `
		insert into user_permissions (id, user_id, permission_id, granted_by, granted_at, expires_at, is_active)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, g.ID, g.UserID, g.PermissionID, g.GrantedBy, g.GrantedAt, nullTime(g.ExpiresAt), g.Active)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				// Partial unique index on (user_id, permission_id) where
				// is_active: a concurrent grant won the race.
				return fmt.Errorf("%w: active grant exists", authz.ErrAlreadyGranted)
			case pgErrForeignKeyViolation:
				if strings.Contains(pgErr.ConstraintName, "user_id") {
					return fmt.Errorf("%w: %s", authz.ErrUserNotFound, g.UserID)
				}
				return fmt.Errorf("%w: %s", authz.ErrPermissionNotFound, g.PermissionID)
			}
		}
		return err
	}
	return nil
}

func (s *grantStore) Update(ctx context.Context, g *authz.Grant) error {
	res, err := s.db.ExecContext(ctx, `
		update user_permissions
		set is_active = $2, revoked_by = $3, revoked_at = $4, revocation_reason = $5
		where id = $1
	`, g.ID, g.Active, nullString(g.RevokedBy), nullTime(g.RevokedAt), nullString(g.RevocationReason))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: grant %s", authz.ErrNotGranted, g.ID)
	}
	return nil
}

func (s *grantStore) FindActive(ctx context.Context, userID, permissionID string) (*authz.Grant, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+grantColumns+`
		from user_permissions
		where user_id = $1 and permission_id = $2 and is_active
	`, userID, permissionID)
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", authz.ErrNotGranted, userID)
	}
	return g, err
}

func (s *grantStore) ListByUser(ctx context.Context, userID string) ([]authz.Grant, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+grantColumns+`
		from user_permissions
		where user_id = $1
		order by granted_at desc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []authz.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *g)
	}
	return result, rows.Err()
}

func (s *grantStore) HasEffective(ctx context.Context, userID, resource, action string, now time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists (
			select 1
			from user_permissions up
			join permissions p on p.id = up.permission_id
			where up.user_id = $1
			  and p.resource = $2
			  and p.action = $3
			  and p.is_active
			  and up.is_active
			  and (up.expires_at is null or up.expires_at > $4)
		)
	`, userID, resource, action, now).Scan(&exists)
	return exists, err
}

func (s *grantStore) ListEffective(ctx context.Context, userID string, now time.Time) ([]authz.Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select p.id, p.name, p.description, p.resource, p.action, p.is_active, p.created_at, p.updated_at
		from user_permissions up
		join permissions p on p.id = up.permission_id
		where up.user_id = $1
		  and p.is_active
		  and up.is_active
		  and (up.expires_at is null or up.expires_at > $2)
		order by p.name
	`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []authz.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (s *grantStore) ListExpired(ctx context.Context, now time.Time) ([]authz.Grant, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+grantColumns+`
		from user_permissions
		where is_active and expires_at is not null and expires_at <= $1
		order by expires_at
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []authz.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *g)
	}
	return result, rows.Err()
}
