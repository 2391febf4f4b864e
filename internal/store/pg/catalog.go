package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tableside.org/internal/authz"
)

// Catalog returns the authz.CatalogStore view.
func (s *Store) Catalog() authz.CatalogStore { return &catalogStore{db: s.db} }

type catalogStore struct{ db *sql.DB }

var _ authz.CatalogStore = (*catalogStore)(nil)

const permissionColumns = `id, name, description, resource, action, is_active, created_at, updated_at`

func scanPermission(row interface{ Scan(...any) error }) (*authz.Permission, error) {
	var (
		p    authz.Permission
		desc sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &desc, &p.Resource, &p.Action, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = desc.String
	return &p, nil
}

func (s *catalogStore) Create(ctx context.Context, p *authz.Permission) error {
	_, err := s.db.ExecContext(ctx, `
		insert into permissions (id, name, description, resource, action, is_active, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Name, nullString(p.Description), p.Resource, p.Action, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "resource_action") {
				return fmt.Errorf("%w: %s:%s", authz.ErrDuplicateResourceAction, p.Resource, p.Action)
			}
			return fmt.Errorf("%w: %q", authz.ErrDuplicateName, p.Name)
		}
		return err
	}
	return nil
}

func (s *catalogStore) Update(ctx context.Context, p *authz.Permission) error {
	res, err := s.db.ExecContext(ctx, `
		update permissions
		set name = $2, description = $3, resource = $4, action = $5, is_active = $6, updated_at = $7
		where id = $1
	`, p.ID, p.Name, nullString(p.Description), p.Resource, p.Action, p.Active, p.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "resource_action") {
				return fmt.Errorf("%w: %s:%s", authz.ErrDuplicateResourceAction, p.Resource, p.Action)
			}
			return fmt.Errorf("%w: %q", authz.ErrDuplicateName, p.Name)
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", authz.ErrPermissionNotFound, p.ID)
	}
	return nil
}

func (s *catalogStore) Find(ctx context.Context, id string) (*authz.Permission, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+permissionColumns+` from permissions where id = $1`, id)
	p, err := scanPermission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", authz.ErrPermissionNotFound, id)
	}
	return p, err
}

func (s *catalogStore) FindByName(ctx context.Context, name string) (*authz.Permission, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+permissionColumns+` from permissions where name = $1`, name)
	p, err := scanPermission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", authz.ErrPermissionNotFound, name)
	}
	return p, err
}

func (s *catalogStore) ListActive(ctx context.Context) ([]authz.Permission, error) {
	return s.queryPermissions(ctx,
		`select `+permissionColumns+` from permissions where is_active order by name`)
}

func (s *catalogStore) ListByResource(ctx context.Context, resource string) ([]authz.Permission, error) {
	return s.queryPermissions(ctx,
		`select `+permissionColumns+` from permissions where is_active and resource = $1 order by name`, resource)
}

func (s *catalogStore) Search(ctx context.Context, term string) ([]authz.Permission, error) {
	pattern := "%" + term + "%"
	return s.queryPermissions(ctx,
		`select `+permissionColumns+` from permissions where name ilike $1 or description ilike $1 order by name`, pattern)
}

func (s *catalogStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists (select 1 from permissions where name = $1)`, name).Scan(&exists)
	return exists, err
}

func (s *catalogStore) ExistsByResourceAction(ctx context.Context, resource, action string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists (select 1 from permissions where resource = $1 and action = $2)`, resource, action).Scan(&exists)
	return exists, err
}

func (s *catalogStore) queryPermissions(ctx context.Context, query string, args ...any) ([]authz.Permission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
