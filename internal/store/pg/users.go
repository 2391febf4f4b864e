package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tableside.org/internal/identity"
)

// Users returns the identity.Directory view.
func (s *Store) Users() identity.Directory { return &userStore{db: s.db} }

type userStore struct{ db *sql.DB }

var _ identity.Directory = (*userStore)(nil)

const userColumns = `id, username, email, password_hash, role, status, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*identity.User, error) {
	var u identity.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, u *identity.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, username, email, password_hash, role, status, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, now(), now())
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.Status)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: username %q", identity.ErrAlreadyExists, u.Username)
		}
		return err
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id string) (*identity.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", identity.ErrNotFound, id)
	}
	return u, err
}

func (s *userStore) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where username = $1`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: username %q", identity.ErrNotFound, username)
	}
	return u, err
}

func (s *userStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists (select 1 from users where id = $1)`, id).Scan(&exists)
	return exists, err
}

func (s *userStore) List(ctx context.Context) ([]*identity.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users order by username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*identity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}
