package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tableside.org/internal/shops"
)

// Shops returns the shops.Store view.
func (s *Store) Shops() shops.Store { return &shopStore{db: s.db} }

type shopStore struct{ db *sql.DB }

var _ shops.Store = (*shopStore)(nil)

const shopColumns = `id, name, description, owner_id, status, created_at, updated_at`

func scanShop(row interface{ Scan(...any) error }) (*shops.Shop, error) {
	var (
		sh   shops.Shop
		desc sql.NullString
	)
	err := row.Scan(&sh.ID, &sh.Name, &desc, &sh.OwnerID, &sh.Status, &sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sh.Description = desc.String
	return &sh, nil
}

func (s *shopStore) Create(ctx context.Context, sh *shops.Shop) error {
	_, err := s.db.ExecContext(ctx, `
		insert into shops (id, name, description, owner_id, status, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, sh.ID, sh.Name, nullString(sh.Description), sh.OwnerID, sh.Status, sh.CreatedAt, sh.UpdatedAt)
	return err
}

func (s *shopStore) Update(ctx context.Context, sh *shops.Shop) error {
	res, err := s.db.ExecContext(ctx, `
		update shops
		set name = $2, description = $3, status = $4, updated_at = $5
		where id = $1
	`, sh.ID, sh.Name, nullString(sh.Description), sh.Status, sh.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", shops.ErrNotFound, sh.ID)
	}
	return nil
}

func (s *shopStore) Find(ctx context.Context, id string) (*shops.Shop, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+shopColumns+` from shops where id = $1`, id)
	sh, err := scanShop(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shops.ErrNotFound, id)
	}
	return sh, err
}

func (s *shopStore) List(ctx context.Context) ([]shops.Shop, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+shopColumns+` from shops order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []shops.Shop
	for rows.Next() {
		sh, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sh)
	}
	return result, rows.Err()
}
