// Package shops carries the shop entity the authorization checkpoints gate.
// It is intentionally thin: the interesting behavior lives in the authz
// package, shops only give it something real to protect.
package shops

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tableside.org/internal/ids"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

var (
	ErrNotFound     = errors.New("shops: shop not found")
	ErrInvalidInput = errors.New("shops: invalid input")
)

// Shop is a storefront owned by a shop-owner account.
type Shop struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is the persistence boundary for shops.
type Store interface {
	Create(ctx context.Context, s *Shop) error
	Update(ctx context.Context, s *Shop) error
	Find(ctx context.Context, id string) (*Shop, error)
	List(ctx context.Context) ([]Shop, error)
}

// ShopUpdate carries optional field changes.
type ShopUpdate struct {
	Name        *string
	Description *string
	Status      *string
}

// Service validates and persists shop mutations. Authorization happens at
// the HTTP checkpoint before the service is ever invoked.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("shop store is required")
	}
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Create registers a new open shop for the owner.
func (s *Service) Create(ctx context.Context, name, description, ownerID string) (Shop, error) {
	name = strings.TrimSpace(name)
	ownerID = strings.TrimSpace(ownerID)
	if name == "" || ownerID == "" {
		return Shop{}, fmt.Errorf("%w: name and owner_id are required", ErrInvalidInput)
	}
	now := s.now()
	shop := Shop{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     ownerID,
		Status:      StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, &shop); err != nil {
		return Shop{}, err
	}
	return shop, nil
}

// Get returns a shop by id.
func (s *Service) Get(ctx context.Context, id string) (Shop, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Shop{}, fmt.Errorf("%w: shop id is required", ErrInvalidInput)
	}
	shop, err := s.store.Find(ctx, id)
	if err != nil {
		return Shop{}, err
	}
	return *shop, nil
}

// List returns all shops.
func (s *Service) List(ctx context.Context) ([]Shop, error) {
	return s.store.List(ctx)
}

// Update applies the provided field changes.
func (s *Service) Update(ctx context.Context, id string, upd ShopUpdate) (Shop, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Shop{}, fmt.Errorf("%w: shop id is required", ErrInvalidInput)
	}
	shop, err := s.store.Find(ctx, id)
	if err != nil {
		return Shop{}, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Shop{}, fmt.Errorf("%w: shop name is required", ErrInvalidInput)
		}
		shop.Name = name
	}
	if upd.Description != nil {
		shop.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*upd.Status))
		if status != StatusOpen && status != StatusClosed {
			return Shop{}, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, status)
		}
		shop.Status = status
	}
	shop.UpdatedAt = s.now()
	if err := s.store.Update(ctx, shop); err != nil {
		return Shop{}, err
	}
	return *shop, nil
}

// Close marks the shop closed. Shops are never deleted; orders keep a valid
// referent.
func (s *Service) Close(ctx context.Context, id string) (Shop, error) {
	status := StatusClosed
	return s.Update(ctx, id, ShopUpdate{Status: &status})
}
