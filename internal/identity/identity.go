// Package identity owns user accounts and authentication tokens. The
// authorization engine consumes it only as a user-existence resolver; what a
// user may do is decided entirely by the authz package.
package identity

import (
	"context"
	"errors"
	"time"
)

// Well-known account roles seeded at bootstrap. Roles are a coarse default
// permission bundle; fine-grained access always flows through grants.
const (
	RoleAdmin     = "admin"
	RoleShopOwner = "shop_owner"
	RoleCustomer  = "customer"
)

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

var (
	ErrNotFound      = errors.New("identity: user not found")
	ErrAlreadyExists = errors.New("identity: user already exists")
	ErrInvalidInput  = errors.New("identity: invalid input")
	ErrBadCredential = errors.New("identity: invalid credentials")
)

// User is a platform account: administrator, shop owner or customer.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Directory is the persistence boundary for user accounts. The authorization
// engine depends on the Exists check only.
type Directory interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*User, error)
}
