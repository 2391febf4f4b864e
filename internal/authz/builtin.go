package authz

import (
	"context"
	"errors"

	"tableside.org/internal/identity"
	"tableside.org/internal/obs"
)

// BuiltinPermission is a catalog entry ensured at bootstrap.
type BuiltinPermission struct {
	Name        string
	Description string
	Resource    string
	Action      string
}

// BuiltinPermissions is the platform's system capability set. Seeding is
// idempotent; operators add further entries through the admin API.
var BuiltinPermissions = []BuiltinPermission{
	{"Manage Users", "Full user management access", "users", "manage"},
	{"View Users", "View user information", "users", "view"},
	{"Create Users", "Create new users", "users", "create"},
	{"Edit Users", "Edit user information", "users", "edit"},
	{"Delete Users", "Delete users", "users", "delete"},

	{"Manage Shops", "Full shop management access", "shops", "manage"},
	{"View Shops", "View shop information", "shops", "view"},
	{"Create Shops", "Create new shops", "shops", "create"},
	{"Edit Shops", "Edit shop information", "shops", "edit"},
	{"Delete Shops", "Delete shops", "shops", "delete"},

	{"Manage Menu Items", "Full menu item management", "menu-items", "manage"},
	{"View Menu Items", "View menu items", "menu-items", "view"},
	{"Create Menu Items", "Create new menu items", "menu-items", "create"},
	{"Edit Menu Items", "Edit menu items", "menu-items", "edit"},
	{"Delete Menu Items", "Delete menu items", "menu-items", "delete"},

	{"Manage Orders", "Full order management access", "orders", "manage"},
	{"View Orders", "View order information", "orders", "view"},
	{"Create Orders", "Create new orders", "orders", "create"},
	{"Edit Orders", "Edit order information", "orders", "edit"},
	{"Cancel Orders", "Cancel orders", "orders", "cancel"},

	{"Admin Dashboard", "Access admin dashboard", "dashboard", "admin"},
	{"Shop Dashboard", "Access shop dashboard", "dashboard", "shop"},
	{"Customer Dashboard", "Access customer dashboard", "dashboard", "customer"},

	{"Manage Permissions", "Full permission management access", "permissions", "manage"},
	{"View Permissions", "View permission information", "permissions", "view"},

	{"Manage Cart", "Full cart management access", "cart", "manage"},
	{"View Cart", "View cart contents", "cart", "view"},

	{"View Reports", "Access reporting features", "reports", "view"},
	{"Export Data", "Export system data", "data", "export"},
}

// Default grant sets per seeded account role, by permission name.
var defaultGrantsByRole = map[string][]string{
	identity.RoleAdmin: permissionNames(),
	identity.RoleShopOwner: {
		"View Shops", "Edit Shops",
		"Manage Menu Items", "View Menu Items", "Create Menu Items", "Edit Menu Items", "Delete Menu Items",
		"View Orders", "Edit Orders",
		"Shop Dashboard",
		"View Reports",
	},
	identity.RoleCustomer: {
		"View Shops", "View Menu Items",
		"Create Orders", "View Orders", "Cancel Orders",
		"Customer Dashboard",
		"Manage Cart", "View Cart",
	},
}

func permissionNames() []string {
	names := make([]string, len(BuiltinPermissions))
	for i, p := range BuiltinPermissions {
		names[i] = p.Name
	}
	return names
}

// Seeder populates the catalog and default grants at startup. It is a
// one-time client of the catalog and engine APIs: every step is idempotent
// and individual failures are logged and skipped so a partially seeded
// database converges on retry.
type Seeder struct {
	catalog   *Catalog
	engine    *Engine
	directory identity.Directory
}

// NewSeeder constructs a Seeder.
func NewSeeder(catalog *Catalog, engine *Engine, directory identity.Directory) (*Seeder, error) {
	if catalog == nil || engine == nil || directory == nil {
		return nil, errors.New("catalog, engine and directory are required")
	}
	return &Seeder{catalog: catalog, engine: engine, directory: directory}, nil
}

// Seed ensures the builtin catalog exists and default grants are assigned to
// the seeded accounts.
func (s *Seeder) Seed(ctx context.Context) error {
	if err := s.ensureCatalog(ctx); err != nil {
		return err
	}
	s.assignDefaults(ctx)
	return nil
}

func (s *Seeder) ensureCatalog(ctx context.Context) error {
	for _, b := range BuiltinPermissions {
		_, err := s.catalog.CreatePermission(ctx, b.Name, b.Description, b.Resource, b.Action)
		switch {
		case err == nil:
		case errors.Is(err, ErrDuplicateName), errors.Is(err, ErrDuplicateResourceAction):
			// already seeded
		default:
			return err
		}
	}
	return nil
}

func (s *Seeder) assignDefaults(ctx context.Context) {
	admin, err := s.directory.FindByUsername(ctx, "admin")
	if err != nil {
		obs.Warn("seed: admin account missing, skipping default grants", map[string]any{"error": err.Error()})
		return
	}

	users, err := s.directory.List(ctx)
	if err != nil {
		obs.Warn("seed: list users failed", map[string]any{"error": err.Error()})
		return
	}
	for _, u := range users {
		names, ok := defaultGrantsByRole[u.Role]
		if !ok {
			continue
		}
		for _, name := range names {
			perm, err := s.catalog.GetByName(ctx, name)
			if err != nil {
				obs.Warn("seed: builtin permission missing", map[string]any{"name": name, "error": err.Error()})
				continue
			}
			_, err = s.engine.Grant(ctx, u.ID, perm.ID, admin.ID, nil)
			if err != nil && !errors.Is(err, ErrAlreadyGranted) {
				obs.Warn("seed: default grant failed", map[string]any{
					"user":       u.Username,
					"permission": name,
					"error":      err.Error(),
				})
			}
		}
	}
}
