// Package httpapi is the HTTP admin and checkpoint surface over the
// permission engine. Every mutating route is gated by an explicit evaluator
// decision; there is no implicit role shortcut.
package httpapi

import (
	"net/http"

	"tableside.org/internal/authz"
	"tableside.org/internal/identity"
	"tableside.org/internal/obs"
	"tableside.org/internal/shops"
)

// Deps carries the services the API routes over.
type Deps struct {
	Catalog   *authz.Catalog
	Engine    *authz.Engine
	Evaluator *authz.Evaluator
	Directory identity.Directory
	Shops     *shops.Service
	Ready     ReadyProbe
	Version   string
}

// API is the HTTP layer.
type API struct {
	mux       *http.ServeMux
	catalog   *authz.Catalog
	engine    *authz.Engine
	evaluator *authz.Evaluator
	directory identity.Directory
	shops     *shops.Service
	ready     ReadyProbe
	version   string
}

// New wires the routes.
func New(d Deps) *API {
	a := &API{
		mux:       http.NewServeMux(),
		catalog:   d.Catalog,
		engine:    d.Engine,
		evaluator: d.Evaluator,
		directory: d.Directory,
		shops:     d.Shops,
		ready:     d.Ready,
		version:   d.Version,
	}

	a.mux.HandleFunc("/healthz", a.handleHealthz)
	a.mux.HandleFunc("/readyz", a.handleReadyz)
	a.mux.HandleFunc("/v1/info", a.handleInfo)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	a.mux.HandleFunc("/v1/permissions", a.handlePermissions)
	a.mux.HandleFunc("/v1/permissions/", a.handlePermissionResource)

	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	a.mux.HandleFunc("/v1/access/check", a.handleAccessCheck)

	a.mux.HandleFunc("/v1/shops", a.handleShops)
	a.mux.HandleFunc("/v1/shops/", a.handleShopResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the mux wrapped with request ids, bearer authn and metrics.
// Outer middleware (logging, rate limiting, headers) is stacked by the caller.
func (a *API) Handler() http.Handler {
	return RequestID(a.withAuth(obs.Instrument(a.mux)))
}
