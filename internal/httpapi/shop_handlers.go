package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tableside.org/internal/audit"
	"tableside.org/internal/authz"
	"tableside.org/internal/identity"
	"tableside.org/internal/shops"
)

type createShopRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateShopRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (a *API) handleShops(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createShop(w, r)
	case http.MethodGet:
		a.listShops(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) createShop(w http.ResponseWriter, r *http.Request) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "shops", Action: "create"}) {
		return
	}
	actorID, _ := identity.UserIDFromContext(r.Context())
	var req createShopRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	shop, err := a.shops.Create(r.Context(), req.Name, req.Description, actorID)
	if err != nil {
		handleShopError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "shop.create", map[string]any{
		"shop_id": shop.ID,
		"name":    shop.Name,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/shops/%s", shop.ID))
	writeJSON(w, http.StatusCreated, shop)
}

func (a *API) listShops(w http.ResponseWriter, r *http.Request) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "shops", Action: "view"}) {
		return
	}
	list, err := a.shops.List(r.Context())
	if err != nil {
		handleShopError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shops": list})
}

func (a *API) handleShopResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/shops/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getShop(w, r, id)
	case http.MethodPut:
		a.updateShop(w, r, id)
	case http.MethodDelete:
		a.closeShop(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) getShop(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "shops", Action: "view"}) {
		return
	}
	shop, err := a.shops.Get(r.Context(), id)
	if err != nil {
		handleShopError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

func (a *API) updateShop(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "shops", Action: "edit"}) {
		return
	}
	var req updateShopRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	shop, err := a.shops.Update(r.Context(), id, shops.ShopUpdate{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		handleShopError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "shop.update", map[string]any{
		"shop_id": shop.ID,
	})
	writeJSON(w, http.StatusOK, shop)
}

func (a *API) closeShop(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "shops", Action: "delete"}) {
		return
	}
	shop, err := a.shops.Close(r.Context(), id)
	if err != nil {
		handleShopError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "shop.close", map[string]any{
		"shop_id": shop.ID,
	})
	writeJSON(w, http.StatusOK, shop)
}

func handleShopError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shops.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, shops.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "shop operation failed")
	}
}
