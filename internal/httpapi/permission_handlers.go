package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tableside.org/internal/audit"
	"tableside.org/internal/authz"
)

type createPermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createPermission(w, r)
	case http.MethodGet:
		a.listPermissions(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) createPermission(w http.ResponseWriter, r *http.Request) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "permissions", Action: "manage"}) {
		return
	}
	var req createPermissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	perm, err := a.catalog.CreatePermission(r.Context(), req.Name, req.Description, req.Resource, req.Action)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "permission.create", map[string]any{
		"permission_id": perm.ID,
		"name":          perm.Name,
		"key":           perm.Key(),
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/permissions/%s", perm.ID))
	writeJSON(w, http.StatusCreated, perm)
}

func (a *API) listPermissions(w http.ResponseWriter, r *http.Request) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "permissions", Action: "view"}) {
		return
	}
	var (
		perms []authz.Permission
		err   error
	)
	q := r.URL.Query()
	switch {
	case strings.TrimSpace(q.Get("q")) != "":
		perms, err = a.catalog.Search(r.Context(), q.Get("q"))
	case strings.TrimSpace(q.Get("resource")) != "":
		perms, err = a.catalog.ListByResource(r.Context(), q.Get("resource"))
	default:
		perms, err = a.catalog.ListActive(r.Context())
	}
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (a *API) handlePermissionResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/permissions/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getPermission(w, r, id)
	case http.MethodPut:
		a.updatePermission(w, r, id)
	case http.MethodDelete:
		a.deactivatePermission(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) getPermission(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "permissions", Action: "view"}) {
		return
	}
	perm, err := a.catalog.GetByID(r.Context(), id)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, perm)
}

func (a *API) updatePermission(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "permissions", Action: "manage"}) {
		return
	}
	var req createPermissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	perm, err := a.catalog.UpdatePermission(r.Context(), id, req.Name, req.Description, req.Resource, req.Action)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "permission.update", map[string]any{
		"permission_id": perm.ID,
		"name":          perm.Name,
		"key":           perm.Key(),
	})
	writeJSON(w, http.StatusOK, perm)
}

func (a *API) deactivatePermission(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "permissions", Action: "manage"}) {
		return
	}
	if err := a.catalog.DeactivatePermission(r.Context(), id); err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "permission.deactivate", map[string]any{
		"permission_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func handleAuthzError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, authz.ErrDuplicateName), errors.Is(err, authz.ErrDuplicateResourceAction),
		errors.Is(err, authz.ErrAlreadyGranted):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, authz.ErrPermissionNotFound), errors.Is(err, authz.ErrUserNotFound),
		errors.Is(err, authz.ErrNotGranted):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, authz.ErrPermissionInactive):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "permission operation failed")
	}
}
