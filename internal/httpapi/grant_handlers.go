package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tableside.org/internal/audit"
	"tableside.org/internal/authz"
	"tableside.org/internal/identity"
	"tableside.org/internal/ids"
)

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type grantRequest struct {
	PermissionID  string     `json:"permission_id,omitempty"`
	PermissionIDs []string   `json:"permission_ids,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

type revokeRequest struct {
	PermissionID  string   `json:"permission_id,omitempty"`
	PermissionIDs []string `json:"permission_ids,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createUser(w, r)
	case http.MethodGet:
		a.listUsers(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "users", Action: "create"}) {
		return
	}
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	role := strings.TrimSpace(req.Role)
	if username == "" || email == "" || role == "" {
		writeError(w, r, http.StatusBadRequest, "username, email and role are required")
		return
	}
	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	now := time.Now().UTC()
	user := identity.User{
		ID:           ids.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       identity.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.directory.Create(r.Context(), &user); err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.create", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "users", Action: "view"}) {
		return
	}
	users, err := a.directory.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "user listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		a.getUser(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "permissions":
		a.handleUserPermissions(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "users", Action: "view"}) {
		return
	}
	user, err := a.directory.Find(r.Context(), userID)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUserPermissions(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodPost:
		a.grantPermissions(w, r, userID)
	case http.MethodDelete:
		a.revokePermissions(w, r, userID)
	case http.MethodGet:
		a.listUserPermissions(w, r, userID)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodDelete, http.MethodGet)
	}
}

func (a *API) grantPermissions(w http.ResponseWriter, r *http.Request, userID string) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "permissions", Action: "manage"}) {
		return
	}
	actorID, _ := identity.UserIDFromContext(r.Context())
	var req grantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.PermissionIDs) > 0 {
		res := a.engine.GrantMultiple(r.Context(), userID, req.PermissionIDs, actorID)
		_ = audit.LogEvent(r.Context(), "grant.bulk", map[string]any{
			"user_id": userID,
			"granted": len(res.Granted),
			"failed":  len(res.Failed),
		})
		code := http.StatusCreated
		if len(res.Granted) == 0 && len(res.Failed) > 0 {
			code = http.StatusMultiStatus
		}
		writeJSON(w, code, res)
		return
	}

	if strings.TrimSpace(req.PermissionID) == "" {
		writeError(w, r, http.StatusBadRequest, "permission_id or permission_ids is required")
		return
	}
	grant, err := a.engine.Grant(r.Context(), userID, req.PermissionID, actorID, req.ExpiresAt)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "grant.create", map[string]any{
		"grant_id":      grant.ID,
		"user_id":       grant.UserID,
		"permission_id": grant.PermissionID,
	})
	writeJSON(w, http.StatusCreated, grant)
}

func (a *API) revokePermissions(w http.ResponseWriter, r *http.Request, userID string) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "permissions", Action: "manage"}) {
		return
	}
	actorID, _ := identity.UserIDFromContext(r.Context())
	var req revokeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.PermissionIDs) > 0 {
		res := a.engine.RevokeMultiple(r.Context(), userID, req.PermissionIDs, actorID, req.Reason)
		_ = audit.LogEvent(r.Context(), "revoke.bulk", map[string]any{
			"user_id": userID,
			"revoked": len(res.Revoked),
			"failed":  len(res.Failed),
		})
		writeJSON(w, http.StatusOK, res)
		return
	}

	if strings.TrimSpace(req.PermissionID) == "" {
		writeError(w, r, http.StatusBadRequest, "permission_id or permission_ids is required")
		return
	}
	grant, err := a.engine.Revoke(r.Context(), userID, req.PermissionID, actorID, req.Reason)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "revoke.create", map[string]any{
		"grant_id":      grant.ID,
		"user_id":       grant.UserID,
		"permission_id": grant.PermissionID,
		"reason":        grant.RevocationReason,
	})
	writeJSON(w, http.StatusOK, grant)
}

func (a *API) listUserPermissions(w http.ResponseWriter, r *http.Request, userID string) {
	if !a.requireDecision(w, r, authz.ByResourceAction{Resource: "users", Action: "view"}) {
		return
	}
	if r.URL.Query().Get("include") == "all" {
		grants, err := a.engine.UserGrants(r.Context(), userID)
		if err != nil {
			handleAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"grants": grants})
		return
	}
	seq, err := a.engine.EffectivePermissions(r.Context(), userID)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	perms := make([]authz.Permission, 0, 8)
	for p := range seq {
		perms = append(perms, p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func handleIdentityError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "user operation failed")
	}
}
