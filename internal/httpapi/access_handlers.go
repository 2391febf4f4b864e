package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tableside.org/internal/authz"
	"tableside.org/internal/identity"
	"tableside.org/internal/obs"
)

type accessCheckRequest struct {
	Permission   string `json:"permission,omitempty"`
	Resource     string `json:"resource,omitempty"`
	Action       string `json:"action,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
}

type accessCheckResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// handleAccessCheck lets UIs probe a checkpoint before rendering a control.
// The caller asks about itself; the answer is advisory, the real enforcement
// happens on the guarded routes.
func (a *API) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req accessCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ref, err := referenceFromRequest(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	allowed, err := a.evaluator.Decide(r.Context(), userID, ref)
	if err != nil {
		switch {
		case errors.Is(err, authz.ErrUnresolvedReference):
			obs.Warn("access check references unknown permission", map[string]any{
				"user_id":    userID,
				"error":      err.Error(),
				"request_id": RequestIDFromContext(r.Context()),
			})
			writeJSON(w, http.StatusOK, accessCheckResponse{Allowed: false, Reason: "unresolved reference"})
		case errors.Is(err, authz.ErrInvalidContext):
			writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "access check failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, accessCheckResponse{Allowed: allowed})
}

func referenceFromRequest(req accessCheckRequest) (authz.Reference, error) {
	switch {
	case strings.TrimSpace(req.ResourceType) != "" || strings.TrimSpace(req.ResourceID) != "":
		if strings.TrimSpace(req.ResourceType) == "" || strings.TrimSpace(req.ResourceID) == "" ||
			strings.TrimSpace(req.Action) == "" {
			return nil, errors.New("resource_type, resource_id and action are required together")
		}
		return authz.ByInstance{
			ResourceType: req.ResourceType,
			ResourceID:   req.ResourceID,
			Action:       req.Action,
		}, nil
	case strings.TrimSpace(req.Resource) != "" || strings.TrimSpace(req.Action) != "":
		if strings.TrimSpace(req.Resource) == "" || strings.TrimSpace(req.Action) == "" {
			return nil, errors.New("resource and action are required together")
		}
		return authz.ByResourceAction{Resource: req.Resource, Action: req.Action}, nil
	case strings.TrimSpace(req.Permission) != "":
		return authz.ParseReference(req.Permission), nil
	default:
		return nil, errors.New("permission reference is required")
	}
}
