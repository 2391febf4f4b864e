package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tableside.org/internal/obs"
)

// Reference identifies a permission at a checkpoint. It is a closed set of
// variants resolved through one dispatch in Decide rather than runtime
// string sniffing at every call site.
type Reference interface {
	isReference()
}

// ByName references a catalog entry by its unique name, e.g. "Manage Shops".
type ByName string

// ByResourceAction references a capability by its (resource, action) pair.
type ByResourceAction struct {
	Resource string
	Action   string
}

// ByInstance references an instance-scoped capability, e.g. edit on one
// shop. It composes the synthetic resource key "resourceType:resourceID";
// call sites normally prefer resource-class checks plus their own ownership
// comparison, which the evaluator does not perform.
type ByInstance struct {
	ResourceType string
	ResourceID   string
	Action       string
}

func (ByName) isReference()           {}
func (ByResourceAction) isReference() {}
func (ByInstance) isReference()       {}

// ParseReference interprets a wire-format permission reference: a string
// with exactly two colon-separated segments is (resource, action); any other
// shape is a bare permission name.
func ParseReference(s string) Reference {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) == 2 {
		resource := strings.TrimSpace(parts[0])
		action := strings.TrimSpace(parts[1])
		if resource != "" && action != "" {
			return ByResourceAction{Resource: resource, Action: action}
		}
	}
	return ByName(s)
}

// Evaluator adapts checkpoint permission references into engine calls. It is
// the only component the rest of the application depends on for
// authorization decisions.
type Evaluator struct {
	engine *Engine
}

// NewEvaluator constructs an Evaluator over the engine.
func NewEvaluator(engine *Engine) (*Evaluator, error) {
	if engine == nil {
		return nil, errors.New("authorization engine is required")
	}
	return &Evaluator{engine: engine}, nil
}

// Decide answers whether the user holds the referenced permission.
// A plain denial is (false, nil). ErrInvalidContext reports a missing user
// or malformed reference; ErrUnresolvedReference reports a name no catalog
// entry matches. Callers map both to a rejection but should log them as
// misconfiguration, not as an access denial.
func (e *Evaluator) Decide(ctx context.Context, userID string, ref Reference) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		obs.ObserveDecision("invalid")
		return false, fmt.Errorf("%w: user is required", ErrInvalidContext)
	}
	if ref == nil {
		obs.ObserveDecision("invalid")
		return false, fmt.Errorf("%w: permission reference is required", ErrInvalidContext)
	}

	var (
		allowed bool
		err     error
	)
	switch r := ref.(type) {
	case ByName:
		name := strings.TrimSpace(string(r))
		if name == "" {
			obs.ObserveDecision("invalid")
			return false, fmt.Errorf("%w: empty permission name", ErrInvalidContext)
		}
		allowed, err = e.engine.HasPermissionByName(ctx, userID, name)
		if errors.Is(err, ErrPermissionNotFound) {
			obs.ObserveDecision("unresolved")
			return false, fmt.Errorf("%w: no permission named %q", ErrUnresolvedReference, name)
		}
	case ByResourceAction:
		if strings.TrimSpace(r.Resource) == "" || strings.TrimSpace(r.Action) == "" {
			obs.ObserveDecision("invalid")
			return false, fmt.Errorf("%w: resource and action are required", ErrInvalidContext)
		}
		allowed, err = e.engine.HasPermission(ctx, userID, r.Resource, r.Action)
	case ByInstance:
		if strings.TrimSpace(r.ResourceType) == "" || strings.TrimSpace(r.ResourceID) == "" || strings.TrimSpace(r.Action) == "" {
			obs.ObserveDecision("invalid")
			return false, fmt.Errorf("%w: resource type, id and action are required", ErrInvalidContext)
		}
		resource := strings.TrimSpace(r.ResourceType) + ":" + strings.TrimSpace(r.ResourceID)
		allowed, err = e.engine.HasPermission(ctx, userID, resource, r.Action)
	default:
		obs.ObserveDecision("invalid")
		return false, fmt.Errorf("%w: unsupported reference type %T", ErrInvalidContext, ref)
	}
	if err != nil {
		obs.ObserveDecision("error")
		return false, err
	}
	if allowed {
		obs.ObserveDecision("allow")
	} else {
		obs.ObserveDecision("deny")
	}
	return allowed, nil
}

// Convenience predicates for the checkpoints the application hits most.
// Thin fixed-argument wrappers over Decide, not independent logic.

func (e *Evaluator) CanViewShops(ctx context.Context, userID string) (bool, error) {
	return e.Decide(ctx, userID, ByResourceAction{Resource: "shops", Action: "view"})
}

func (e *Evaluator) CanCreateShops(ctx context.Context, userID string) (bool, error) {
	return e.Decide(ctx, userID, ByResourceAction{Resource: "shops", Action: "create"})
}

func (e *Evaluator) CanEditShops(ctx context.Context, userID string) (bool, error) {
	return e.Decide(ctx, userID, ByResourceAction{Resource: "shops", Action: "edit"})
}

func (e *Evaluator) CanDeleteShops(ctx context.Context, userID string) (bool, error) {
	return e.Decide(ctx, userID, ByResourceAction{Resource: "shops", Action: "delete"})
}

func (e *Evaluator) CanManageUsers(ctx context.Context, userID string) (bool, error) {
	return e.Decide(ctx, userID, ByResourceAction{Resource: "users", Action: "manage"})
}

func (e *Evaluator) CanManagePermissions(ctx context.Context, userID string) (bool, error) {
	return e.Decide(ctx, userID, ByResourceAction{Resource: "permissions", Action: "manage"})
}

func (e *Evaluator) CanViewPermissions(ctx context.Context, userID string) (bool, error) {
	return e.Decide(ctx, userID, ByResourceAction{Resource: "permissions", Action: "view"})
}

func (e *Evaluator) CanViewDashboard(ctx context.Context, userID, dashboardType string) (bool, error) {
	return e.Decide(ctx, userID, ByResourceAction{Resource: "dashboard", Action: dashboardType})
}
