package authz

import "errors"

// Validation failures are deterministic outcomes of the current data state
// and are never retried; single-item operations surface them to the
// administrative caller, bulk operations collect them per element.
var (
	ErrInvalidInput            = errors.New("authz: invalid input")
	ErrPermissionNotFound      = errors.New("authz: permission not found")
	ErrDuplicateName           = errors.New("authz: permission name already exists")
	ErrDuplicateResourceAction = errors.New("authz: resource/action pair already exists")
	ErrPermissionInactive      = errors.New("authz: permission is inactive")
	ErrUserNotFound            = errors.New("authz: user not found")
	ErrAlreadyGranted          = errors.New("authz: permission already granted")
	ErrNotGranted              = errors.New("authz: permission not granted")
)

// Evaluator failures. Callers conventionally map both to a denial, but the
// distinction lets misconfigured checkpoints be logged separately from
// legitimate access denials.
var (
	ErrInvalidContext      = errors.New("authz: invalid decision context")
	ErrUnresolvedReference = errors.New("authz: permission reference not resolved")
)
