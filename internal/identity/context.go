package identity

import "context"

type userContextKey struct{}

type contextUser struct {
	id   string
	role string
}

// ContextWithUser attaches the authenticated user to the context.
func ContextWithUser(ctx context.Context, userID, role string) context.Context {
	return context.WithValue(ctx, userContextKey{}, contextUser{id: userID, role: role})
}

// UserIDFromContext extracts the authenticated user id from the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(userContextKey{}).(contextUser)
	if !ok || v.id == "" {
		return "", false
	}
	return v.id, true
}

// RoleFromContext extracts the authenticated user's account role.
func RoleFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(userContextKey{}).(contextUser)
	if !ok || v.role == "" {
		return "", false
	}
	return v.role, true
}
