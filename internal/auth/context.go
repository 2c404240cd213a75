package auth

import "context"

type roleCtxKey struct{}

func ContextWithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleCtxKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	if role, ok := ctx.Value(roleCtxKey{}).(string); ok {
		return role
	}
	return ""
}
