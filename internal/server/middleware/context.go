package middleware

import "context"

type contextKey string

const (
	ContextKeyUser     contextKey = "user"
	ContextKeyUserRole contextKey = "role"
)

// UserFromContext returns the token subject set by Auth.
func UserFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUser).(string)
	return v, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUserRole).(string)
	return v, ok
}
