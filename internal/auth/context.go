package auth

import (
	"context"

	"github.com/taskly/taskly-be/internal/models"
)

type contextKey string

const (
	userContextKey  = contextKey("authUser")
	tokenContextKey = contextKey("authToken")
)

// WithUser attaches the authenticated user and the raw token string to the
// request context.
func WithUser(ctx context.Context, user models.User, token string) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, tokenContextKey, token)
}

// UserFromContext returns the authenticated user placed by the middleware.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// TokenFromContext returns the raw token string the request authenticated
// with. Logout uses it to remove exactly that token.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok
}
