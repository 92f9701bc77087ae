package http

import (
	"context"

	"github.com/tokelabs/sessiond/internal/auth/domain"
)

type userCtxKey struct{}
type sessionCtxKey struct{}

// ContextWithUser attaches the authenticated user to the request context.
func ContextWithUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userCtxKey{}).(domain.User)
	return user, ok
}

// ContextWithSessionID attaches the session identifier alongside the user so
// handlers like change-password can target the current session.
func ContextWithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sid)
}

// SessionIDFromContext returns the current session identifier, if any.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sessionCtxKey{}).(string)
	return sid, ok
}
