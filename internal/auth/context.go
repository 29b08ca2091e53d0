// ABOUTME: Request-scoped identity for handlers behind the bearer middleware
// ABOUTME: Provides WithUser/FromContext for propagating the caller via context

package auth

import (
	"context"

	"github.com/2389/coven-chat/internal/model"
)

type userContextKey struct{}

// WithUser returns a new context carrying the authenticated user.
func WithUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// FromContext returns the authenticated user, if any.
func FromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(model.User)
	return user, ok
}

// MustFromContext returns the authenticated user, panicking if not present.
func MustFromContext(ctx context.Context) model.User {
	user, ok := FromContext(ctx)
	if !ok {
		panic("auth: user not found in context")
	}
	return user
}
