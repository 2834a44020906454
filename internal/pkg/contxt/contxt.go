package contxt

import (
	"context"

	"github.com/vittapcode/homeboard/internal/pkg/model"
)

type key int

const (
	userKey key = iota
	tokenKey
)

// WithUser stores the authenticated user and their raw bearer token on the
// request context.
func WithUser(ctx context.Context, user model.User, token string) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, tokenKey, token)
}

func User(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userKey).(model.User)
	return user, ok
}

// Token returns the raw bearer token, for passthrough calls to the backend.
func Token(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
