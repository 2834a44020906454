package contxt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vittapcode/homeboard/internal/pkg/model"
)

func TestWithUser_RoundTrips(t *testing.T) {
	ctx := WithUser(context.Background(), model.User{ID: 7, Username: "dana", Role: model.RoleAdmin}, "jwt123")

	user, ok := User(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.Equal(t, "jwt123", Token(ctx))
}

func TestUser_MissingFromContext(t *testing.T) {
	_, ok := User(context.Background())
	assert.False(t, ok)
	assert.Empty(t, Token(context.Background()))
}
