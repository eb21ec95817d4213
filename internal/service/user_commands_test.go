package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gin-admin-kit/internal/bus"
	"github.com/noah-isme/gin-admin-kit/internal/models"
	appErrors "github.com/noah-isme/gin-admin-kit/pkg/errors"
)

func TestCreateUserWithoutPassword(t *testing.T) {
	env := newTestEnv()

	user, err := bus.DispatchAs[*models.User](context.Background(), env.commands, CreateUser{Name: "Bob", Email: "bob@example.com"}, env.deps)
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash)
	assert.Equal(t, models.RoleUser, user.Role)

	_, err = env.commands.Dispatch(context.Background(), LoginUser{Email: "bob@example.com", Password: ""}, env.deps)
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = env.commands.Dispatch(context.Background(), CreateUser{Name: "Bobby", Email: "bob@example.com"}, env.deps)
	assert.ErrorIs(t, err, appErrors.ErrEmailTaken)

	_, err = env.commands.Dispatch(context.Background(), CreateUser{Name: "", Email: "c@example.com"}, env.deps)
	assert.ErrorIs(t, err, appErrors.ErrInvalidName)
}

func TestPromoteUser(t *testing.T) {
	env := newTestEnv()
	env.register(t, "Alice", "alice@example.com", "pw")

	user, err := bus.DispatchAs[*models.User](context.Background(), env.commands, PromoteUser{Email: "Alice@example.com"}, env.deps)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
	assert.True(t, env.store.userByEmail("alice@example.com").IsAdmin())

	_, err = env.commands.Dispatch(context.Background(), PromoteUser{Email: "ghost@example.com"}, env.deps)
	assert.ErrorIs(t, err, appErrors.ErrUserNotFound)
}

func TestPurgeTokens(t *testing.T) {
	env := newTestEnv()
	pair := env.register(t, "Alice", "alice@example.com", "pw")
	_, err := env.commands.Dispatch(context.Background(), LogoutUser{Token: pair.RefreshToken}, env.deps)
	require.NoError(t, err)
	env.register(t, "Bob", "bob@example.com", "pw")

	purged, err := bus.DispatchAs[int64](context.Background(), env.commands, PurgeTokens{}, env.deps)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	purged, err = bus.DispatchAs[int64](context.Background(), env.commands, PurgeTokens{Before: time.Now().Add(30 * 24 * time.Hour)}, env.deps)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestGetUserQuery(t *testing.T) {
	env := newTestEnv()
	env.register(t, "Alice", "alice@example.com", "pw")
	alice := env.store.userByEmail("alice@example.com")

	user, err := bus.DispatchAs[*models.User](context.Background(), env.queries, GetUser{UserID: alice.ID}, env.qdeps)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	_, err = env.queries.Dispatch(context.Background(), GetUser{UserID: "8a1c2f1e-0c1b-4d6e-9a43-6f1f4b3c2d10"}, env.qdeps)
	assert.ErrorIs(t, err, appErrors.ErrUserNotFound)

	_, err = env.queries.Dispatch(context.Background(), GetUser{UserID: "42"}, env.qdeps)
	assert.ErrorIs(t, err, appErrors.ErrUserNotFound)
}
