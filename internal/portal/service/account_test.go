package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCreatesAccountWithTOTPSecret(t *testing.T) {
	ctx := context.Background()
	accounts := &AccountService{Store: newTestStore(t), Issuer: "AuthPortal"}

	user, err := accounts.Register(ctx, "alice", "hunter2!")
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, user.TOTPSecret)
	assert.Nil(t, user.TwoFactorEnabled, "2FA must not be enabled at registration")
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$argon2id$"),
		"password must be stored as an argon2id digest, got %q", user.PasswordHash)
	assert.NotContains(t, user.PasswordHash, "hunter2!")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	accounts := &AccountService{Store: newTestStore(t), Issuer: "AuthPortal"}

	_, err := accounts.Register(ctx, "alice", "hunter2!")
	require.NoError(t, err)

	_, err = accounts.Register(ctx, "alice", "other-password")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	accounts := &AccountService{Store: newTestStore(t), Issuer: "AuthPortal"}

	registered, err := accounts.Register(ctx, "alice", "hunter2!")
	require.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		user, err := accounts.Authenticate(ctx, "alice", "hunter2!")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := accounts.Authenticate(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, err := accounts.Authenticate(ctx, "bob", "hunter2!")
		assert.ErrorIs(t, err, ErrUnknownUser)
	})
}

func TestChangePasswordInvalidatesOldOne(t *testing.T) {
	ctx := context.Background()
	accounts := &AccountService{Store: newTestStore(t), Issuer: "AuthPortal"}

	user, err := accounts.Register(ctx, "alice", "old-password")
	require.NoError(t, err)

	require.NoError(t, accounts.ChangePassword(ctx, user.ID, "new-password"))

	_, err = accounts.Authenticate(ctx, "alice", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = accounts.Authenticate(ctx, "alice", "new-password")
	assert.NoError(t, err)
}
