package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shogun1988/authportal/internal/portal/domain"
	"github.com/shogun1988/authportal/internal/portal/store"
	"github.com/shogun1988/authportal/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestUser(username string) domain.User {
	return domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		TOTPSecret:   "JBSWY3DPEHPK3PXP",
	}
}

func TestCreateAndLookupUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := newTestUser("alice")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	byID, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Username, byID.Username)
	require.Equal(t, u.TOTPSecret, byID.TOTPSecret)
	require.Nil(t, byID.TwoFactorEnabled)
	require.Nil(t, byID.ResetNonce)
	require.False(t, byID.CreatedAt.IsZero())

	byName, err := s.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)

	_, err = s.Users().GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Users().CreateUser(ctx, newTestUser("alice")))
	err := s.Users().CreateUser(ctx, newTestUser("alice"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestEnableTwoFactorIsSetOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := newTestUser("alice")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	require.NoError(t, s.Users().EnableTwoFactor(ctx, u.ID))
	first, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, first.TwoFactorEnabled)

	// A second enable must not move the original timestamp.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Users().EnableTwoFactor(ctx, u.ID))
	second, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, first.TwoFactorEnabled.Unix(), second.TwoFactorEnabled.Unix())
}

func TestResetNonceLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := newTestUser("alice")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	require.NoError(t, s.Users().SetResetNonce(ctx, u.ID, "nonce-1"))
	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ResetNonce)
	require.Equal(t, "nonce-1", *got.ResetNonce)
	require.NotNil(t, got.ResetNonceIssuedAt)

	// Overwriting invalidates the previous nonce value.
	require.NoError(t, s.Users().SetResetNonce(ctx, u.ID, "nonce-2"))
	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "nonce-2", *got.ResetNonce)

	require.NoError(t, s.Users().ClearResetNonce(ctx, u.ID))
	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.ResetNonce)
	require.Nil(t, got.ResetNonceIssuedAt)
}

func TestClearStaleResetNonces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	stale := newTestUser("stale")
	fresh := newTestUser("fresh")
	require.NoError(t, s.Users().CreateUser(ctx, stale))
	require.NoError(t, s.Users().CreateUser(ctx, fresh))

	require.NoError(t, s.Users().SetResetNonce(ctx, stale.ID, "old"))
	time.Sleep(20 * time.Millisecond)
	cutoff := time.Now().UTC()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Users().SetResetNonce(ctx, fresh.ID, "new"))

	cleared, err := s.Users().ClearStaleResetNonces(ctx, cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 1, cleared)

	got, err := s.Users().GetUserByID(ctx, stale.ID)
	require.NoError(t, err)
	require.Nil(t, got.ResetNonce)

	got, err = s.Users().GetUserByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ResetNonce)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := newTestUser("alice")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	sentinel := store.ErrAlreadyExists
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, u.ID, "replaced"); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.PasswordHash, got.PasswordHash, "rollback must restore the original hash")
}
