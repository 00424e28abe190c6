package store

import (
	"context"
	"errors"
	"time"

	"github.com/shogun1988/authportal/internal/portal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. Sub-repositories are exposed as methods so transactional
// and non-transactional access share the same query surface.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to run multi-step mutations (e.g. password reset
	// redemption, which writes the new hash and clears the nonce together).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login and reset requests.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// A duplicate username reports ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// EnableTwoFactor stamps two_factor_enabled. The flag is set-once: a
	// second call on an already-enabled user is a no-op.
	EnableTwoFactor(ctx context.Context, userID string) error

	// SetResetNonce stores a fresh reset nonce, overwriting any outstanding
	// one. The overwrite is what invalidates previously issued reset tokens.
	SetResetNonce(ctx context.Context, userID string, nonce string) error

	// ClearResetNonce nulls the nonce after a successful password change.
	ClearResetNonce(ctx context.Context, userID string) error

	// ClearStaleResetNonces nulls nonces issued before the cutoff. Their
	// tokens are already expired, so the nonces are dead state.
	ClearStaleResetNonces(ctx context.Context, cutoff time.Time) (int64, error)

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}
