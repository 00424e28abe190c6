package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shogun1988/authportal/internal/portal/domain"
	"github.com/shogun1988/authportal/internal/portal/store"
	"github.com/shogun1988/authportal/pkg/cryptox"
	"github.com/shogun1988/authportal/pkg/idx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	// ErrUsernameTaken reports a registration attempt against an existing
	// username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrUnknownUser reports an operation against a username that does not
	// exist. Login surfaces this separately from a wrong password.
	ErrUnknownUser = errors.New("user not registered")

	// ErrInvalidCredentials reports a known username with a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AccountService owns registration and password authentication. The
// first-factor outcome never depends on the account's two-factor status;
// handlers derive the post-login state from the returned user.
type AccountService struct {
	Store  store.Store
	Issuer string // Issuer name embedded in provisioning URIs (e.g. "AuthPortal")
}

// Register creates a new account. The password is hashed with Argon2id and
// the TOTP secret is generated here, at registration time, so the account
// carries it for life even though 2FA is not yet enabled.
func (s *AccountService) Register(ctx context.Context, username, password string) (domain.User, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: username,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		TOTPSecret:   key.Secret(),
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return s.Store.Users().GetUserByID(ctx, user.ID)
}

// Authenticate checks the first factor. An unknown username and a wrong
// password are distinct outcomes so the login page can tell the visitor to
// register first.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUnknownUser
		}
		return domain.User{}, fmt.Errorf("failed to load user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// ChangePassword replaces the stored hash for a user. Used by the reset flow
// via RedeemReset; exposed for completeness.
func (s *AccountService) ChangePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.Store.Users().UpdatePasswordHash(ctx, userID, hash)
}
