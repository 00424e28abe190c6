package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/shogun1988/authportal/internal/portal/domain"
	"github.com/shogun1988/authportal/internal/portal/store"
	"github.com/shogun1988/authportal/pkg/cryptox"
	"github.com/shogun1988/authportal/pkg/jwtx"
)

var (
	// ErrTokenInvalid reports a reset token that is malformed, tampered
	// with, or signed for another purpose.
	ErrTokenInvalid = errors.New("reset token invalid")

	// ErrTokenExpired reports a structurally valid reset token past its
	// expiry window. Checked before the nonce so an expired token never
	// reports as already used.
	ErrTokenExpired = errors.New("reset token expired")

	// ErrTokenAlreadyUsed reports a valid token whose nonce no longer
	// matches the account, either because it was redeemed or because a
	// newer reset request superseded it.
	ErrTokenAlreadyUsed = errors.New("reset token already used")

	// ErrUserNotFound reports a valid token whose subject no longer exists.
	ErrUserNotFound = errors.New("reset token user not found")
)

// ResetService issues and redeems password-reset tokens. A token is a signed
// JWT carrying the user id and a random nonce; the nonce stored on the user
// row is the single-use mechanism. Only the most recently issued token can
// redeem, and redemption clears the nonce so the token dies with it.
type ResetService struct {
	Store    store.Store
	Signer   *jwtx.Signer
	TokenTTL time.Duration
}

// RequestReset issues a reset token for the given username. Any outstanding
// nonce is overwritten, which silently invalidates earlier tokens.
func (s *ResetService) RequestReset(ctx context.Context, username string) (string, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUnknownUser
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	nonce, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset nonce: %w", err)
	}

	if err := s.Store.Users().SetResetNonce(ctx, user.ID, nonce); err != nil {
		return "", fmt.Errorf("failed to store reset nonce: %w", err)
	}

	claims := jwtx.NewResetClaims(user.ID, nonce, s.TokenTTL, s.Signer.Issuer(), time.Now().UTC())
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}
	return token, nil
}

// VerifyToken checks a reset token without consuming it, returning the user
// it grants a reset for. Used to gate the new-password form.
func (s *ResetService) VerifyToken(ctx context.Context, token string) (domain.User, error) {
	user, _, err := s.checkToken(ctx, token)
	return user, err
}

// RedeemToken consumes a reset token: the new password hash is written and
// the nonce cleared in one transaction, so a token can never half-redeem.
func (s *ResetService) RedeemToken(ctx context.Context, token, newPassword string) error {
	user, _, err := s.checkToken(ctx, token)
	if err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if err := tx.Users().ClearResetNonce(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to clear reset nonce: %w", err)
		}
		return nil
	})
}

// checkToken verifies signature, expiry, purpose, and the nonce against the
// current user record, in that order.
func (s *ResetService) checkToken(ctx context.Context, token string) (domain.User, jwtx.ResetClaims, error) {
	claims, err := s.Signer.VerifyReset(token)
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return domain.User{}, jwtx.ResetClaims{}, ErrTokenExpired
	case err != nil:
		return domain.User{}, jwtx.ResetClaims{}, ErrTokenInvalid
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, jwtx.ResetClaims{}, ErrUserNotFound
		}
		return domain.User{}, jwtx.ResetClaims{}, fmt.Errorf("failed to load user: %w", err)
	}

	if user.ResetNonce == nil ||
		subtle.ConstantTimeCompare([]byte(*user.ResetNonce), []byte(claims.Nonce)) != 1 {
		return domain.User{}, jwtx.ResetClaims{}, ErrTokenAlreadyUsed
	}

	return user, claims, nil
}
