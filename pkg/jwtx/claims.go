package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authentication Methods Reference values carried in the session cookie.
//
//	"pwd": password-based authentication completed
//	"otp": time-based one-time password verified
const (
	AMRPassword = "pwd"
	AMROTP      = "otp"
)

// PurposePasswordReset marks a token as a password-reset grant so a session
// token can never be replayed into the reset endpoint or vice versa.
const PurposePasswordReset = "pwd_reset"

// SessionClaims are the signed contents of the login cookie.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Username for the authenticated user, kept so pages can render the
	// identity without a store lookup.
	Username string `json:"username,omitempty"`

	// AMR lists the authentication methods completed so far. A session is
	// only fully authenticated once it contains both "pwd" and "otp".
	AMR []string `json:"amr,omitempty"`
}

// NewSessionClaims builds minimally-correct session cookie claims.
func NewSessionClaims(subject, username string, amr []string, ttl time.Duration, issuer string, now time.Time) SessionClaims {
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Username: username,
		AMR:      amr,
	}
}

// HasAMR reports whether the session completed the given method.
func (c *SessionClaims) HasAMR(method string) bool {
	return slices.Contains(c.AMR, method)
}

// ResetClaims are the signed contents of a password-reset link. The token is
// self-contained except for the nonce, which is cross-checked against the
// user record to enforce single use.
type ResetClaims struct {
	jwt.RegisteredClaims

	Nonce   string `json:"nonce"`
	Purpose string `json:"purpose"`
}

// NewResetClaims builds reset-link claims binding a user id to a nonce.
func NewResetClaims(subject, nonce string, ttl time.Duration, issuer string, now time.Time) ResetClaims {
	return ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Nonce:   nonce,
		Purpose: PurposePasswordReset,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
