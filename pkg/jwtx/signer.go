package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired reports a structurally valid token past its expiry window.
	ErrExpired = errors.New("jwtx: token expired")
	// ErrInvalid reports a malformed token or a bad signature.
	ErrInvalid = errors.New("jwtx: token invalid")
)

// Signer mints and verifies HMAC-SHA256 tokens with a single server-held
// secret. This application both issues and verifies its own tokens in one
// process, so a symmetric key is sufficient.
type Signer struct {
	key    []byte
	issuer string
}

func NewSigner(secret, issuer string) *Signer {
	return &Signer{key: []byte(secret), issuer: issuer}
}

// Issuer returns the configured "iss" value.
func (s *Signer) Issuer() string { return s.issuer }

// Sign serialises and signs the given claims.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// VerifySession parses and validates a session cookie token.
func (s *Signer) VerifySession(raw string) (SessionClaims, error) {
	var claims SessionClaims
	if err := s.verify(raw, &claims); err != nil {
		return SessionClaims{}, err
	}
	return claims, nil
}

// VerifyReset parses and validates a password-reset token, including its
// purpose claim. Expiry is reported distinctly so the caller can show the
// "link expired" message rather than the generic invalid one.
func (s *Signer) VerifyReset(raw string) (ResetClaims, error) {
	var claims ResetClaims
	if err := s.verify(raw, &claims); err != nil {
		return ResetClaims{}, err
	}
	if claims.Purpose != PurposePasswordReset {
		return ResetClaims{}, ErrInvalid
	}
	return claims, nil
}

func (s *Signer) verify(raw string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrInvalid
	}
}
