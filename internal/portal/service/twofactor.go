package service

import (
	"bytes"
	"context"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/shogun1988/authportal/internal/portal/domain"
	"github.com/shogun1988/authportal/internal/portal/store"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrInvalidOTP reports a TOTP code that does not match any accepted window.
var ErrInvalidOTP = errors.New("invalid TOTP code")

const qrCodeSizePx = 200

// TwoFactorService validates TOTP codes against the per-account secret and
// renders the provisioning material shown during setup. Codes one period
// either side of now are accepted to absorb clock drift.
type TwoFactorService struct {
	Store  store.Store
	Issuer string
}

// ProvisioningKey rebuilds the otpauth key for a user from the stored secret.
// Scanning the same account twice always yields the same secret.
func (s *TwoFactorService) ProvisioningKey(user domain.User) (*otp.Key, error) {
	secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(user.TOTPSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOTP secret: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Username,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		Secret:      secret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build provisioning key: %w", err)
	}
	return key, nil
}

// QRCodePNG renders the provisioning URI as an inline base64 PNG for the
// setup page. No provisioning material is written to disk.
func (s *TwoFactorService) QRCodePNG(user domain.User) (string, error) {
	key, err := s.ProvisioningKey(user)
	if err != nil {
		return "", err
	}

	img, err := key.Image(qrCodeSizePx, qrCodeSizePx)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ValidateCode checks a submitted TOTP code against the user's secret.
func (s *TwoFactorService) ValidateCode(user domain.User, code string) error {
	valid, err := totp.ValidateCustom(code, user.TOTPSecret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !valid {
		return ErrInvalidOTP
	}
	return nil
}

// ConfirmSetup validates the first OTP for an account and stamps the
// two_factor_enabled flag. The flag is set-once at the store level, so a
// re-confirmation on an already-enabled account leaves the original
// timestamp intact.
func (s *TwoFactorService) ConfirmSetup(ctx context.Context, user domain.User, code string) error {
	if err := s.ValidateCode(user, code); err != nil {
		return err
	}
	if user.TwoFactorConfirmed() {
		return nil
	}
	if err := s.Store.Users().EnableTwoFactor(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to enable two-factor: %w", err)
	}
	return nil
}
