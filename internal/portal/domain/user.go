package domain

import "time"

type User struct {
	ID           string
	Username     string
	PasswordHash string // argon2 encoded

	// TOTPSecret is generated once at registration (base32 encoded) and is
	// never regenerated for the lifetime of the account.
	TOTPSecret string

	// TwoFactorEnabled is the timestamp of the first successful OTP
	// verification (nullable). Nil means setup has not been completed.
	TwoFactorEnabled *time.Time

	// ResetNonce is non-nil only while a password-reset request is
	// outstanding. Only the latest nonce value redeems; it is cleared on a
	// successful password change.
	ResetNonce         *string
	ResetNonceIssuedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TwoFactorConfirmed reports whether the account completed 2FA setup.
func (u User) TwoFactorConfirmed() bool {
	return u.TwoFactorEnabled != nil
}
