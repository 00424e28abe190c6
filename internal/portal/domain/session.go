package domain

// AuthState is the per-request authentication state derived from the session
// cookie and the user record it references.
type AuthState int

const (
	// StateAnonymous: no session, or the cookie failed verification.
	StateAnonymous AuthState = iota

	// StateSetupRequired: password accepted but the account has not enabled
	// two-factor authentication yet. The only way forward is /setup-2fa.
	StateSetupRequired

	// StateVerifyRequired: password accepted and the account has 2FA
	// enabled, but this session has not presented a valid OTP yet.
	StateVerifyRequired

	// StateFull: password and OTP both verified for this session.
	StateFull
)

func (s AuthState) String() string {
	switch s {
	case StateSetupRequired:
		return "setup_required"
	case StateVerifyRequired:
		return "verify_required"
	case StateFull:
		return "full"
	default:
		return "anonymous"
	}
}

// Authenticated reports whether any credential has been presented.
func (s AuthState) Authenticated() bool { return s != StateAnonymous }
