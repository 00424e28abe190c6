package http

import (
	"net/http"
	"slices"
	"time"

	"github.com/shogun1988/authportal/internal/portal/domain"
	"github.com/shogun1988/authportal/pkg/jwtx"
	"github.com/shogun1988/authportal/pkg/slogx"
)

const sessionCookieName = "portal_session"

// session is the per-request authentication snapshot. State is derived
// fresh on every request from the cookie claims plus the current user row,
// so enabling 2FA or deleting the account takes effect immediately.
type session struct {
	State  domain.AuthState
	User   domain.User
	Claims jwtx.SessionClaims
}

// currentSession resolves the request's authentication state. Any cookie
// failure degrades to anonymous rather than erroring.
func (rt *Router) currentSession(r *http.Request) session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return session{State: domain.StateAnonymous}
	}

	claims, err := rt.signer.VerifySession(cookie.Value)
	if err != nil {
		return session{State: domain.StateAnonymous}
	}

	user, err := rt.store.Users().GetUserByID(r.Context(), claims.Subject)
	if err != nil {
		slogx.FromContext(r.Context()).Debug("session user lookup failed", "error", err)
		return session{State: domain.StateAnonymous}
	}

	state := domain.StateSetupRequired
	switch {
	case claims.HasAMR(jwtx.AMROTP):
		state = domain.StateFull
	case user.TwoFactorConfirmed():
		state = domain.StateVerifyRequired
	}

	return session{State: state, User: user, Claims: claims}
}

// issueSession sets the signed session cookie for the given user with the
// authentication methods completed so far.
func (rt *Router) issueSession(w http.ResponseWriter, user domain.User, amr []string) error {
	claims := jwtx.NewSessionClaims(user.ID, user.Username, amr,
		rt.sessionTTL, rt.signer.Issuer(), time.Now().UTC())

	token, err := rt.signer.Sign(claims)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(rt.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   rt.secureCookies,
	})
	return nil
}

func (rt *Router) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   rt.secureCookies,
	})
}

// requireState wraps a handler with a precondition on the session state. A
// request arriving in a weaker state is redirected to the step it still has
// to complete; a stronger state falls through to the page guard of the
// target route.
func (rt *Router) requireState(fn func(http.ResponseWriter, *http.Request, session), allowed ...domain.AuthState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := rt.currentSession(r)
		if slices.Contains(allowed, sess.State) {
			fn(w, r, sess)
			return
		}
		rt.redirectToRequiredStep(w, r, sess.State)
	}
}

// redirectToRequiredStep sends the visitor to the next step their state
// demands.
func (rt *Router) redirectToRequiredStep(w http.ResponseWriter, r *http.Request, state domain.AuthState) {
	switch state {
	case domain.StateAnonymous:
		addFlash(w, r, "danger", "Please log in to access this page.")
		http.Redirect(w, r, "/login", http.StatusFound)
	case domain.StateSetupRequired:
		http.Redirect(w, r, "/setup-2fa", http.StatusFound)
	case domain.StateVerifyRequired:
		http.Redirect(w, r, "/verify-2fa", http.StatusFound)
	default:
		http.Redirect(w, r, "/", http.StatusFound)
	}
}
