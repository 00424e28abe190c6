package http

import (
	"errors"
	"net/http"

	"github.com/shogun1988/authportal/internal/portal/domain"
	"github.com/shogun1988/authportal/internal/portal/service"
	"github.com/shogun1988/authportal/pkg/jwtx"
	"github.com/shogun1988/authportal/pkg/slogx"
)

func (rt *Router) handleRegisterGet(w http.ResponseWriter, r *http.Request) {
	sess := rt.currentSession(r)
	if sess.State != domain.StateAnonymous {
		rt.redirectAlreadyAuthenticated(w, r, sess, "You are already registered.")
		return
	}
	rt.renderer.Render(w, r, "register", viewData{Title: "Register"})
}

func (rt *Router) handleRegisterPost(w http.ResponseWriter, r *http.Request) {
	sess := rt.currentSession(r)
	if sess.State != domain.StateAnonymous {
		rt.redirectAlreadyAuthenticated(w, r, sess, "You are already registered.")
		return
	}

	form, fieldErrs := parseRegisterForm(r)
	if fieldErrs != nil {
		rt.renderer.Render(w, r, "register", viewData{
			Title:  "Register",
			Errors: fieldErrs,
			Form:   formValues(r),
		})
		return
	}

	user, err := rt.accounts.Register(r.Context(), form.Username, form.Password)
	if err != nil {
		if !errors.Is(err, service.ErrUsernameTaken) {
			slogx.FromContext(r.Context()).Error("registration failed", "error", err)
		}
		rt.renderer.Render(w, r, "register", viewData{
			Title:   "Register",
			Flashes: []Flash{{Category: "danger", Message: "Registration failed. Please try again."}},
			Form:    formValues(r),
		})
		return
	}

	if err := rt.issueSession(w, user, []string{jwtx.AMRPassword}); err != nil {
		slogx.FromContext(r.Context()).Error("failed to issue session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	addFlash(w, r, "success", "You are registered. You have to enable 2-Factor Authentication first to login.")
	http.Redirect(w, r, "/setup-2fa", http.StatusSeeOther)
}

// redirectAlreadyAuthenticated handles a register or login attempt from an
// existing session: fully signed-in users go home, partial sessions go to
// the step they still owe.
func (rt *Router) redirectAlreadyAuthenticated(w http.ResponseWriter, r *http.Request, sess session, fullMessage string) {
	switch sess.State {
	case domain.StateFull:
		addFlash(w, r, "info", fullMessage)
		http.Redirect(w, r, "/", http.StatusFound)
	case domain.StateSetupRequired:
		addFlash(w, r, "info", "You have not enabled 2-Factor Authentication. Please enable first to login.")
		http.Redirect(w, r, "/setup-2fa", http.StatusFound)
	default:
		http.Redirect(w, r, "/verify-2fa", http.StatusFound)
	}
}
