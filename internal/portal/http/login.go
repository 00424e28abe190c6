package http

import (
	"errors"
	"net/http"

	"github.com/shogun1988/authportal/internal/portal/domain"
	"github.com/shogun1988/authportal/internal/portal/service"
	"github.com/shogun1988/authportal/pkg/jwtx"
	"github.com/shogun1988/authportal/pkg/slogx"
)

func (rt *Router) handleLoginGet(w http.ResponseWriter, r *http.Request) {
	sess := rt.currentSession(r)
	if sess.State != domain.StateAnonymous {
		rt.redirectAlreadyAuthenticated(w, r, sess, "You are already logged in.")
		return
	}
	rt.renderer.Render(w, r, "login", viewData{Title: "Log in"})
}

func (rt *Router) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	sess := rt.currentSession(r)
	if sess.State != domain.StateAnonymous {
		rt.redirectAlreadyAuthenticated(w, r, sess, "You are already logged in.")
		return
	}

	form, fieldErrs := parseLoginForm(r)
	if fieldErrs != nil {
		rt.renderer.Render(w, r, "login", viewData{
			Title:  "Log in",
			Errors: fieldErrs,
			Form:   formValues(r),
		})
		return
	}

	user, err := rt.accounts.Authenticate(r.Context(), form.Username, form.Password)
	switch {
	case errors.Is(err, service.ErrUnknownUser):
		rt.renderer.Render(w, r, "login", viewData{
			Title:   "Log in",
			Flashes: []Flash{{Category: "danger", Message: "You are not registered. Please register."}},
			Form:    formValues(r),
		})
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		rt.renderer.Render(w, r, "login", viewData{
			Title:   "Log in",
			Flashes: []Flash{{Category: "danger", Message: "Invalid username and/or password."}},
			Form:    formValues(r),
		})
		return
	case err != nil:
		slogx.FromContext(r.Context()).Error("login failed", "error", err)
		rt.renderer.Render(w, r, "login", viewData{
			Title:   "Log in",
			Flashes: []Flash{{Category: "danger", Message: "Login failed. Please try again."}},
			Form:    formValues(r),
		})
		return
	}

	if err := rt.issueSession(w, user, []string{jwtx.AMRPassword}); err != nil {
		slogx.FromContext(r.Context()).Error("failed to issue session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if !user.TwoFactorConfirmed() {
		addFlash(w, r, "info", "You have not enabled 2-Factor Authentication. Please enable first to login.")
		http.Redirect(w, r, "/setup-2fa", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/verify-2fa", http.StatusSeeOther)
}

func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := rt.currentSession(r)
	if sess.State == domain.StateAnonymous {
		rt.redirectToRequiredStep(w, r, sess.State)
		return
	}

	rt.clearSession(w)
	addFlash(w, r, "success", "You were logged out.")
	http.Redirect(w, r, "/login", http.StatusFound)
}
