package http

import (
	"errors"
	"net/http"

	"github.com/shogun1988/authportal/internal/portal/service"
	"github.com/shogun1988/authportal/pkg/slogx"
)

// The forgot-password flow is open to every state, matching the original
// behaviour of letting a half-logged-in visitor recover their account.

func (rt *Router) handleForgotPasswordGet(w http.ResponseWriter, r *http.Request) {
	rt.renderer.Render(w, r, "forgot-password", viewData{Title: "Forgot password"})
}

func (rt *Router) handleForgotPasswordPost(w http.ResponseWriter, r *http.Request) {
	form, fieldErrs := parseForgotPasswordForm(r)
	if fieldErrs != nil {
		rt.renderer.Render(w, r, "forgot-password", viewData{
			Title:  "Forgot password",
			Errors: fieldErrs,
			Form:   formValues(r),
		})
		return
	}

	token, err := rt.reset.RequestReset(r.Context(), form.Username)
	switch {
	case errors.Is(err, service.ErrUnknownUser):
		// Same template, no link. The flash does not confirm or deny the
		// account's existence.
		rt.renderer.Render(w, r, "forgot-password", viewData{
			Title:   "Forgot password",
			Flashes: []Flash{{Category: "info", Message: "If the username exists, a reset link will be shown below."}},
			Form:    formValues(r),
		})
		return
	case err != nil:
		slogx.FromContext(r.Context()).Error("failed to issue reset token", "error", err)
		rt.renderer.Render(w, r, "forgot-password", viewData{
			Title:   "Forgot password",
			Flashes: []Flash{{Category: "danger", Message: "Unable to generate reset link. Please try again."}},
			Form:    formValues(r),
		})
		return
	}

	// No email delivery here: the link is displayed on the page itself.
	rt.renderer.Render(w, r, "forgot-password", viewData{
		Title:   "Forgot password",
		Flashes: []Flash{{Category: "success", Message: "Copy the reset link below to reset your password."}},
		Form:    formValues(r),
		Data: map[string]any{
			"ResetLink": rt.baseURL + "/reset-password/" + token,
		},
	})
}

func (rt *Router) handleResetPasswordGet(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	if _, err := rt.reset.VerifyToken(r.Context(), token); err != nil {
		rt.redirectResetFailure(w, r, err)
		return
	}

	rt.renderer.Render(w, r, "reset-password", viewData{
		Title: "Reset password",
		Data:  map[string]any{"Token": token},
	})
}

func (rt *Router) handleResetPasswordPost(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	form, fieldErrs := parseResetPasswordForm(r)
	if fieldErrs != nil {
		// Re-check the token so an invalid link never renders the form.
		if _, err := rt.reset.VerifyToken(r.Context(), token); err != nil {
			rt.redirectResetFailure(w, r, err)
			return
		}
		rt.renderer.Render(w, r, "reset-password", viewData{
			Title:  "Reset password",
			Errors: fieldErrs,
			Data:   map[string]any{"Token": token},
		})
		return
	}

	err := rt.reset.RedeemToken(r.Context(), token, form.Password)
	switch {
	case err == nil:
		addFlash(w, r, "success", "Password has been reset. Please login.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenInvalid),
		errors.Is(err, service.ErrTokenAlreadyUsed),
		errors.Is(err, service.ErrUserNotFound):
		rt.redirectResetFailure(w, r, err)
	default:
		slogx.FromContext(r.Context()).Error("failed to reset password", "error", err)
		rt.renderer.Render(w, r, "reset-password", viewData{
			Title:   "Reset password",
			Flashes: []Flash{{Category: "danger", Message: "Failed to reset password. Please try again."}},
			Data:    map[string]any{"Token": token},
		})
	}
}

// redirectResetFailure flashes the token-specific failure and sends the
// visitor back to the request page. Every failure responds the same way,
// only the message differs.
func (rt *Router) redirectResetFailure(w http.ResponseWriter, r *http.Request, err error) {
	var message string
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		message = "Reset link expired. Please request a new one."
	case errors.Is(err, service.ErrUserNotFound):
		message = "User not found."
	case errors.Is(err, service.ErrTokenAlreadyUsed):
		message = "Reset link already used or invalid."
	default:
		message = "Invalid reset link."
	}
	addFlash(w, r, "danger", message)
	http.Redirect(w, r, "/forgot-password", http.StatusSeeOther)
}
