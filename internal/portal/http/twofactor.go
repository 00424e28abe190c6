package http

import (
	"errors"
	"net/http"

	"github.com/shogun1988/authportal/internal/portal/service"
	"github.com/shogun1988/authportal/pkg/jwtx"
	"github.com/shogun1988/authportal/pkg/slogx"
)

// handleSetup2FA renders the provisioning page: QR code plus the base32
// secret. Re-rendering shows the same secret, never a fresh one.
func (rt *Router) handleSetup2FA(w http.ResponseWriter, r *http.Request, sess session) {
	qrImage, err := rt.twoFactor.QRCodePNG(sess.User)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to render provisioning QR", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rt.renderer.Render(w, r, "setup-2fa", viewData{
		Title:    "Set up 2FA",
		Username: sess.User.Username,
		Data: map[string]any{
			"Secret":  sess.User.TOTPSecret,
			"QRImage": qrImage,
		},
	})
}

func (rt *Router) handleVerify2FAGet(w http.ResponseWriter, r *http.Request, sess session) {
	data := viewData{Title: "Verify 2FA", Username: sess.User.Username}
	if !sess.User.TwoFactorConfirmed() {
		data.Flashes = []Flash{{
			Category: "info",
			Message:  "You have not enabled 2-Factor Authentication. Please enable it first.",
		}}
	}
	rt.renderer.Render(w, r, "verify-2fa", data)
}

func (rt *Router) handleVerify2FAPost(w http.ResponseWriter, r *http.Request, sess session) {
	form, fieldErrs := parseTwoFactorForm(r)
	if fieldErrs != nil {
		rt.renderer.Render(w, r, "verify-2fa", viewData{
			Title:    "Verify 2FA",
			Username: sess.User.Username,
			Errors:   fieldErrs,
		})
		return
	}

	wasConfirmed := sess.User.TwoFactorConfirmed()

	err := rt.twoFactor.ConfirmSetup(r.Context(), sess.User, form.OTP)
	switch {
	case errors.Is(err, service.ErrInvalidOTP):
		addFlash(w, r, "danger", "Invalid OTP. Please try again.")
		http.Redirect(w, r, "/verify-2fa", http.StatusSeeOther)
		return
	case err != nil:
		slogx.FromContext(r.Context()).Error("failed to enable two-factor", "error", err)
		addFlash(w, r, "danger", "2FA setup failed. Please try again.")
		http.Redirect(w, r, "/verify-2fa", http.StatusSeeOther)
		return
	}

	// Upgrade the session: both factors are now proven.
	if err := rt.issueSession(w, sess.User, []string{jwtx.AMRPassword, jwtx.AMROTP}); err != nil {
		slogx.FromContext(r.Context()).Error("failed to issue session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if wasConfirmed {
		addFlash(w, r, "success", "2FA verification successful. You are logged in!")
	} else {
		addFlash(w, r, "success", "2FA setup successful. You are logged in!")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
