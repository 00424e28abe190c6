package http

import (
	"net/http"
)

// Content pages require the full two-factor state; partial sessions get
// redirected to the step they still owe.

func (rt *Router) handleHome(w http.ResponseWriter, r *http.Request, sess session) {
	rt.renderer.Render(w, r, "index", viewData{
		Title:    "Home",
		Username: sess.User.Username,
	})
}

func (rt *Router) handleContact(w http.ResponseWriter, r *http.Request, sess session) {
	rt.renderer.Render(w, r, "contact", viewData{
		Title:    "Contact",
		Username: sess.User.Username,
	})
}
