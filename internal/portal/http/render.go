package http

import (
	"embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/shogun1988/authportal/pkg/httpx"
	"github.com/shogun1988/authportal/pkg/slogx"
)

//go:embed templates/*.html
var templateFS embed.FS

// Flash is a one-shot message rendered on the next page load. Categories
// mirror bootstrap alert classes: "success", "info", "danger".
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

const flashCookieName = "portal_flash"

// viewData is the payload every template renders with.
type viewData struct {
	Title    string
	Username string
	Flashes  []Flash

	// Errors holds field-level validation messages keyed by form field.
	Errors map[string]string

	// Form echoes submitted values so a failed submission re-renders
	// what the visitor typed.
	Form map[string]string

	// Data carries page-specific values (QR image, reset link, token).
	Data map[string]any
}

// Renderer parses the embedded templates once and renders pages against the
// shared layout.
type Renderer struct {
	templates map[string]*template.Template
}

var pageTemplates = []string{
	"register",
	"login",
	"setup-2fa",
	"verify-2fa",
	"forgot-password",
	"reset-password",
	"index",
	"contact",
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(pageTemplates))}
	for _, page := range pageTemplates {
		t, err := template.ParseFS(templateFS,
			"templates/layout.html",
			fmt.Sprintf("templates/%s.html", page),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		r.templates[page] = t
	}
	return r, nil
}

// Render writes the named page. Pending flashes are consumed here so they
// only ever show once.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, page string, data viewData) {
	t, ok := rd.templates[page]
	if !ok {
		slogx.FromContext(r.Context()).Error("unknown template", "page", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data.Flashes = append(consumeFlashes(w, r), data.Flashes...)
	if data.Errors == nil {
		data.Errors = map[string]string{}
	}
	if data.Form == nil {
		data.Form = map[string]string{}
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		slogx.FromContext(r.Context()).Error("failed to render template", "page", page, "error", err)
	}
}

// addFlash queues a message for the next rendered page. Messages stack if
// several are queued before a render.
func addFlash(w http.ResponseWriter, r *http.Request, category, message string) {
	flashes := append(peekFlashes(r), Flash{Category: category, Message: message})
	raw, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func peekFlashes(r *http.Request) []Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil
	}
	return flashes
}

func consumeFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	flashes := peekFlashes(r)
	if flashes != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return flashes
}
