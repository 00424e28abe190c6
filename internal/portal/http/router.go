package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shogun1988/authportal/internal/portal/domain"
	"github.com/shogun1988/authportal/internal/portal/service"
	"github.com/shogun1988/authportal/internal/portal/store"
	"github.com/shogun1988/authportal/pkg/httpx"
	"github.com/shogun1988/authportal/pkg/jwtx"
	"github.com/shogun1988/authportal/pkg/slogx"
)

// Router holds the shared dependencies for all page handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer        *jwtx.Signer
	sessionTTL    time.Duration
	baseURL       string
	secureCookies bool
	buildVersion  string
	startTime     time.Time
	logger        *slog.Logger
	renderer      *Renderer

	store     store.Store
	accounts  *service.AccountService
	twoFactor *service.TwoFactorService
	reset     *service.ResetService
}

// RouterConfig bundles the Router's dependencies.
type RouterConfig struct {
	Signer        *jwtx.Signer
	SessionTTL    time.Duration
	BaseURL       string
	SecureCookies bool
	BuildVersion  string
	Logger        *slog.Logger

	Store     store.Store
	Accounts  *service.AccountService
	TwoFactor *service.TwoFactorService
	Reset     *service.ResetService
}

func NewRouter(cfg RouterConfig) (*Router, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	rt := &Router{
		Mux:           http.NewServeMux(),
		signer:        cfg.Signer,
		sessionTTL:    cfg.SessionTTL,
		baseURL:       cfg.BaseURL,
		secureCookies: cfg.SecureCookies,
		buildVersion:  cfg.BuildVersion,
		startTime:     time.Now(),
		logger:        cfg.Logger,
		renderer:      renderer,
		store:         cfg.Store,
		accounts:      cfg.Accounts,
		twoFactor:     cfg.TwoFactor,
		reset:         cfg.Reset,
	}

	rt.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(rt.logger),
	}

	return rt, nil
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (rt *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(rt.Mux, rt.middlewares...).ServeHTTP(w, req)
}

func (rt *Router) ApplyRoutes() {
	rt.registerAccountRoutes()
	rt.registerTwoFactorRoutes()
	rt.registerResetRoutes()
	rt.registerPageRoutes()
	rt.registerSystemRoutes()
}

func (rt *Router) registerAccountRoutes() {
	rt.Mux.Handle("GET /register",
		httpx.Chain(http.HandlerFunc(rt.handleRegisterGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	rt.Mux.Handle("POST /register",
		httpx.Chain(http.HandlerFunc(rt.handleRegisterPost),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	rt.Mux.Handle("GET /login",
		httpx.Chain(http.HandlerFunc(rt.handleLoginGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	// Limited by IP + username to slow per-account password guessing.
	rt.Mux.Handle("POST /login",
		httpx.Chain(http.HandlerFunc(rt.handleLoginPost),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)

	rt.Mux.Handle("GET /logout",
		httpx.Chain(http.HandlerFunc(rt.handleLogout),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (rt *Router) registerTwoFactorRoutes() {
	authenticated := []domain.AuthState{
		domain.StateSetupRequired,
		domain.StateVerifyRequired,
		domain.StateFull,
	}

	rt.Mux.Handle("GET /setup-2fa",
		httpx.Chain(rt.requireState(rt.handleSetup2FA, authenticated...),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	rt.Mux.Handle("GET /verify-2fa",
		httpx.Chain(rt.requireState(rt.handleVerify2FAGet, authenticated...),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	// Strict limit to slow OTP brute force (a 6-digit space is small).
	rt.Mux.Handle("POST /verify-2fa",
		httpx.Chain(rt.requireState(rt.handleVerify2FAPost, authenticated...),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (rt *Router) registerResetRoutes() {
	rt.Mux.Handle("GET /forgot-password",
		httpx.Chain(http.HandlerFunc(rt.handleForgotPasswordGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	rt.Mux.Handle("POST /forgot-password",
		httpx.Chain(http.HandlerFunc(rt.handleForgotPasswordPost),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	rt.Mux.Handle("GET /reset-password/{token}",
		httpx.Chain(http.HandlerFunc(rt.handleResetPasswordGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	rt.Mux.Handle("POST /reset-password/{token}",
		httpx.Chain(http.HandlerFunc(rt.handleResetPasswordPost),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (rt *Router) registerPageRoutes() {
	rt.Mux.Handle("GET /{$}",
		httpx.Chain(rt.requireState(rt.handleHome, domain.StateFull),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	rt.Mux.Handle("GET /contact",
		httpx.Chain(rt.requireState(rt.handleContact, domain.StateFull),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (rt *Router) registerSystemRoutes() {
	rt.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(rt.startTime, rt.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	rt.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(rt.startTime, rt.buildVersion, rt.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
