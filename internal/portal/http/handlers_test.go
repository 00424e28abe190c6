package http

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shogun1988/authportal/internal/portal/service"
	"github.com/shogun1988/authportal/internal/portal/store"
	"github.com/shogun1988/authportal/internal/portal/store/drivers/sqlite"
	"github.com/shogun1988/authportal/pkg/cryptox"
	"github.com/shogun1988/authportal/pkg/jwtx"
	"github.com/shogun1988/authportal/pkg/slogx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "portal-http-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type portalFixture struct {
	store  store.Store
	server *httptest.Server
	client *http.Client
}

func newPortal(t *testing.T) *portalFixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer := jwtx.NewSigner("handler-test-secret", "authportal-test")
	logger := slogx.New(slogx.Config{Service: "authportal", Env: "dev", Level: "error", Format: "text"})

	accounts := &service.AccountService{Store: st, Issuer: "AuthPortal"}
	twoFactor := &service.TwoFactorService{Store: st, Issuer: "AuthPortal"}
	reset := &service.ResetService{Store: st, Signer: signer, TokenTTL: time.Hour}

	router, err := NewRouter(RouterConfig{
		Signer:       signer,
		SessionTTL:   time.Hour,
		BuildVersion: "test",
		Logger:       logger,
		Store:        st,
		Accounts:     accounts,
		TwoFactor:    twoFactor,
		Reset:        reset,
	})
	require.NoError(t, err)
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// The router builds reset links from BaseURL; point it at this server.
	router.baseURL = server.URL

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := server.Client()
	client.Jar = jar

	return &portalFixture{store: st, server: server, client: client}
}

func (p *portalFixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := p.client.Get(p.server.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (p *portalFixture) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := p.client.PostForm(p.server.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

// getNoRedirect issues a GET that does not follow redirects, for asserting
// on Location headers.
func (p *portalFixture) getNoRedirect(t *testing.T, path string) *http.Response {
	t.Helper()

	client := &http.Client{
		Jar: p.client.Jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(p.server.URL + path)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func (p *portalFixture) register(t *testing.T, username, password string) string {
	t.Helper()
	resp, body := p.postForm(t, "/register", url.Values{
		"username": {username},
		"password": {password},
		"confirm":  {password},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body
}

func (p *portalFixture) totpSecret(t *testing.T, username string) string {
	t.Helper()
	user, err := p.store.Users().GetUserByUsername(t.Context(), username)
	require.NoError(t, err)
	return user.TOTPSecret
}

func TestRegisterLandsOnSetupPage(t *testing.T) {
	p := newPortal(t)

	body := p.register(t, "alice1", "CorrectPass123!")
	assert.Contains(t, body, "Set up 2-Factor Authentication")
	assert.Contains(t, body, "You are registered. You have to enable 2-Factor Authentication first to login.")
	assert.Contains(t, body, p.totpSecret(t, "alice1"))
	assert.Contains(t, body, "data:image/png;base64,")
}

func TestHomeRedirectsUntilTwoFactorDone(t *testing.T) {
	p := newPortal(t)
	p.register(t, "alice1", "CorrectPass123!")

	resp := p.getNoRedirect(t, "/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/setup-2fa", resp.Header.Get("Location"))
}

func TestWrongPasswordStaysOnLogin(t *testing.T) {
	p := newPortal(t)
	p.register(t, "alice1", "CorrectPass123!")
	p.get(t, "/logout")

	resp, body := p.postForm(t, "/login", url.Values{
		"username": {"alice1"},
		"password": {"WrongPass!"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Please sign in")
	assert.Contains(t, body, "Invalid username and/or password.")
}

func TestUnknownUserShowsRegisterPrompt(t *testing.T) {
	p := newPortal(t)

	resp, body := p.postForm(t, "/login", url.Values{
		"username": {"nosuchuser"},
		"password": {"anything"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Please sign in")
	assert.Contains(t, body, "You are not registered. Please register.")
}

func TestFullLoginFlowWithOTP(t *testing.T) {
	p := newPortal(t)
	p.register(t, "alice1", "CorrectPass123!")

	// Complete 2FA setup with a real code.
	code, err := totp.GenerateCode(p.totpSecret(t, "alice1"), time.Now().UTC())
	require.NoError(t, err)
	resp, body := p.postForm(t, "/verify-2fa", url.Values{"otp": {code}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "2FA setup successful. You are logged in!")
	assert.Contains(t, body, "Welcome, alice1")

	// Fresh session: password alone must not reach Full.
	p.get(t, "/logout")
	resp, body = p.postForm(t, "/login", url.Values{
		"username": {"alice1"},
		"password": {"CorrectPass123!"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Verify your code")

	redirect := p.getNoRedirect(t, "/")
	assert.Equal(t, http.StatusFound, redirect.StatusCode)
	assert.Equal(t, "/verify-2fa", redirect.Header.Get("Location"))

	// Second factor completes the login.
	code, err = totp.GenerateCode(p.totpSecret(t, "alice1"), time.Now().UTC())
	require.NoError(t, err)
	resp, body = p.postForm(t, "/verify-2fa", url.Values{"otp": {code}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "2FA verification successful. You are logged in!")
	assert.Contains(t, body, "Welcome, alice1")
}

func TestInvalidOTPStaysOnVerifyPage(t *testing.T) {
	p := newPortal(t)
	p.register(t, "alice1", "CorrectPass123!")

	resp, body := p.postForm(t, "/verify-2fa", url.Values{"otp": {"000000"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Invalid OTP. Please try again.")
	assert.Contains(t, body, "Verify your code")
}

var resetLinkPattern = regexp.MustCompile(`/reset-password/[A-Za-z0-9._~-]+`)

func TestPasswordResetFlow(t *testing.T) {
	p := newPortal(t)
	p.register(t, "alice1", "OldPass123!")
	p.get(t, "/logout")

	resp, body := p.postForm(t, "/forgot-password", url.Values{"username": {"alice1"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Copy the reset link below to reset your password.")

	link := resetLinkPattern.FindString(body)
	require.NotEmpty(t, link, "page must contain a reset link")

	// The link renders the new-password form.
	resp, body = p.get(t, link)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Choose a new password")

	resp, body = p.postForm(t, link, url.Values{
		"password": {"NewPass456!"},
		"confirm":  {"NewPass456!"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Password has been reset. Please login.")

	// The same link is dead now.
	resp, body = p.postForm(t, link, url.Values{
		"password": {"ThirdPass789!"},
		"confirm":  {"ThirdPass789!"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Reset link already used or invalid.")

	// Old password fails, new one works.
	resp, body = p.postForm(t, "/login", url.Values{
		"username": {"alice1"},
		"password": {"OldPass123!"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Invalid username and/or password.")

	resp, body = p.postForm(t, "/login", url.Values{
		"username": {"alice1"},
		"password": {"NewPass456!"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "You have not enabled 2-Factor Authentication. Please enable first to login.")
}

func TestForgotPasswordUnknownUser(t *testing.T) {
	p := newPortal(t)

	resp, body := p.postForm(t, "/forgot-password", url.Values{"username": {"nosuchuser"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "If the username exists, a reset link will be shown below.")
	assert.NotContains(t, body, "/reset-password/")
}

func TestGarbageResetLinkRedirects(t *testing.T) {
	p := newPortal(t)

	resp, body := p.get(t, "/reset-password/not-a-real-token")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Invalid reset link.")
	assert.Contains(t, body, "Forgot password")
}

func TestRegisterValidation(t *testing.T) {
	p := newPortal(t)

	resp, body := p.postForm(t, "/register", url.Values{
		"username": {"alice1"},
		"password": {"CorrectPass123!"},
		"confirm":  {"Mismatch!"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Passwords must match.")
	assert.Contains(t, body, "Create your account")
}

func TestDuplicateRegistration(t *testing.T) {
	p := newPortal(t)
	p.register(t, "alice1", "CorrectPass123!")
	p.get(t, "/logout")

	resp, body := p.postForm(t, "/register", url.Values{
		"username": {"alice1"},
		"password": {"OtherPass123!"},
		"confirm":  {"OtherPass123!"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Registration failed. Please try again.")
}

func TestLogoutClearsSession(t *testing.T) {
	p := newPortal(t)
	p.register(t, "alice1", "CorrectPass123!")

	_, body := p.get(t, "/logout")
	assert.Contains(t, body, "You were logged out.")
	assert.Contains(t, body, "Please sign in")

	resp := p.getNoRedirect(t, "/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestHealthProbes(t *testing.T) {
	p := newPortal(t)

	resp, body := p.get(t, "/livez")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)

	resp, body = p.get(t, "/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"database":"ok"`)
}

func TestContactPageRequiresFullAuth(t *testing.T) {
	p := newPortal(t)

	resp := p.getNoRedirect(t, "/contact")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	p.register(t, "alice1", "CorrectPass123!")
	code, err := totp.GenerateCode(p.totpSecret(t, "alice1"), time.Now().UTC())
	require.NoError(t, err)
	p.postForm(t, "/verify-2fa", url.Values{"otp": {code}})

	respOK, body := p.get(t, "/contact")
	assert.Equal(t, http.StatusOK, respOK.StatusCode)
	assert.Contains(t, body, "Contact")
	assert.False(t, strings.Contains(body, "Please log in to access this page."))
}
