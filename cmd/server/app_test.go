package main

import (
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/cna-billing/auth"
	"github.com/diewo77/cna-billing/internal/config"
	"github.com/diewo77/cna-billing/internal/db"
	"github.com/diewo77/cna-billing/internal/lib/logger"
	"github.com/diewo77/cna-billing/internal/session"
)

var csrfInput = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

type browser struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newTestApp(t *testing.T) *browser {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.App.TemplatesDir = "../../templates"
	cfg.Security.ArgonMemory = 8 * 1024
	cfg.Security.ArgonTime = 1
	cfg.Security.ArgonThreads = 1

	dsn := fmt.Sprintf("file:app_%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(db.Models()...))

	hasher := auth.NewHasher(8*1024, 1, 1)
	created, err := db.SeedAdmin(conn, "admin@example.com", "secret123", hasher.Hash, logger.Discard())
	require.NoError(t, err)
	require.True(t, created)

	app := NewApp(Deps{
		Config:   cfg,
		DB:       conn,
		Sessions: session.NewMemoryStore(),
		Log:      logger.Discard(),
	})
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, srv: srv, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	res, err := b.client.Get(b.srv.URL + path)
	require.NoError(b.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(b.t, err)
	return res, string(body)
}

func (b *browser) post(path string, form url.Values) *http.Response {
	b.t.Helper()
	res, err := b.client.PostForm(b.srv.URL+path, form)
	require.NoError(b.t, err)
	res.Body.Close()
	return res
}

// login signs in through the login form.
func (b *browser) login(email, password string) *http.Response {
	b.t.Helper()
	_, page := b.get("/login")
	m := csrfInput.FindStringSubmatch(page)
	require.Len(b.t, m, 2, "login form has no CSRF field")
	return b.post("/login", url.Values{"csrf_token": {m[1]}, "email": {email}, "password": {password}})
}

func TestPublicRoutes(t *testing.T) {
	b := newTestApp(t)

	res, _ := b.get("/")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/login", res.Header.Get("Location"))

	res, body := b.get("/health")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"ok"`)

	res, _ = b.get("/healthz")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, body = b.get("/does-not-exist")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body, "404")

	res, body = b.get("/metrics")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "http_requests_total")

	res, _ = b.get("/static/app.css")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = b.get("/login")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))
}

func TestProtectedRoutesRedirectGuests(t *testing.T) {
	b := newTestApp(t)
	for _, path := range []string{"/dashboard", "/clients", "/estimates/create", "/invoices", "/admin/users"} {
		res, _ := b.get(path)
		assert.Equal(t, http.StatusSeeOther, res.StatusCode, path)
		assert.Equal(t, "/login", res.Header.Get("Location"), path)
	}
}

func TestLoginFlow(t *testing.T) {
	b := newTestApp(t)

	res := b.login("admin@example.com", "wrong-password")
	assert.Equal(t, "/login", res.Header.Get("Location"))

	res = b.login("admin@example.com", "secret123")
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.Equal(t, "/dashboard", res.Header.Get("Location"))

	res, body := b.get("/dashboard")
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Contains(t, body, "Welcome, System")

	for _, path := range []string{"/clients", "/clients/create", "/estimates", "/estimates/create", "/invoices", "/invoices/create", "/admin/users"} {
		res, body = b.get(path)
		assert.Equal(t, http.StatusOK, res.StatusCode, "%s: %s", path, body)
	}

	// guests-only pages send members home
	res, _ = b.get("/login")
	assert.Equal(t, "/dashboard", res.Header.Get("Location"))

	res, _ = b.get("/logout")
	assert.Equal(t, "/login", res.Header.Get("Location"))
	res, _ = b.get("/dashboard")
	assert.Equal(t, "/login", res.Header.Get("Location"))
}

func TestRegisteredUserCannotManageUsers(t *testing.T) {
	b := newTestApp(t)

	_, page := b.get("/register")
	m := csrfInput.FindStringSubmatch(page)
	require.Len(t, m, 2)
	res := b.post("/register", url.Values{
		"csrf_token": {m[1]}, "username": {"ada"}, "email": {"ada@example.com"},
		"first_name": {"Ada"}, "last_name": {"Lovelace"},
		"password": {"secret123"}, "password_confirm": {"secret123"},
	})
	require.Equal(t, "/login", res.Header.Get("Location"))

	res = b.login("ada@example.com", "secret123")
	require.Equal(t, "/dashboard", res.Header.Get("Location"))

	res, _ = b.get("/clients")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, body := b.get("/admin/users")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode, body)
	assert.Equal(t, "/dashboard", res.Header.Get("Location"))

	_, body = b.get("/dashboard")
	assert.False(t, strings.Contains(body, `href="/admin/users"`))
}
