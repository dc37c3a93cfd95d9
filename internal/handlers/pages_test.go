package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/cna-billing/internal/models"
	"github.com/diewo77/cna-billing/internal/services"
	"github.com/diewo77/cna-billing/internal/session"
)

func newPageHandler(e *testEnv, checks map[string]Pinger) *PageHandler {
	dash := services.NewDashboard(e.clients, e.estimates, e.invoices)
	return NewPageHandler(e.base, dash, []string{"en", "es"}, checks)
}

func TestHomeRedirects(t *testing.T) {
	e := newEnv(t)
	h := newPageHandler(e, nil)
	u := e.user(t, "ada", models.RoleUser, "secret123")

	rec := call{method: http.MethodGet, target: "/", sess: session.New()}.do(h.Home)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = call{method: http.MethodGet, target: "/", sess: session.New(), user: u}.do(h.Home)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = call{method: http.MethodGet, target: "/nowhere", sess: session.New()}.do(h.Home)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "404")

	rec = call{method: http.MethodGet, target: "/nowhere", sess: session.New(), json: true}.do(h.Home)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, decodeJSON(t, rec)["success"])
}

func TestLanguage(t *testing.T) {
	e := newEnv(t)
	h := newPageHandler(e, nil)
	s := session.New()

	rec := call{method: http.MethodGet, target: "/lang/ES", sess: s, path: map[string]string{"lang": "ES"},
		header: map[string]string{"Referer": "http://example.com/clients?page=2"}}.do(h.Language)
	assert.Equal(t, "/clients?page=2", rec.Header().Get("Location"))
	assert.Equal(t, "es", s.Language())

	rec = call{method: http.MethodGet, target: "/lang/fr", sess: s, path: map[string]string{"lang": "fr"},
		header: map[string]string{"Referer": "https://evil.test/phish"}}.do(h.Language)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, "es", s.Language())
}

func TestLanguageRefusesOffSiteReferers(t *testing.T) {
	e := newEnv(t)
	h := newPageHandler(e, nil)

	for _, ref := range []string{
		"http://example.com//evil.test/x",
		"http://example.com/\\evil.test/x",
		"//evil.test/x",
		"/%2F/evil.test",
	} {
		rec := call{method: http.MethodGet, target: "/lang/es", sess: session.New(), path: map[string]string{"lang": "es"},
			header: map[string]string{"Referer": ref}}.do(h.Language)
		loc := rec.Header().Get("Location")
		assert.False(t, strings.HasPrefix(loc, "//") || strings.HasPrefix(loc, "/\\"), "%s redirected to %s", ref, loc)
	}

	rec := call{method: http.MethodGet, target: "/lang/es", sess: session.New(), path: map[string]string{"lang": "es"},
		header: map[string]string{"Referer": "http://example.com//evil.test/x"}}.do(h.Language)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestHealthAndReady(t *testing.T) {
	e := newEnv(t)
	h := newPageHandler(e, map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	rec := call{method: http.MethodGet, target: "/health"}.do(h.Health)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeJSON(t, rec)["status"])

	rec = call{method: http.MethodGet, target: "/healthz"}.do(h.Ready)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	checks, _ := decodeJSON(t, rec)["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "connection refused", checks["redis"])
}

func TestDashboardRenders(t *testing.T) {
	e := newEnv(t)
	h := newPageHandler(e, nil)
	u := e.user(t, "ada", models.RoleUser, "secret123")
	cid := e.client(t, "Grace", "Hopper", "")
	e.invoice(t, cid, u.ID, models.InvoiceStatusSent)

	rec := call{method: http.MethodGet, target: "/dashboard", sess: session.New(), user: u}.do(h.Dashboard)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "Grace Hopper")
	assert.Contains(t, body, "INV-")
}
