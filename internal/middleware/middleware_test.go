package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diewo77/cna-billing/i18n"
	"github.com/diewo77/cna-billing/internal/lib/logger"
	"github.com/diewo77/cna-billing/internal/session"
)

func langOf(t *testing.T, mw func(http.Handler) http.Handler, r *http.Request) string {
	t.Helper()
	var got string
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = i18n.FromContext(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), r)
	return got
}

func withSession(r *http.Request, s *session.Session) *http.Request {
	return r.WithContext(session.WithSession(r.Context(), s))
}

func TestLanguagePrecedence(t *testing.T) {
	mw := Language("en", []string{"en", "es"})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "en", langOf(t, mw, r), "fallback")

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept-Language", "es-ES,es;q=0.9")
	assert.Equal(t, "es", langOf(t, mw, r), "browser")

	s := session.New()
	r = withSession(httptest.NewRequest(http.MethodGet, "/?lang=es", nil), s)
	assert.Equal(t, "es", langOf(t, mw, r), "query")
	assert.Equal(t, "es", s.Language(), "query choice is remembered")

	r = withSession(httptest.NewRequest(http.MethodGet, "/?lang=en", nil), s)
	assert.Equal(t, "es", langOf(t, mw, r), "session wins over query")

	r = httptest.NewRequest(http.MethodGet, "/?lang=fr", nil)
	assert.Equal(t, "en", langOf(t, mw, r), "unsupported query is ignored")
}

func TestLanguageRespectsConfiguredSubset(t *testing.T) {
	mw := Language("es", []string{"en"})
	r := httptest.NewRequest(http.MethodGet, "/?lang=es", nil)
	assert.Equal(t, "en", langOf(t, mw, r))
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "h") }), mark("a"), mark("b")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "h"}, order)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/clients", nil))
	assert.Contains(t, buf.String(), `"method":"POST"`)
	assert.Contains(t, buf.String(), `"path":"/clients"`)
	assert.Contains(t, buf.String(), `"status":201`)
}

func panicking() http.Handler {
	return http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom <script>") })
}

func TestRecoverDebugShowsStack(t *testing.T) {
	rec := httptest.NewRecorder()
	Recover(logger.Discard(), true, nil)(panicking()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom &lt;script&gt;")
	assert.Contains(t, rec.Body.String(), "goroutine")
}

func TestRecoverUsesErrorPage(t *testing.T) {
	page := func(w http.ResponseWriter, r *http.Request, status int) error {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("generic"))
		return nil
	}
	rec := httptest.NewRecorder()
	Recover(logger.Discard(), false, page)(panicking()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "generic", rec.Body.String())

	failing := func(http.ResponseWriter, *http.Request, int) error { return errors.New("no template") }
	rec = httptest.NewRecorder()
	Recover(logger.Discard(), false, failing)(panicking()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestRecoverJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/invoices/1/payment", nil)
	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	rec := httptest.NewRecorder()
	Recover(logger.Discard(), true, nil)(panicking()).ServeHTTP(rec, r)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Something went wrong"}`, rec.Body.String())
}
