package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diewo77/cna-billing/internal/lib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(store Store) *Manager {
	m := NewManager(store, Options{CookieName: "sid", Lifetime: time.Hour, HTTPOnly: true, SameSite: http.SameSiteStrictMode}, logger.Discard())
	m.now = fixedNow
	return m
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sid" {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestManagerPersistsAcrossRequests(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(store)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		if r.URL.Path == "/set" {
			s.Flash(FlashSuccess, "hello")
			http.Redirect(w, r, "/get", http.StatusSeeOther)
			return
		}
		msgs := s.TakeFlash(FlashSuccess)
		if len(msgs) > 0 {
			_, _ = w.Write([]byte(msgs[0]))
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/set", nil))
	c := sessionCookie(t, rec)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "hello", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/get", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Body.String())
}

func TestManagerRegenerateSendsNewCookieAndDropsOldID(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(store)

	var oldID string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		oldID = s.ID()
		s.Regenerate()
		s.SetUser("u1")
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	c := sessionCookie(t, rec)
	assert.NotEqual(t, oldID, c.Value)

	_, err := store.Load(t.Context(), oldID)
	assert.ErrorIs(t, err, ErrNotFound)
	d, err := store.Load(t.Context(), c.Value)
	require.NoError(t, err)
	assert.Equal(t, "u1", d.UserID)
}

func TestManagerRegeneratesStaleAuthenticatedSessions(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(store)
	stale := &Data{UserID: "u1", RegeneratedAt: fixedNow().Add(-6 * time.Minute)}
	require.NoError(t, store.Save(t.Context(), "old", stale, time.Hour))

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		seen = s.UserID()
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "old"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "u1", seen)
	c := sessionCookie(t, rec)
	assert.NotEqual(t, "old", c.Value)
	_, err := store.Load(t.Context(), "old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerUnknownCookieStartsFresh(t *testing.T) {
	m := newTestManager(NewMemoryStore())
	var s *Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "forged"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, s)
	assert.NotEqual(t, "forged", s.ID())
	assert.False(t, s.IsAuthenticated())
}

func TestManagerDoesNotStoreBlankSessions(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(store)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	for range 100 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Empty(t, rec.Result().Cookies())
	}
	assert.Equal(t, 0, store.Len())
}

func TestManagerCookielessSessionsArePruned(t *testing.T) {
	now := fixedNow()
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	m := NewManager(store, Options{CookieName: "sid", Lifetime: time.Minute}, logger.Discard())
	m.now = func() time.Time { return now }

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(FromContext(r.Context()).CSRFToken()))
	}))
	serve := func(n int) {
		for range n {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/login", nil))
		}
	}

	serve(1000)
	assert.Equal(t, 1000, store.Len())

	now = now.Add(24 * time.Hour)
	serve(1000)
	assert.Equal(t, 2000, store.Len())
	assert.Equal(t, 1000, store.Prune(now))
	assert.Equal(t, 1000, store.Len())
}
