package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/cna-billing/auth"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/diewo77/cna-billing/internal/session"
)

func newAuthHandler(e *testEnv) *AuthHandler {
	return NewAuthHandler(e.base, e.users, e.hasher, auth.NewRemember("test-key-0123456789abcdef", false), nil,
		LoginLimit{Max: 5, Window: 15 * time.Minute})
}

func login(h *AuthHandler, s *session.Session, email, password string, extra ...string) *http.Response {
	pairs := append([]string{"email", email, "password", password}, extra...)
	rec := call{method: http.MethodPost, target: "/login", form: signed(s, pairs...), sess: s}.do(h.Login)
	return rec.Result()
}

func TestLoginSuccess(t *testing.T) {
	e := newEnv(t)
	h := newAuthHandler(e)
	u := e.user(t, "ada", models.RoleUser, "secret123")
	s := session.New()
	before := s.ID()

	res := login(h, s, "ADA@example.com", "secret123", "remember", "1")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/dashboard", res.Header.Get("Location"))
	assert.Equal(t, u.ID, s.UserID())
	assert.NotEqual(t, before, s.ID())

	var remember string
	for _, c := range res.Cookies() {
		if c.Name == auth.RememberCookie {
			remember = c.Value
		}
	}
	assert.NotEmpty(t, remember)

	got, err := e.users.Find(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.LastLogin.Equal(march))
}

func TestLoginFailures(t *testing.T) {
	e := newEnv(t)
	h := newAuthHandler(e)
	e.user(t, "ada", models.RoleUser, "secret123")
	inactive := e.user(t, "bob", models.RoleUser, "secret123")
	_, err := e.users.SetActive(context.Background(), inactive.ID, false)
	require.NoError(t, err)

	s := session.New()
	res := login(h, s, "ada@example.com", "wrong")
	assert.Equal(t, "/login", res.Header.Get("Location"))
	assert.Equal(t, []string{"Invalid email or password"}, s.TakeFlash(session.FlashError))
	assert.Equal(t, "ada@example.com", s.TakeOld()["email"])
	assert.False(t, s.IsAuthenticated())

	res = login(h, s, "nobody@example.com", "secret123")
	assert.Equal(t, "/login", res.Header.Get("Location"))
	assert.Equal(t, []string{"Invalid email or password"}, s.TakeFlash(session.FlashError))

	res = login(h, s, "bob@example.com", "secret123")
	assert.Equal(t, "/login", res.Header.Get("Location"))
	assert.Equal(t, []string{"Your account has been deactivated"}, s.TakeFlash(session.FlashError))
	assert.False(t, s.IsAuthenticated())

	res = login(h, s, "not-an-email", "")
	assert.Equal(t, "/login", res.Header.Get("Location"))
	errs := s.TakeErrors()
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestLoginRateLimit(t *testing.T) {
	e := newEnv(t)
	h := newAuthHandler(e)
	e.user(t, "ada", models.RoleUser, "secret123")
	s := session.New()

	for i := 0; i < 5; i++ {
		login(h, s, "ada@example.com", "wrong")
		assert.Equal(t, []string{"Invalid email or password"}, s.TakeFlash(session.FlashError), "attempt %d", i+1)
	}
	login(h, s, "ada@example.com", "secret123")
	assert.Equal(t, []string{"Too many login attempts. Please try again later."}, s.TakeFlash(session.FlashError))
	assert.False(t, s.IsAuthenticated())

	// the window is per email, another account still gets through
	e.user(t, "bob", models.RoleUser, "secret123")
	res := login(h, s, "bob@example.com", "secret123")
	assert.Equal(t, "/dashboard", res.Header.Get("Location"))

	// and the limit lifts once the window has passed
	h.Now = func() time.Time { return march.Add(16 * time.Minute) }
	res = login(h, s, "ada@example.com", "secret123")
	assert.Equal(t, "/dashboard", res.Header.Get("Location"))
}

func TestLoginRejectsForgedToken(t *testing.T) {
	e := newEnv(t)
	h := newAuthHandler(e)
	e.user(t, "ada", models.RoleUser, "secret123")
	s := session.New()
	form := signed(s, "email", "ada@example.com", "password", "secret123")
	form.Set(CSRFField, "forged")

	rec := call{method: http.MethodPost, target: "/login", form: form, sess: s}.do(h.Login)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, s.IsAuthenticated())
}

func TestRegister(t *testing.T) {
	e := newEnv(t)
	h := newAuthHandler(e)
	e.user(t, "taken", models.RoleUser, "secret123")
	s := session.New()

	form := signed(s, "username", "taken", "email", "taken@example.com", "first_name", "Ada",
		"last_name", "Lovelace", "password", "secret123", "password_confirm", "other")
	rec := call{method: http.MethodPost, target: "/register", form: form, sess: s}.do(h.Register)
	assert.Equal(t, "/register", rec.Header().Get("Location"))
	errs := s.TakeErrors()
	assert.Equal(t, "Passwords do not match", errs["password_confirm"])
	assert.Equal(t, "This email is already registered", errs["email"])
	assert.Contains(t, errs, "username")
	assert.NotContains(t, s.TakeOld(), "password")

	form = signed(s, "username", "ada", "email", "Ada@Example.com", "first_name", "Ada",
		"last_name", "Lovelace", "password", "secret123", "password_confirm", "secret123")
	rec = call{method: http.MethodPost, target: "/register", form: form, sess: s}.do(h.Register)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	u, err := e.users.FindForLogin(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, u.IsActive)
	ok, err := e.hasher.Verify("secret123", u.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	h := newAuthHandler(e)
	s := session.New()
	s.SetUser("someone")
	s.SetLanguage("es")

	rec := call{method: http.MethodPost, target: "/logout", form: signed(s), sess: s}.do(h.Logout)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, "es", s.Language())
	assert.Len(t, s.TakeFlash(session.FlashInfo), 1)

	s.SetUser("someone")
	rec = call{method: http.MethodGet, target: "/logout", sess: s}.do(h.Logout)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, s.IsAuthenticated())
}

func TestAuthPagesRender(t *testing.T) {
	e := newEnv(t)
	h := newAuthHandler(e)

	rec := call{method: http.MethodGet, target: "/login", sess: session.New()}.do(h.LoginForm)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `name="password"`)

	rec = call{method: http.MethodGet, target: "/register", sess: session.New()}.do(h.RegisterForm)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `name="password_confirm"`)
}
