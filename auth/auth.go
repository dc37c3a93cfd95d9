// Package auth resolves the current user of a request and guards routes that need one.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/diewo77/cna-billing/httpx"
	"github.com/diewo77/cna-billing/i18n"
	"github.com/diewo77/cna-billing/internal/lib/sl"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/diewo77/cna-billing/internal/session"
)

type ctxKey string

const userCtxKey = ctxKey("user")

// UserFinder loads a user by id.
type UserFinder interface {
	Find(ctx context.Context, id string) (*models.User, error)
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userCtxKey, u)
}

// UserFromContext returns the authenticated user, or nil for guests.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userCtxKey).(*models.User)
	return u
}

// Authenticator resolves the request user from the session, falling back to the remember-me cookie.
type Authenticator struct {
	users    UserFinder
	remember *Remember
	log      *slog.Logger
	now      func() time.Time
}

// New builds an Authenticator. remember may be nil to disable remember-me logins.
func New(users UserFinder, remember *Remember, log *slog.Logger) *Authenticator {
	return &Authenticator{users: users, remember: remember, log: log, now: time.Now}
}

// Middleware attaches the current user to the request context. It must run inside the session
// middleware. Sessions pointing at missing or inactive users are logged out.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())
		if s == nil {
			next.ServeHTTP(w, r)
			return
		}
		if uid := s.UserID(); uid != "" {
			if u := a.active(r.Context(), uid); u != nil {
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
				return
			}
			s.Logout()
		}
		if u := a.fromRemember(w, r); u != nil {
			s.Regenerate()
			s.SetUser(u.ID)
			r = r.WithContext(WithUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) fromRemember(w http.ResponseWriter, r *http.Request) *models.User {
	if a.remember == nil {
		return nil
	}
	c, err := r.Cookie(RememberCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	uid, err := a.remember.Parse(c.Value, a.now())
	if err != nil {
		a.log.Debug("remember token rejected", sl.Err(err))
		a.remember.ClearCookie(w)
		return nil
	}
	u := a.active(r.Context(), uid)
	if u == nil {
		a.remember.ClearCookie(w)
	}
	return u
}

func (a *Authenticator) active(ctx context.Context, id string) *models.User {
	u, err := a.users.Find(ctx, id)
	if err != nil || !u.IsActive {
		return nil
	}
	return u
}

// RequireAuth lets authenticated requests through. Guests get 401 JSON when they asked for JSON,
// otherwise a flash message and a redirect to /login.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		lang := i18n.FromContext(r.Context())
		if httpx.WantsJSON(r) {
			httpx.Result(w, http.StatusUnauthorized, false, i18n.T(lang, "auth.access_denied"), nil)
			return
		}
		if s := session.FromContext(r.Context()); s != nil {
			s.Flash(session.FlashError, i18n.T(lang, "auth.access_denied"))
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}

// RedirectIfAuthenticated sends logged-in users away from guest-only pages such as /login.
func RedirectIfAuthenticated(to string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFromContext(r.Context()) != nil {
				http.Redirect(w, r, to, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
