package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/cna-billing/auth"
	"github.com/diewo77/cna-billing/internal/db"
	"github.com/diewo77/cna-billing/internal/lib/sl"
	"github.com/diewo77/cna-billing/internal/metrics"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/diewo77/cna-billing/internal/repository"
	"github.com/diewo77/cna-billing/internal/security"
	"github.com/diewo77/cna-billing/internal/session"
	"github.com/diewo77/cna-billing/validation"
	"github.com/diewo77/cna-billing/view"
)

// LoginLimit bounds login attempts per visitor and email.
type LoginLimit struct {
	Max    int
	Window time.Duration
}

type AuthHandler struct {
	Base
	users    *repository.UserRepository
	hasher   auth.Hasher
	remember *auth.Remember
	audit    *security.AuditLog
	limit    LoginLimit
}

// NewAuthHandler builds the login, registration and logout controller. remember and audit may be nil.
func NewAuthHandler(b Base, users *repository.UserRepository, hasher auth.Hasher, remember *auth.Remember, audit *security.AuditLog, limit LoginLimit) *AuthHandler {
	if limit.Max < 1 {
		limit.Max = 5
	}
	if limit.Window <= 0 {
		limit.Window = 15 * time.Minute
	}
	return &AuthHandler{Base: b, users: users, hasher: hasher, remember: remember, audit: audit, limit: limit}
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "auth/login.html", map[string]any{view.LayoutKey: view.LayoutAuth})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !validCSRF(r) {
		h.audit.Event(r, security.EventCSRFFailed, "", false, map[string]any{"path": r.URL.Path})
		rejectCSRF(w, r, "/login")
		return
	}
	s := session.FromContext(r.Context())
	in := formValues(r, "email")
	in["email"] = strings.ToLower(in["email"])
	password := r.PostFormValue("password")

	errs := h.Validator.Validate(lang(r), validation.Rules{"email": "required|email"}, in)
	if password == "" {
		errs.Add("password", tr(r, "validation.required", validation.Label(lang(r), "password")))
	}
	if !errs.Empty() {
		invalid(w, r, errs, in, "/login")
		return
	}

	identifier := security.ClientIP(r) + "|" + in["email"]
	if !s.Allow(identifier, h.limit.Max, h.limit.Window, h.Now()) {
		h.audit.Event(r, security.EventLoginRateLimited, "", false, map[string]any{"email": in["email"]})
		metrics.RecordLogin("rate_limited")
		s.SetOld(in)
		flash(r, session.FlashError, tr(r, "auth.rate_limited"))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	u, err := h.users.FindForLogin(r.Context(), in["email"])
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.failed(w, r, err, "errors.server", "/login")
		return
	}
	if u == nil || !h.verify(password, u.PasswordHash) {
		h.audit.Event(r, security.EventLoginFailed, "", false, map[string]any{"email": in["email"]})
		metrics.RecordLogin("failed")
		s.SetOld(in)
		flash(r, session.FlashError, tr(r, "auth.login_failed"))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if !u.IsActive {
		h.audit.Event(r, security.EventLoginFailed, u.ID, false, map[string]any{"reason": "inactive"})
		metrics.RecordLogin("failed")
		flash(r, session.FlashError, tr(r, "auth.account_inactive"))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	now := h.Now()
	s.ResetAttempts(identifier)
	s.Regenerate()
	s.SetUser(u.ID)
	if err := h.users.UpdateLastLogin(r.Context(), u.ID, now.UTC()); err != nil {
		h.Log.Warn("failed to stamp last login", slog.String("user_id", u.ID), sl.Err(err))
	}
	if h.remember != nil && r.PostFormValue("remember") != "" {
		if err := h.remember.SetCookie(w, u.ID, now); err != nil {
			h.Log.Warn("failed to issue remember cookie", sl.Err(err))
		}
	}
	h.audit.Event(r, security.EventLoginSuccess, u.ID, true, nil)
	metrics.RecordLogin("success")
	flash(r, session.FlashSuccess, tr(r, "auth.login_success", u.FirstName))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) verify(password, hash string) bool {
	ok, err := h.hasher.Verify(password, hash)
	if err != nil {
		h.Log.Warn("stored password hash rejected", sl.Err(err))
		return false
	}
	return ok
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "auth/register.html", map[string]any{view.LayoutKey: view.LayoutAuth})
}

var registerRules = validation.Rules{
	"username":   "required|min:3|max:50",
	"email":      "required|email|max:255",
	"first_name": "required|max:100",
	"last_name":  "required|max:100",
	"password":   "required|min:8",
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !validCSRF(r) {
		rejectCSRF(w, r, "/register")
		return
	}
	ctx := r.Context()
	in := formValues(r, "username", "email", "first_name", "last_name")
	in["email"] = strings.ToLower(in["email"])
	in["password"] = r.PostFormValue("password")

	errs := h.Validator.Validate(lang(r), registerRules, in)
	if in["password"] != r.PostFormValue("password_confirm") {
		errs.Add("password_confirm", tr(r, "auth.password_mismatch"))
	}
	if _, failed := errs["email"]; !failed {
		taken, err := h.users.IsEmailTaken(ctx, in["email"], "")
		if err != nil {
			h.failed(w, r, err, "auth.register_failed", "/register")
			return
		}
		if taken {
			errs.Add("email", tr(r, "auth.email_taken"))
		}
	}
	if _, failed := errs["username"]; !failed {
		taken, err := h.users.IsUsernameTaken(ctx, in["username"], "")
		if err != nil {
			h.failed(w, r, err, "auth.register_failed", "/register")
			return
		}
		if taken {
			errs.Add("username", tr(r, "auth.username_taken"))
		}
	}
	delete(in, "password")
	if !errs.Empty() {
		invalid(w, r, errs, in, "/register")
		return
	}

	hash, err := h.hasher.Hash(r.PostFormValue("password"))
	if err != nil {
		h.failed(w, r, err, "auth.register_failed", "/register")
		return
	}
	id, err := h.users.Create(ctx, db.Fields{
		"username":      in["username"],
		"email":         in["email"],
		"password_hash": hash,
		"first_name":    in["first_name"],
		"last_name":     in["last_name"],
		"role":          string(models.RoleUser),
		"is_active":     true,
	})
	if err != nil {
		h.failed(w, r, err, "auth.register_failed", "/register")
		return
	}
	h.audit.Event(r, security.EventUserRegistered, id, true, map[string]any{"username": in["username"]})
	flash(r, session.FlashSuccess, tr(r, "auth.register_success"))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Logout ends the session on GET as well as POST; a POST must carry the CSRF token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && !validCSRF(r) {
		rejectCSRF(w, r, "/dashboard")
		return
	}
	s := session.FromContext(r.Context())
	if s != nil {
		h.audit.Event(r, security.EventLogout, s.UserID(), true, nil)
		s.Logout()
	}
	if h.remember != nil {
		h.remember.ClearCookie(w)
	}
	flash(r, session.FlashInfo, tr(r, "auth.logout_success"))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
