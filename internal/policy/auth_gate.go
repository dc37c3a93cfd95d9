package policy

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/cna-billing/auth"
	"github.com/diewo77/cna-billing/gate"
	"github.com/diewo77/cna-billing/httpx"
	"github.com/diewo77/cna-billing/i18n"
	"github.com/diewo77/cna-billing/internal/security"
	"github.com/diewo77/cna-billing/internal/session"
)

// AuthGate is the application's authorization checkpoint.
type AuthGate struct {
	Gate  *gate.Gate[string]
	Cache *gate.CachedResolver[string]
	Audit *security.AuditLog // denials are recorded here when set
}

// NewAuthGate builds a gate over the database roles, caching lookups for cacheTTL.
func NewAuthGate(users RoleFinder, cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver[string](NewDBRoleResolver(users, DefaultRoles()), cacheTTL)
	g := gate.New[string](cached)
	g.Register(ResourceUser, gate.PolicyFunc[string](accountPolicy))
	return &AuthGate{Gate: g, Cache: cached}
}

func currentUserID(ctx context.Context) string {
	if u := auth.UserFromContext(ctx); u != nil {
		return u.ID
	}
	return ""
}

// Authorize checks the request user against resourceType and, when given, the record.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	return ag.Gate.Authorize(ctx, currentUserID(ctx), action, resourceType, resource)
}

// Can is Authorize as a bool.
func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	return ag.Authorize(ctx, action, resourceType, resource) == nil
}

// CanRole checks only the role of the request user.
func (ag *AuthGate) CanRole(ctx context.Context, action gate.Action, resourceType string) bool {
	return ag.Gate.CanRole(ctx, currentUserID(ctx), action, resourceType)
}

// InvalidateUser forgets the cached role of a user after an admin changes it.
func (ag *AuthGate) InvalidateUser(userID string) {
	ag.Cache.Invalidate(userID)
}

// RequirePermission guards a route with a role permission.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ag.CanRole(r.Context(), action, resourceType) {
				ag.Deny(w, r, action, resourceType)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin guards the user management routes.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return ag.RequirePermission(ResourceUser, gate.ActionManage)
}

// Deny records an access_denied event and answers with Forbidden.
func (ag *AuthGate) Deny(w http.ResponseWriter, r *http.Request, action gate.Action, resourceType string) {
	ag.Audit.Event(r, security.EventAccessDenied, currentUserID(r.Context()), false, map[string]any{
		"resource": resourceType,
		"action":   string(action),
		"path":     r.URL.Path,
	})
	Forbidden(w, r)
}

// Forbidden answers 403 JSON to JSON clients and otherwise flashes auth.forbidden and
// redirects to the dashboard.
func Forbidden(w http.ResponseWriter, r *http.Request) {
	lang := i18n.FromContext(r.Context())
	msg := i18n.T(lang, "auth.forbidden")
	if httpx.WantsJSON(r) {
		httpx.Fail(w, http.StatusForbidden, msg)
		return
	}
	if s := session.FromContext(r.Context()); s != nil {
		s.Flash(session.FlashError, msg)
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
