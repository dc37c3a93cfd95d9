package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/diewo77/cna-billing/gate"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/diewo77/cna-billing/internal/policy"
	"github.com/diewo77/cna-billing/internal/repository"
)

// AdminUserHandler lets administrators activate, deactivate and re-role accounts.
// Users are never deleted.
type AdminUserHandler struct {
	Base
	users *repository.UserRepository
	gate  *policy.AuthGate
}

func NewAdminUserHandler(b Base, users *repository.UserRepository, g *policy.AuthGate) *AdminUserHandler {
	return &AdminUserHandler{Base: b, users: users, gate: g}
}

func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := readListQuery(r)
	data := map[string]any{"Search": q.Search, "Roles": []models.Role{models.RoleAdmin, models.RoleUser}}
	if q.Search != "" {
		users, err := h.users.Search(r.Context(), q.Search)
		if err != nil {
			h.failed(w, r, err, "errors.server", "/dashboard")
			return
		}
		data["Users"] = users
	} else {
		page, err := h.users.Paginate(r.Context(), q.Page, repository.DefaultPerPage)
		if err != nil {
			h.failed(w, r, err, "errors.server", "/dashboard")
			return
		}
		data["Users"] = page.Data
		data["Page"] = page
	}
	h.render(w, r, "admin/users.html", data)
}

func (h *AdminUserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *AdminUserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *AdminUserHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	target, ok := h.target(w, r)
	if !ok {
		return
	}
	if _, err := h.users.SetActive(r.Context(), target.ID, active); err != nil {
		h.failed(w, r, err, "user.update_failed", "/admin/users")
		return
	}
	h.gate.InvalidateUser(target.ID)
	key := "user.deactivated"
	if active {
		key = "user.activated"
	}
	h.Log.Info("user status changed",
		slog.String("user_id", target.ID),
		slog.Bool("active", active),
		slog.String("by", currentUserID(r)),
	)
	result(w, r, http.StatusOK, tr(r, key), map[string]any{"is_active": active}, "/admin/users")
}

func (h *AdminUserHandler) Role(w http.ResponseWriter, r *http.Request) {
	role := models.Role(r.FormValue("role"))
	target, ok := h.target(w, r)
	if !ok {
		return
	}
	if role != models.RoleAdmin && role != models.RoleUser {
		result(w, r, http.StatusBadRequest, tr(r, "status.invalid"), nil, "/admin/users")
		return
	}
	if _, err := h.users.SetRole(r.Context(), target.ID, role); err != nil {
		h.failed(w, r, err, "user.update_failed", "/admin/users")
		return
	}
	h.gate.InvalidateUser(target.ID)
	h.Log.Info("user role changed",
		slog.String("user_id", target.ID),
		slog.String("role", string(role)),
		slog.String("by", currentUserID(r)),
	)
	result(w, r, http.StatusOK, tr(r, "user.role_updated"), map[string]any{"role": role}, "/admin/users")
}

// target checks the CSRF token, loads the user named in the path and asks the gate whether
// the current user may change it. On failure it has already answered.
func (h *AdminUserHandler) target(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	if !validCSRF(r) {
		rejectCSRF(w, r, "/admin/users")
		return nil, false
	}
	u, err := h.users.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		h.lookupFailed(w, r, err, "user.not_found", "/admin/users")
		return nil, false
	}
	err = h.gate.Authorize(r.Context(), gate.ActionUpdate, policy.ResourceUser, u)
	switch {
	case errors.Is(err, gate.ErrUnauthorized) && u.ID == currentUserID(r):
		result(w, r, http.StatusBadRequest, tr(r, "user.self"), nil, "/admin/users")
		return nil, false
	case errors.Is(err, gate.ErrUnauthorized):
		h.gate.Deny(w, r, gate.ActionUpdate, policy.ResourceUser)
		return nil, false
	case err != nil:
		h.failed(w, r, err, "user.update_failed", "/admin/users")
		return nil, false
	}
	return u, true
}
