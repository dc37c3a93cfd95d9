package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/cna-billing/auth"
	"github.com/diewo77/cna-billing/gate"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/diewo77/cna-billing/internal/policy"
	"github.com/diewo77/cna-billing/internal/session"
)

func TestAdminCannotChangeOwnAccount(t *testing.T) {
	e := newEnv(t)
	h := NewAdminUserHandler(e.base, e.users, e.gate)
	admin := e.user(t, "root", models.RoleAdmin, "secret123")
	s := session.New()

	for _, action := range []http.HandlerFunc{h.Deactivate, h.Role} {
		rec := call{method: http.MethodPost, target: "/admin/users/" + admin.ID, form: signed(s, "role", "user"),
			sess: s, user: admin, json: true, path: map[string]string{"id": admin.ID}}.do(action)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "You cannot change your own account", decodeJSON(t, rec)["message"])
	}

	got, err := e.users.Find(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, models.RoleAdmin, got.Role)
}

func TestAdminChangesOtherUsers(t *testing.T) {
	e := newEnv(t)
	e.gate = policy.NewAuthGate(e.users, time.Hour)
	h := NewAdminUserHandler(e.base, e.users, e.gate)
	admin := e.user(t, "root", models.RoleAdmin, "secret123")
	u := e.user(t, "ada", models.RoleUser, "secret123")
	s := session.New()
	path := map[string]string{"id": u.ID}
	ctx := auth.WithUser(context.Background(), u)

	// warm the role cache so the change has to invalidate it
	assert.True(t, e.gate.CanRole(ctx, gate.ActionList, policy.ResourceClient))

	rec := call{method: http.MethodPost, target: "/admin/users/" + u.ID + "/deactivate", form: signed(s),
		sess: s, user: admin, json: true, path: path}.do(h.Deactivate)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, decodeJSON(t, rec)["is_active"])
	assert.False(t, e.gate.CanRole(ctx, gate.ActionList, policy.ResourceClient))

	rec = call{method: http.MethodPost, target: "/admin/users/" + u.ID + "/activate", form: signed(s),
		sess: s, user: admin, path: path}.do(h.Activate)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"User activated"}, s.TakeFlash(session.FlashSuccess))

	rec = call{method: http.MethodPost, target: "/admin/users/" + u.ID + "/role", form: signed(s, "role", "owner"),
		sess: s, user: admin, json: true, path: path}.do(h.Role)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call{method: http.MethodPost, target: "/admin/users/" + u.ID + "/role", form: signed(s, "role", "admin"),
		sess: s, user: admin, json: true, path: path}.do(h.Role)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, e.gate.CanRole(ctx, gate.ActionManage, policy.ResourceUser))
}

func TestRegularUserIsForbidden(t *testing.T) {
	e := newEnv(t)
	h := NewAdminUserHandler(e.base, e.users, e.gate)
	u := e.user(t, "ada", models.RoleUser, "secret123")
	other := e.user(t, "bob", models.RoleUser, "secret123")
	s := session.New()

	rec := call{method: http.MethodPost, target: "/admin/users/" + other.ID + "/deactivate", form: signed(s),
		sess: s, user: u, json: true, path: map[string]string{"id": other.ID}}.do(h.Deactivate)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	got, err := e.users.Find(context.Background(), other.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestAdminUserList(t *testing.T) {
	e := newEnv(t)
	h := NewAdminUserHandler(e.base, e.users, e.gate)
	admin := e.user(t, "root", models.RoleAdmin, "secret123")
	e.user(t, "ada", models.RoleUser, "secret123")

	rec := call{method: http.MethodGet, target: "/admin/users", sess: session.New(), user: admin}.do(h.List)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "ada@example.com")
	assert.NotContains(t, rec.Body.String(), "/admin/users/"+admin.ID+"/role")
}
