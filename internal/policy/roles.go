// Package policy wires the gate package to users stored in the database.
package policy

import (
	"context"
	"errors"

	"github.com/diewo77/cna-billing/gate"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/diewo77/cna-billing/internal/repository"
)

// Resource types checked by the gate.
const (
	ResourceClient    = "client"
	ResourceEstimate  = "estimate"
	ResourceInvoice   = "invoice"
	ResourceDashboard = "dashboard"
	ResourceUser      = "user"
)

// DefaultRoles grants admins everything and regular users the business records.
func DefaultRoles() gate.Roles {
	return gate.NewRoles(
		gate.NewRole(string(models.RoleAdmin), gate.PermissionAll),
		gate.NewRole(string(models.RoleUser),
			gate.NewPermission(ResourceClient, gate.Wildcard),
			gate.NewPermission(ResourceEstimate, gate.Wildcard),
			gate.NewPermission(ResourceInvoice, gate.Wildcard),
			gate.NewPermission(ResourceDashboard, gate.ActionView),
		),
	)
}

// RoleFinder returns the role of an active user.
type RoleFinder interface {
	RoleOf(ctx context.Context, id string) (models.Role, error)
}

// DBRoleResolver resolves a user id to its role through the user repository.
// Missing and inactive users resolve to no role.
type DBRoleResolver struct {
	users RoleFinder
	roles gate.Roles
}

// NewDBRoleResolver builds a resolver over users and the role table.
func NewDBRoleResolver(users RoleFinder, roles gate.Roles) *DBRoleResolver {
	return &DBRoleResolver{users: users, roles: roles}
}

func (r *DBRoleResolver) Resolve(ctx context.Context, userID string) (*gate.Role, error) {
	name, err := r.users.RoleOf(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.roles.Lookup(string(name))
}

// accountPolicy stops users from changing their own account through the admin screens.
func accountPolicy(_ context.Context, userID string, action gate.Action, resource any) bool {
	target, ok := resource.(*models.User)
	if !ok {
		return false
	}
	if action == gate.ActionView || action == gate.ActionList {
		return true
	}
	return target.ID != userID
}
