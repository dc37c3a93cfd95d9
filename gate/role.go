package gate

import (
	"context"
	"fmt"
	"sort"
)

// Role is a named set of permissions.
type Role struct {
	name        string
	permissions map[Permission]bool
}

// NewRole builds a role from its permissions.
func NewRole(name string, permissions ...Permission) *Role {
	r := &Role{name: name, permissions: make(map[Permission]bool, len(permissions))}
	for _, p := range permissions {
		r.permissions[p] = true
	}
	return r
}

func (r *Role) Name() string { return r.name }

// Permissions returns the granted permissions in sorted order.
func (r *Role) Permissions() []Permission {
	out := make([]Permission, 0, len(r.permissions))
	for p := range r.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasPermission reports whether any granted permission matches requested.
func (r *Role) HasPermission(requested Permission) bool {
	for p := range r.permissions {
		if p.Matches(requested) {
			return true
		}
	}
	return false
}

// Resolver maps a user to their role. A nil role with a nil error means "no access".
type Resolver[U any] interface {
	Resolve(ctx context.Context, user U) (*Role, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc[U any] func(ctx context.Context, user U) (*Role, error)

// Resolve calls f.
func (f ResolverFunc[U]) Resolve(ctx context.Context, user U) (*Role, error) { return f(ctx, user) }

// Roles is a static table of roles by name.
type Roles map[string]*Role

// NewRoles indexes roles by name.
func NewRoles(roles ...*Role) Roles {
	t := make(Roles, len(roles))
	for _, r := range roles {
		t[r.name] = r
	}
	return t
}

// Lookup returns the role called name or ErrUnknownRole.
func (t Roles) Lookup(name string) (*Role, error) {
	if r, ok := t[name]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("gate: %w %q", ErrUnknownRole, name)
}
