// Package gate is a small role/policy authorization system.
//
// A Role grants "resource:action" permissions, with "resource:*" and "*:*" wildcards.
// A Resolver maps a user to a role. Gate combines the role check with optional per-resource
// policies that look at the concrete record being touched.
package gate

import (
	"context"
	"errors"
)

// Sentinel errors returned by Gate.Authorize.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnknownRole  = errors.New("unknown role")
)

// Policy decides on a concrete record once the role check has passed.
// For list/create checks resource is nil and policies are skipped.
type Policy[U any] interface {
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

// Can calls f.
func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}

// Gate checks role permissions first and resource policies second.
type Gate[U comparable] struct {
	resolver Resolver[U]
	policies map[string]Policy[U]
}

// New creates a gate that looks roles up through resolver.
func New[U comparable](resolver Resolver[U]) *Gate[U] {
	return &Gate[U]{resolver: resolver, policies: make(map[string]Policy[U])}
}

// Register sets the policy for a resource type, replacing any previous one.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize returns nil when user may perform action on resourceType (and on resource, when given).
// The zero user is always refused.
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	if !g.CanRole(ctx, user, action, resourceType) {
		return ErrUnauthorized
	}
	if resource == nil {
		return nil
	}
	if p, ok := g.policies[resourceType]; ok && !p.Can(ctx, user, action, resource) {
		return ErrUnauthorized
	}
	return nil
}

// Can is Authorize as a bool.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}

// CanRole checks only the role permission. Templates use it to show or hide controls.
func (g *Gate[U]) CanRole(ctx context.Context, user U, action Action, resourceType string) bool {
	var zero U
	if user == zero {
		return false
	}
	role, err := g.resolver.Resolve(ctx, user)
	if err != nil || role == nil {
		return false
	}
	return role.HasPermission(NewPermission(resourceType, action))
}
