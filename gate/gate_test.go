package gate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diewo77/cna-billing/gate"
)

type document struct{ ownerID string }

func staticResolver(roles map[string]*gate.Role) gate.ResolverFunc[string] {
	return func(_ context.Context, user string) (*gate.Role, error) {
		return roles[user], nil
	}
}

func TestGate_RoleCheck(t *testing.T) {
	editor := gate.NewRole("editor", "client:*", gate.NewPermission("invoice", gate.ActionView))
	g := gate.New[string](staticResolver(map[string]*gate.Role{"u1": editor}))
	ctx := context.Background()

	if !g.Can(ctx, "u1", gate.ActionDelete, "client", nil) {
		t.Error("wildcard permission should allow client delete")
	}
	if !g.Can(ctx, "u1", gate.ActionView, "invoice", nil) {
		t.Error("explicit permission should allow invoice view")
	}
	if g.Can(ctx, "u1", gate.ActionDelete, "invoice", nil) {
		t.Error("missing permission should deny invoice delete")
	}
	if g.Can(ctx, "u2", gate.ActionView, "client", nil) {
		t.Error("user without a role should be denied")
	}
	if err := g.Authorize(ctx, "", gate.ActionView, "client", nil); !errors.Is(err, gate.ErrUnauthorized) {
		t.Errorf("zero user should get ErrUnauthorized, got %v", err)
	}
}

func TestGate_PolicyRunsOnlyWithResource(t *testing.T) {
	g := gate.New[string](staticResolver(map[string]*gate.Role{
		"u1": gate.NewRole("user", "document:*"),
	}))
	g.Register("document", gate.PolicyFunc[string](func(_ context.Context, user string, _ gate.Action, resource any) bool {
		d, ok := resource.(*document)
		return ok && d.ownerID == user
	}))
	ctx := context.Background()

	if !g.Can(ctx, "u1", gate.ActionList, "document", nil) {
		t.Error("policy must not run without a resource")
	}
	if !g.Can(ctx, "u1", gate.ActionUpdate, "document", &document{ownerID: "u1"}) {
		t.Error("owner should be allowed")
	}
	if g.Can(ctx, "u1", gate.ActionUpdate, "document", &document{ownerID: "u2"}) {
		t.Error("non-owner should be denied")
	}
}

func TestGate_ResolverErrorDenies(t *testing.T) {
	g := gate.New[string](gate.ResolverFunc[string](func(context.Context, string) (*gate.Role, error) {
		return nil, errors.New("db down")
	}))
	if g.CanRole(context.Background(), "u1", gate.ActionView, "client") {
		t.Error("resolver errors must deny")
	}
}

func TestCachedResolver(t *testing.T) {
	calls := 0
	current := gate.NewRole("user", "client:*")
	inner := gate.ResolverFunc[string](func(context.Context, string) (*gate.Role, error) {
		calls++
		return current, nil
	})
	cached := gate.NewCachedResolver[string](inner, time.Minute)
	ctx := context.Background()

	r, _ := cached.Resolve(ctx, "u1")
	current = gate.NewRole("admin", gate.PermissionAll)
	r2, _ := cached.Resolve(ctx, "u1")
	if r.Name() != "user" || r2.Name() != "user" || calls != 1 {
		t.Fatalf("expected cached role, got %s/%s after %d calls", r.Name(), r2.Name(), calls)
	}

	cached.Invalidate("u1")
	r3, _ := cached.Resolve(ctx, "u1")
	if r3.Name() != "admin" || calls != 2 {
		t.Errorf("expected fresh role after Invalidate, got %s after %d calls", r3.Name(), calls)
	}

	cached.Resolve(ctx, "u2")
	cached.InvalidateAll()
	cached.Resolve(ctx, "u1")
	cached.Resolve(ctx, "u2")
	if calls != 5 {
		t.Errorf("expected 5 inner calls after InvalidateAll, got %d", calls)
	}
}

func TestCachedResolver_DoesNotCacheErrors(t *testing.T) {
	fail := true
	inner := gate.ResolverFunc[string](func(context.Context, string) (*gate.Role, error) {
		if fail {
			return nil, errors.New("temporary")
		}
		return gate.NewRole("user"), nil
	})
	cached := gate.NewCachedResolver[string](inner, time.Minute)

	if _, err := cached.Resolve(context.Background(), "u1"); err == nil {
		t.Fatal("expected error")
	}
	fail = false
	if r, err := cached.Resolve(context.Background(), "u1"); err != nil || r.Name() != "user" {
		t.Errorf("expected recovery, got %v %v", r, err)
	}
}
