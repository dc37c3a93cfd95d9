package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/diewo77/cna-billing/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, err := f.clients.Create(ctx, db.Fields{"first_name": "Ada", "last_name": "Lovelace", "bogus": "dropped"})
	require.NoError(t, err)

	c, err := f.clients.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", c.FirstName)
	assert.True(t, c.CreatedAt.Equal(march))

	ok, err := f.clients.Update(ctx, id, db.Fields{"city": "London"})
	require.NoError(t, err)
	assert.True(t, ok)

	c, err = f.clients.FindBy(ctx, "city", "London")
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)

	ok, err = f.clients.Update(ctx, "missing", db.Fields{"city": "Paris"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.clients.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.clients.Find(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err = f.clients.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryUpdateWithOnlyUnknownFields(t *testing.T) {
	f := newFixture(t)
	id := f.client(t, "Ada", "Lovelace", "")
	ok, err := f.clients.Update(context.Background(), id, db.Fields{"id": "hijack"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryPaginate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 20; i++ {
		f.client(t, fmt.Sprintf("First%02d", i), "Last", "")
	}

	p, err := f.clients.Paginate(ctx, 2, 15)
	require.NoError(t, err)
	assert.EqualValues(t, 20, p.Total)
	assert.Len(t, p.Data, 5)
	assert.Equal(t, 2, p.CurrentPage)
	assert.Equal(t, 2, p.LastPage)
	assert.Equal(t, 16, p.From)
	assert.Equal(t, 20, p.To)
	assert.True(t, p.HasPrev())
	assert.False(t, p.HasNext())

	p, err = f.clients.Paginate(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentPage)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Len(t, p.Data, 15)
}

func TestRepositoryPaginateEmpty(t *testing.T) {
	p, err := newFixture(t).clients.Paginate(context.Background(), 1, 15)
	require.NoError(t, err)
	assert.EqualValues(t, 0, p.Total)
	assert.Equal(t, 1, p.LastPage)
	assert.Equal(t, 0, p.From)
	assert.Equal(t, 0, p.To)
}

func TestRepositorySearchIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.client(t, "Ada", "Lovelace", "Analytical Engines")
	f.client(t, "Grace", "Hopper", "Navy")

	found, err := f.clients.Search(ctx, "ENGINE")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ada", found[0].FirstName)

	found, err = f.clients.Search(ctx, "hop", "last_name")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Grace", found[0].FirstName)
}

func TestRepositoryExists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, err := f.clients.Create(ctx, db.Fields{"first_name": "Ada", "last_name": "L", "email": "ada@example.com"})
	require.NoError(t, err)

	taken, err := f.clients.IsEmailTaken(ctx, "ada@example.com", "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = f.clients.IsEmailTaken(ctx, "ada@example.com", id)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = f.clients.IsEmailTaken(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestClientEmailIsUniqueIgnoringCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, err := f.clients.Create(ctx, db.Fields{"first_name": "Ada", "last_name": "L", "email": " Ada@Example.COM "})
	require.NoError(t, err)

	c, err := f.clients.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", c.Email)

	taken, err := f.clients.IsEmailTaken(ctx, "ADA@example.com", "")
	require.NoError(t, err)
	assert.True(t, taken)

	_, err = f.clients.Create(ctx, db.Fields{"first_name": "Other", "last_name": "A", "email": "ada@EXAMPLE.com"})
	assert.ErrorIs(t, err, db.ErrDuplicate)
	assert.ErrorIs(t, err, db.ErrQueryFailed)

	other, err := f.clients.Create(ctx, db.Fields{"first_name": "Grace", "last_name": "H", "email": "grace@example.com"})
	require.NoError(t, err)
	_, err = f.clients.Update(ctx, other, db.Fields{"email": "Ada@example.com"})
	assert.ErrorIs(t, err, db.ErrDuplicate)

	for range 2 {
		_, err = f.clients.Create(ctx, db.Fields{"first_name": "No", "last_name": "Email", "email": ""})
		require.NoError(t, err)
	}
}

func TestUserRepositoryHidesPasswordHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.user(t, "ada")

	u, err := f.users.Find(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, u.PasswordHash)

	u, err = f.users.FindForLogin(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "x", u.PasswordHash)

	_, err = f.users.Delete(ctx, id)
	assert.Error(t, err)
}

func TestUserRepositoryAdminOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.user(t, "ada")

	taken, err := f.users.IsUsernameTaken(ctx, "ada", "")
	require.NoError(t, err)
	assert.True(t, taken)

	role, err := f.users.RoleOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "user", string(role))

	ok, err := f.users.SetRole(ctx, id, "admin")
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = f.users.SetRole(ctx, id, "root")
	assert.Error(t, err)

	ok, err = f.users.SetActive(ctx, id, false)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = f.users.RoleOf(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.users.UpdateLastLogin(ctx, id, march))
	u, err := f.users.FindByUsername(ctx, "ada")
	require.NoError(t, err)
	require.NotNil(t, u.LastLogin)
	assert.True(t, u.LastLogin.Equal(march))
}

func TestClientStatsAndDocuments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cid := f.client(t, "Ada", "Lovelace", "")
	uid := f.user(t, "ada")

	has, err := f.clients.HasDocuments(ctx, cid)
	require.NoError(t, err)
	assert.False(t, has)

	f.estimate(t, cid, uid)
	inv := f.invoice(t, cid, uid, "sent", nil)
	_, err = f.invoices.RecordPayment(ctx, inv, dec("100"), "", march)
	require.NoError(t, err)

	has, err = f.clients.HasDocuments(ctx, cid)
	require.NoError(t, err)
	assert.True(t, has)

	stats, err := f.clients.Stats(ctx, cid)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.EstimateCount)
	assert.EqualValues(t, 1, stats.InvoiceCount)
	assert.Equal(t, "213.25", stats.TotalBilled.StringFixed(2))
	assert.Equal(t, "100.00", stats.TotalPaid.StringFixed(2))

	ests, err := f.clients.Estimates(ctx, cid)
	require.NoError(t, err)
	assert.Len(t, ests, 1)
	invs, err := f.clients.Invoices(ctx, cid)
	require.NoError(t, err)
	assert.Len(t, invs, 1)
}
