package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/diewo77/cna-billing/internal/db"
	"github.com/diewo77/cna-billing/internal/lib/logger"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var march = time.Date(2025, time.March, 14, 10, 30, 0, 0, time.UTC)

type fixture struct {
	conn      *gorm.DB
	g         *db.Gateway
	clients   *ClientRepository
	estimates *EstimateRepository
	invoices  *InvoiceRepository
	users     *UserRepository
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(db.Models()...))

	g := db.NewGateway(conn, logger.Discard())
	f := &fixture{
		conn:      conn,
		g:         g,
		clients:   NewClientRepository(g),
		estimates: NewEstimateRepository(g),
		invoices:  NewInvoiceRepository(g),
		users:     NewUserRepository(g),
		clock:     march,
	}
	now := func() time.Time { return f.clock }
	f.clients.SetClock(now)
	f.estimates.SetClock(now)
	f.invoices.SetClock(now)
	f.users.SetClock(now)
	return f
}

func (f *fixture) client(t *testing.T, first, last, company string) string {
	t.Helper()
	id, err := f.clients.Create(context.Background(), db.Fields{
		"first_name": first, "last_name": last, "company": company,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) user(t *testing.T, username string) string {
	t.Helper()
	id, err := f.users.Create(context.Background(), db.Fields{
		"username": username, "email": username + "@example.com", "password_hash": "x",
		"first_name": "Test", "last_name": "User", "role": "user", "is_active": true,
	})
	require.NoError(t, err)
	return id
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// sampleItems totals 200.00 before tax.
func sampleItems() []ItemInput {
	return []ItemInput{
		{Description: "Fabric", Quantity: dec("2"), UnitPrice: dec("50")},
		{Description: "Labor", Quantity: dec("1"), UnitPrice: dec("100")},
	}
}

func (f *fixture) estimate(t *testing.T, clientID, userID string) string {
	t.Helper()
	id, err := f.estimates.CreateWithItems(context.Background(), EstimateInput{
		ClientID: clientID, UserID: userID, Title: "Sofa reupholstery",
		TaxRate: dec("6.625"), Items: sampleItems(),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) invoice(t *testing.T, clientID, userID string, status models.InvoiceStatus, due *time.Time) string {
	t.Helper()
	id, err := f.invoices.CreateWithItems(context.Background(), InvoiceInput{
		ClientID: clientID, UserID: userID, Title: "Chair repair",
		TaxRate: dec("6.625"), Status: status, DueDate: due, Items: sampleItems(),
	})
	require.NoError(t, err)
	return id
}
