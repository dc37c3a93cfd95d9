//go:build integration

package repository

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/diewo77/cna-billing/internal/db"
	"github.com/diewo77/cna-billing/internal/lib/logger"
)

func TestConcurrentInvoiceNumbersOnPostgres(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("billing"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	conn, err := gorm.Open(gormpg.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(db.Models()...))

	g := db.NewGateway(conn, logger.Discard())
	f := &fixture{
		conn:     conn,
		g:        g,
		clients:  NewClientRepository(g),
		invoices: NewInvoiceRepository(g),
		users:    NewUserRepository(g),
	}
	cid := f.client(t, "Ada", "Lovelace", "")
	uid := f.user(t, "ada")

	const workers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := f.invoices.CreateWithItems(ctx, InvoiceInput{
				ClientID: cid, UserID: uid, Title: "Concurrent", TaxRate: dec("6.625"), Items: sampleItems(),
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			inv, err := f.invoices.Find(ctx, id)
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, inv.InvoiceNumber)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, numbers, workers)
	sort.Strings(numbers)
	period := time.Now().UTC().Format("200601")
	for i, n := range numbers {
		assert.Equal(t, FormatNumber(InvoicePrefix, time.Now().UTC(), i+1), n)
		assert.Contains(t, n, period)
	}
}
