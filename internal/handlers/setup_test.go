package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/cna-billing/auth"
	"github.com/diewo77/cna-billing/internal/db"
	"github.com/diewo77/cna-billing/internal/lib/logger"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/diewo77/cna-billing/internal/policy"
	"github.com/diewo77/cna-billing/internal/repository"
	"github.com/diewo77/cna-billing/internal/session"
	"github.com/diewo77/cna-billing/view"
)

var march = time.Date(2025, time.March, 14, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	conn      *gorm.DB
	base      Base
	users     *repository.UserRepository
	clients   *repository.ClientRepository
	estimates *repository.EstimateRepository
	invoices  *repository.InvoiceRepository
	gate      *policy.AuthGate
	hasher    auth.Hasher
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(db.Models()...))

	log := logger.Discard()
	g := db.NewGateway(conn, log)
	users := repository.NewUserRepository(g)
	e := &testEnv{
		conn:      conn,
		users:     users,
		clients:   repository.NewClientRepository(g),
		estimates: repository.NewEstimateRepository(g),
		invoices:  repository.NewInvoiceRepository(g),
		gate:      policy.NewAuthGate(users, 0),
		hasher:    auth.NewHasher(8*1024, 1, 1),
	}
	renderer := view.New(view.Options{BaseDir: "../../templates", AppName: "Billing", Log: log})
	e.base = NewBase(renderer, log)
	e.base.Now = func() time.Time { return march }
	return e
}

func (e *testEnv) user(t *testing.T, username string, role models.Role, password string) *models.User {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)
	id, err := e.users.Create(context.Background(), db.Fields{
		"username": username, "email": username + "@example.com", "password_hash": hash,
		"first_name": "Test", "last_name": strings.ToUpper(username[:1]) + username[1:],
		"role": string(role), "is_active": true,
	})
	require.NoError(t, err)
	u, err := e.users.Find(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) client(t *testing.T, first, last, email string) string {
	t.Helper()
	id, err := e.clients.Create(context.Background(), db.Fields{
		"first_name": first, "last_name": last, "email": email,
	})
	require.NoError(t, err)
	return id
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleItems() []repository.ItemInput {
	return []repository.ItemInput{
		{Description: "Fabric", Quantity: dec("2"), UnitPrice: dec("50")},
		{Description: "Labor", Quantity: dec("1"), UnitPrice: dec("100")},
	}
}

func (e *testEnv) estimate(t *testing.T, clientID, userID string) string {
	t.Helper()
	id, err := e.estimates.CreateWithItems(context.Background(), repository.EstimateInput{
		ClientID: clientID, UserID: userID, Title: "Sofa reupholstery",
		TaxRate: dec("6.625"), Items: sampleItems(),
	})
	require.NoError(t, err)
	return id
}

func (e *testEnv) invoice(t *testing.T, clientID, userID string, status models.InvoiceStatus) string {
	t.Helper()
	id, err := e.invoices.CreateWithItems(context.Background(), repository.InvoiceInput{
		ClientID: clientID, UserID: userID, Title: "Chair repair",
		TaxRate: dec("6.625"), Status: status, Items: sampleItems(),
	})
	require.NoError(t, err)
	return id
}

// call builds a request carrying sess and user, runs h and returns the recorder.
type call struct {
	method string
	target string
	form   url.Values
	user   *models.User
	sess   *session.Session
	json   bool
	path   map[string]string
	header map[string]string
}

func (c call) do(h http.HandlerFunc) *httptest.ResponseRecorder {
	var body *strings.Reader
	if c.form != nil {
		body = strings.NewReader(c.form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(c.method, c.target, body)
	if c.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.json {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	for k, v := range c.path {
		req.SetPathValue(k, v)
	}
	ctx := req.Context()
	if c.sess != nil {
		ctx = session.WithSession(ctx, c.sess)
	}
	if c.user != nil {
		ctx = auth.WithUser(ctx, c.user)
	}
	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))
	return rec
}

// signed returns form values carrying the CSRF token of s.
func signed(s *session.Session, pairs ...string) url.Values {
	v := url.Values{}
	v.Set(CSRFField, s.CSRFToken())
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Add(pairs[i], pairs[i+1])
	}
	return v
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
