package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/diewo77/cna-billing/internal/db"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/shopspring/decimal"
)

var clientSchema = Schema{
	Table: "clients",
	Fillable: []string{
		"first_name", "last_name", "company", "email", "phone",
		"address", "city", "state", "zip_code", "notes",
	},
	Searchable: []string{"first_name", "last_name", "company", "email", "phone"},
	Timestamps: true,
}

// ClientRepository manages clients.
type ClientRepository struct {
	*Repository[models.Client]
}

// NewClientRepository builds a ClientRepository on g.
func NewClientRepository(g *db.Gateway) *ClientRepository {
	return &ClientRepository{Repository: New[models.Client](g, clientSchema)}
}

// Fillable lists the columns a client form may set.
func (r *ClientRepository) Fillable() []string { return clientSchema.Fillable }

// Recent returns the n most recently created clients.
func (r *ClientRepository) Recent(ctx context.Context, n int) ([]models.Client, error) {
	return r.All(ctx, n, 0)
}

// Create inserts a client with its email lower-cased.
func (r *ClientRepository) Create(ctx context.Context, fields db.Fields) (string, error) {
	return r.Repository.Create(ctx, normalizeEmail(fields))
}

// Update writes the client fields with the email lower-cased.
func (r *ClientRepository) Update(ctx context.Context, id string, fields db.Fields) (bool, error) {
	return r.Repository.Update(ctx, id, normalizeEmail(fields))
}

func normalizeEmail(fields db.Fields) db.Fields {
	if e, ok := fields["email"].(string); ok {
		fields["email"] = strings.ToLower(strings.TrimSpace(e))
	}
	return fields
}

// IsEmailTaken reports whether another client already uses email, ignoring case.
// Blank emails are never taken.
func (r *ClientRepository) IsEmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}
	return r.Exists(ctx, "email", email, excludeID)
}

// HasDocuments reports whether estimates or invoices reference the client.
func (r *ClientRepository) HasDocuments(ctx context.Context, id string) (bool, error) {
	for _, table := range []string{"estimates", "invoices"} {
		n, err := r.g.Count(ctx, table, db.Filter{"client_id": id})
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Stats returns document counts and money totals for a client.
func (r *ClientRepository) Stats(ctx context.Context, id string) (models.ClientStats, error) {
	const op = "repository.ClientRepository.Stats"
	var stats models.ClientStats
	var err error
	if stats.EstimateCount, err = r.g.Count(ctx, "estimates", db.Filter{"client_id": id}); err != nil {
		return stats, err
	}
	if stats.InvoiceCount, err = r.g.Count(ctx, "invoices", db.Filter{"client_id": id}); err != nil {
		return stats, err
	}
	var sums struct {
		Billed decimal.Decimal
		Paid   decimal.Decimal
	}
	err = r.g.Conn(ctx).Table("invoices").
		Select("COALESCE(SUM(total), 0) AS billed, COALESCE(SUM(amount_paid), 0) AS paid").
		Where("client_id = ?", id).
		Scan(&sums).Error
	if err != nil {
		return stats, fmt.Errorf("%s: %w: %w", op, db.ErrQueryFailed, err)
	}
	stats.TotalBilled = sums.Billed.Round(2)
	stats.TotalPaid = sums.Paid.Round(2)
	return stats, nil
}

// Estimates returns the client's estimates, newest first.
func (r *ClientRepository) Estimates(ctx context.Context, id string) ([]models.Estimate, error) {
	var out []models.Estimate
	err := r.g.Select(ctx, "estimates", &out, db.Query{Where: db.Filter{"client_id": id}, Order: "created_at desc"})
	return out, err
}

// Invoices returns the client's invoices, newest first.
func (r *ClientRepository) Invoices(ctx context.Context, id string) ([]models.Invoice, error) {
	var out []models.Invoice
	err := r.g.Select(ctx, "invoices", &out, db.Query{Where: db.Filter{"client_id": id}, Order: "created_at desc"})
	return out, err
}
