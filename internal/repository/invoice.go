package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/cna-billing/internal/db"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Payment errors checked under the invoice row lock.
var (
	ErrInvalidPayment        = errors.New("payment amount must be greater than zero")
	ErrPaymentExceedsBalance = errors.New("payment amount cannot exceed balance due")
)

var invoiceSchema = Schema{
	Table: "invoices",
	Fillable: []string{
		"invoice_number", "estimate_id", "client_id", "user_id", "title", "description",
		"subtotal", "tax_rate", "tax_amount", "total", "amount_paid", "status",
		"due_date", "paid_date", "notes",
	},
	Searchable: []string{"invoice_number", "title", "description"},
	Preload:    []string{"Client"},
	Timestamps: true,
}

// InvoiceInput carries the editable fields of an invoice and its lines.
type InvoiceInput struct {
	ClientID    string
	UserID      string
	EstimateID  *string
	Title       string
	Description string
	TaxRate     decimal.Decimal
	Status      models.InvoiceStatus
	DueDate     *time.Time
	Notes       string
	Items       []ItemInput
}

// InvoiceRepository manages invoices, their items and payments.
type InvoiceRepository struct {
	*Repository[models.Invoice]
}

// NewInvoiceRepository builds an InvoiceRepository on g.
func NewInvoiceRepository(g *db.Gateway) *InvoiceRepository {
	return &InvoiceRepository{Repository: New[models.Invoice](g, invoiceSchema)}
}

// NextInvoiceNumber allocates the next INV-YYYYMM-NNNN number inside tx.
func (r *InvoiceRepository) NextInvoiceNumber(ctx context.Context, tx *db.Gateway) (string, error) {
	return nextNumber(ctx, tx, InvoicePrefix, "invoices", "invoice_number", r.now())
}

// FindDetailed loads an invoice with its client, creator and ordered items.
func (r *InvoiceRepository) FindDetailed(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.g.Conn(ctx).
		Preload("Client").
		Preload("User", func(tx *gorm.DB) *gorm.DB { return tx.Omit("password_hash") }).
		Preload("Items", itemsOrdered).
		Take(&inv, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository.InvoiceRepository.FindDetailed: %w: %w", db.ErrQueryFailed, err)
	}
	return &inv, nil
}

// Items returns the lines of an invoice in display order.
func (r *InvoiceRepository) Items(ctx context.Context, id string) ([]models.InvoiceItem, error) {
	var out []models.InvoiceItem
	err := r.g.Select(ctx, "invoice_items", &out, db.Query{Where: db.Filter{"invoice_id": id}, Order: "sort_order asc"})
	return out, err
}

// SearchWithClient matches number, title, description and the client's name or company.
func (r *InvoiceRepository) SearchWithClient(ctx context.Context, term string) ([]models.Invoice, error) {
	var out []models.Invoice
	err := r.g.Conn(ctx).Model(&models.Invoice{}).
		Joins("LEFT JOIN clients ON clients.id = invoices.client_id").
		Where(db.LikeAny(term,
			"invoices.invoice_number", "invoices.title", "invoices.description",
			"clients.first_name", "clients.last_name", "clients.company")).
		Preload("Client").
		Order("invoices.created_at desc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("repository.InvoiceRepository.SearchWithClient: %w: %w", db.ErrQueryFailed, err)
	}
	return out, nil
}

// PaginateByStatus pages through invoices, optionally restricted to one status.
func (r *InvoiceRepository) PaginateByStatus(ctx context.Context, status string, page, perPage int) (Page[models.Invoice], error) {
	q := db.Query{}
	if status != "" {
		q.Where = db.Filter{"status": status}
	}
	return r.paginate(ctx, q, page, perPage)
}

// CreateWithItems numbers the invoice, stores it with its lines and the derived totals.
func (r *InvoiceRepository) CreateWithItems(ctx context.Context, in InvoiceInput) (string, error) {
	const op = "repository.InvoiceRepository.CreateWithItems"
	in.TaxRate = in.TaxRate.Round(models.TaxRatePlaces)
	var id string
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		number, err := r.NextInvoiceNumber(ctx, tx)
		if err != nil {
			return err
		}
		now := r.now()
		status := in.Status
		if status == "" {
			status = models.InvoiceStatusDraft
		}
		inv := models.Invoice{
			ID:            newID(),
			InvoiceNumber: number,
			EstimateID:    in.EstimateID,
			ClientID:      in.ClientID,
			UserID:        in.UserID,
			Title:         in.Title,
			Description:   in.Description,
			TaxRate:       in.TaxRate,
			AmountPaid:    decimal.Zero,
			Status:        status,
			DueDate:       in.DueDate,
			Notes:         in.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		items := invoiceItems(inv.ID, in.Items, now)
		t := models.ComputeTotals(items, in.TaxRate)
		inv.Subtotal, inv.TaxAmount, inv.Total = t.Subtotal, t.TaxAmount, t.Total

		conn := tx.Conn(ctx)
		if err := conn.Omit(clause.Associations).Create(&inv).Error; err != nil {
			return fmt.Errorf("%w: %w", db.ErrQueryFailed, err)
		}
		if len(items) > 0 {
			if err := conn.Create(&items).Error; err != nil {
				return fmt.Errorf("%w: %w", db.ErrQueryFailed, err)
			}
		}
		id = inv.ID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// UpdateWithItems rewrites the invoice fields, replaces its lines and recomputes totals.
func (r *InvoiceRepository) UpdateWithItems(ctx context.Context, id string, in InvoiceInput) (bool, error) {
	const op = "repository.InvoiceRepository.UpdateWithItems"
	in.TaxRate = in.TaxRate.Round(models.TaxRatePlaces)
	found := false
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		fields := db.Fields{
			"client_id":   in.ClientID,
			"title":       in.Title,
			"description": in.Description,
			"tax_rate":    in.TaxRate,
			"due_date":    in.DueDate,
			"notes":       in.Notes,
			"updated_at":  r.now(),
		}
		if in.Status != "" {
			fields["status"] = string(in.Status)
		}
		n, err := tx.Update(ctx, "invoices", fields, db.Filter{"id": id})
		if err != nil || n == 0 {
			return err
		}
		found = true
		return r.replaceItems(ctx, tx, id, in.Items)
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return found, nil
}

// ReplaceItems swaps every line of the invoice for items and recomputes totals.
func (r *InvoiceRepository) ReplaceItems(ctx context.Context, id string, items []ItemInput) error {
	return r.g.Transaction(ctx, func(tx *db.Gateway) error {
		return r.replaceItems(ctx, tx, id, items)
	})
}

func (r *InvoiceRepository) replaceItems(ctx context.Context, tx *db.Gateway, id string, in []ItemInput) error {
	if _, err := tx.Delete(ctx, "invoice_items", db.Filter{"invoice_id": id}); err != nil {
		return err
	}
	now := r.now()
	if items := invoiceItems(id, in, now); len(items) > 0 {
		if err := tx.Conn(ctx).Create(&items).Error; err != nil {
			return fmt.Errorf("%w: %w", db.ErrQueryFailed, err)
		}
	}
	_, err := recomputeTotals[models.InvoiceItem](tx.Conn(ctx), "invoices", "invoice_id", id, now)
	return err
}

// AddItem appends a line to the invoice and recomputes totals.
func (r *InvoiceRepository) AddItem(ctx context.Context, id string, in ItemInput) (string, error) {
	var itemID string
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		n, err := tx.Count(ctx, "invoice_items", db.Filter{"invoice_id": id})
		if err != nil {
			return err
		}
		now := r.now()
		item := invoiceItems(id, []ItemInput{in}, now)[0]
		item.SortOrder = int(n)
		if err := tx.Conn(ctx).Create(&item).Error; err != nil {
			return fmt.Errorf("%w: %w", db.ErrQueryFailed, err)
		}
		itemID = item.ID
		_, err = recomputeTotals[models.InvoiceItem](tx.Conn(ctx), "invoices", "invoice_id", id, now)
		return err
	})
	return itemID, err
}

// UpdateItem rewrites one line and recomputes the parent's totals.
func (r *InvoiceRepository) UpdateItem(ctx context.Context, itemID string, in ItemInput) (bool, error) {
	found := false
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		var item models.InvoiceItem
		if err := tx.First(ctx, "invoice_items", &item, db.Query{Where: db.Filter{"id": itemID}}); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		found = true
		_, err := tx.Update(ctx, "invoice_items", db.Fields{
			"description": in.Description,
			"quantity":    in.Quantity,
			"unit_price":  in.UnitPrice,
			"total":       models.LineTotal(in.Quantity, in.UnitPrice),
		}, db.Filter{"id": itemID})
		if err != nil {
			return err
		}
		_, err = recomputeTotals[models.InvoiceItem](tx.Conn(ctx), "invoices", "invoice_id", item.InvoiceID, r.now())
		return err
	})
	return found, err
}

// DeleteItem removes one line and recomputes the parent's totals.
func (r *InvoiceRepository) DeleteItem(ctx context.Context, itemID string) (bool, error) {
	found := false
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		var item models.InvoiceItem
		if err := tx.First(ctx, "invoice_items", &item, db.Query{Where: db.Filter{"id": itemID}}); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		found = true
		if _, err := tx.Delete(ctx, "invoice_items", db.Filter{"id": itemID}); err != nil {
			return err
		}
		_, err := recomputeTotals[models.InvoiceItem](tx.Conn(ctx), "invoices", "invoice_id", item.InvoiceID, r.now())
		return err
	})
	return found, err
}

// UpdateTotals recomputes subtotal, tax and total from the stored lines.
func (r *InvoiceRepository) UpdateTotals(ctx context.Context, id string) (models.Totals, error) {
	return recomputeTotals[models.InvoiceItem](r.g.Conn(ctx), "invoices", "invoice_id", id, r.now())
}

// UpdateStatus sets the status and reports whether the invoice exists.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus) (bool, error) {
	return r.Update(ctx, id, db.Fields{"status": string(status)})
}

// Delete removes the invoice and its lines.
func (r *InvoiceRepository) Delete(ctx context.Context, id string) (bool, error) {
	found := false
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		if _, err := tx.Delete(ctx, "invoice_items", db.Filter{"invoice_id": id}); err != nil {
			return err
		}
		n, err := tx.Delete(ctx, "invoices", db.Filter{"id": id})
		found = n > 0
		return err
	})
	return found, err
}

// RecordPayment adds amount to the paid total under a row lock, moves the invoice to paid or
// partial, and appends a payment line to the notes when note is not blank. It reports false
// when the invoice does not exist.
func (r *InvoiceRepository) RecordPayment(ctx context.Context, id string, amount decimal.Decimal, note string, now time.Time) (bool, error) {
	if !amount.IsPositive() {
		return false, ErrInvalidPayment
	}
	found := false
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		var inv models.Invoice
		if err := tx.First(ctx, "invoices", &inv, db.Query{Where: db.Filter{"id": id}, Lock: true}); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		found = true
		if amount.GreaterThan(inv.BalanceDue()) {
			return ErrPaymentExceedsBalance
		}
		out := models.ApplyPayment(inv.Total, inv.AmountPaid, amount, inv.Status)
		fields := db.Fields{
			"amount_paid": out.AmountPaid,
			"status":      string(out.Status),
			"updated_at":  now,
		}
		if out.Paid {
			fields["paid_date"] = dateOnly(now)
		}
		if note != "" {
			fields["notes"] = inv.Notes + models.PaymentNote(amount, now, note)
		}
		_, err := tx.Update(ctx, "invoices", fields, db.Filter{"id": id})
		return err
	})
	return found, err
}

// Unpaid returns invoices that still expect money, earliest due first.
func (r *InvoiceRepository) Unpaid(ctx context.Context) ([]models.Invoice, error) {
	var out []models.Invoice
	err := r.g.Conn(ctx).
		Preload("Client").
		Where("status IN ?", statusStrings(models.UnpaidInvoiceStatuses)).
		Order("due_date asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("repository.InvoiceRepository.Unpaid: %w: %w", db.ErrQueryFailed, err)
	}
	return out, nil
}

// MarkOverdue moves sent and partial invoices whose due date is before today to overdue.
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := r.g.Conn(ctx).Model(&models.Invoice{}).
		Where("status IN ? AND due_date IS NOT NULL AND due_date < ?",
			[]string{string(models.InvoiceStatusSent), string(models.InvoiceStatusPartial)}, dateOnly(now)).
		Updates(map[string]any{"status": string(models.InvoiceStatusOverdue), "updated_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("repository.InvoiceRepository.MarkOverdue: %w: %w", db.ErrQueryFailed, res.Error)
	}
	return res.RowsAffected, nil
}

// MonthlyRevenue aggregates billed and paid amounts for invoices created in each of the last
// months calendar months, oldest first. Months without invoices are reported with zeros.
func (r *InvoiceRepository) MonthlyRevenue(ctx context.Context, months int, now time.Time) ([]models.MonthlyRevenue, error) {
	if months < 1 {
		months = 1
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1-months, 0)

	var rows []models.Invoice
	err := r.g.Conn(ctx).Model(&models.Invoice{}).
		Select("created_at", "total", "amount_paid").
		Where("created_at >= ?", start).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("repository.InvoiceRepository.MonthlyRevenue: %w: %w", db.ErrQueryFailed, err)
	}

	out := make([]models.MonthlyRevenue, months)
	for i := range out {
		m := start.AddDate(0, i, 0)
		out[i] = models.MonthlyRevenue{Year: m.Year(), Month: int(m.Month()), TotalBilled: decimal.Zero, TotalPaid: decimal.Zero}
	}
	for _, inv := range rows {
		c := inv.CreatedAt.In(now.Location())
		i := (c.Year()-start.Year())*12 + int(c.Month()) - int(start.Month())
		if i < 0 || i >= months {
			continue
		}
		out[i].TotalBilled = out[i].TotalBilled.Add(inv.Total)
		out[i].TotalPaid = out[i].TotalPaid.Add(inv.AmountPaid)
		out[i].InvoiceCount++
	}
	return out, nil
}

// ForExport returns invoices with their clients, optionally filtered by status, newest first.
func (r *InvoiceRepository) ForExport(ctx context.Context, status string) ([]models.Invoice, error) {
	q := db.Query{Order: "created_at desc", Preload: []string{"Client"}}
	if status != "" {
		q.Where = db.Filter{"status": status}
	}
	var out []models.Invoice
	err := r.g.Select(ctx, "invoices", &out, q)
	return out, err
}

func statusStrings(in []models.InvoiceStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
