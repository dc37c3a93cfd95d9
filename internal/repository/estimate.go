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

var estimateSchema = Schema{
	Table: "estimates",
	Fillable: []string{
		"estimate_number", "client_id", "user_id", "title", "description",
		"subtotal", "tax_rate", "tax_amount", "total", "status", "valid_until", "notes",
	},
	Searchable: []string{"estimate_number", "title", "description"},
	Preload:    []string{"Client"},
	Timestamps: true,
}

// EstimateInput carries the editable fields of an estimate and its lines.
type EstimateInput struct {
	ClientID    string
	UserID      string
	Title       string
	Description string
	TaxRate     decimal.Decimal
	Status      models.EstimateStatus
	ValidUntil  *time.Time
	Notes       string
	Items       []ItemInput
}

// EstimateRepository manages estimates and their items.
type EstimateRepository struct {
	*Repository[models.Estimate]
}

// NewEstimateRepository builds an EstimateRepository on g.
func NewEstimateRepository(g *db.Gateway) *EstimateRepository {
	return &EstimateRepository{Repository: New[models.Estimate](g, estimateSchema)}
}

// NextEstimateNumber allocates the next EST-YYYYMM-NNNN number inside tx.
func (r *EstimateRepository) NextEstimateNumber(ctx context.Context, tx *db.Gateway) (string, error) {
	return nextNumber(ctx, tx, EstimatePrefix, "estimates", "estimate_number", r.now())
}

// FindDetailed loads an estimate with its client, creator and ordered items.
func (r *EstimateRepository) FindDetailed(ctx context.Context, id string) (*models.Estimate, error) {
	var est models.Estimate
	err := r.g.Conn(ctx).
		Preload("Client").
		Preload("User", func(tx *gorm.DB) *gorm.DB { return tx.Omit("password_hash") }).
		Preload("Items", itemsOrdered).
		Take(&est, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository.EstimateRepository.FindDetailed: %w: %w", db.ErrQueryFailed, err)
	}
	return &est, nil
}

// Items returns the lines of an estimate in display order.
func (r *EstimateRepository) Items(ctx context.Context, id string) ([]models.EstimateItem, error) {
	var out []models.EstimateItem
	err := r.g.Select(ctx, "estimate_items", &out, db.Query{Where: db.Filter{"estimate_id": id}, Order: "sort_order asc"})
	return out, err
}

// SearchWithClient matches number, title, description and the client's name or company.
func (r *EstimateRepository) SearchWithClient(ctx context.Context, term string) ([]models.Estimate, error) {
	var out []models.Estimate
	err := r.g.Conn(ctx).Model(&models.Estimate{}).
		Joins("LEFT JOIN clients ON clients.id = estimates.client_id").
		Where(db.LikeAny(term,
			"estimates.estimate_number", "estimates.title", "estimates.description",
			"clients.first_name", "clients.last_name", "clients.company")).
		Preload("Client").
		Order("estimates.created_at desc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("repository.EstimateRepository.SearchWithClient: %w: %w", db.ErrQueryFailed, err)
	}
	return out, nil
}

// PaginateByStatus pages through estimates, optionally restricted to one status.
func (r *EstimateRepository) PaginateByStatus(ctx context.Context, status string, page, perPage int) (Page[models.Estimate], error) {
	q := db.Query{}
	if status != "" {
		q.Where = db.Filter{"status": status}
	}
	return r.paginate(ctx, q, page, perPage)
}

// CreateWithItems numbers the estimate, stores it with its lines and the derived totals.
func (r *EstimateRepository) CreateWithItems(ctx context.Context, in EstimateInput) (string, error) {
	const op = "repository.EstimateRepository.CreateWithItems"
	in.TaxRate = in.TaxRate.Round(models.TaxRatePlaces)
	var id string
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		number, err := r.NextEstimateNumber(ctx, tx)
		if err != nil {
			return err
		}
		now := r.now()
		status := in.Status
		if status == "" {
			status = models.EstimateStatusDraft
		}
		est := models.Estimate{
			EstimateNumber: number,
			ClientID:       in.ClientID,
			UserID:         in.UserID,
			Title:          in.Title,
			Description:    in.Description,
			TaxRate:        in.TaxRate,
			Status:         status,
			ValidUntil:     in.ValidUntil,
			Notes:          in.Notes,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		est.ID = newID()
		items := estimateItems(est.ID, in.Items, now)
		t := models.ComputeTotals(items, in.TaxRate)
		est.Subtotal, est.TaxAmount, est.Total = t.Subtotal, t.TaxAmount, t.Total

		conn := tx.Conn(ctx)
		if err := conn.Omit(clause.Associations).Create(&est).Error; err != nil {
			return fmt.Errorf("%w: %w", db.ErrQueryFailed, err)
		}
		if len(items) > 0 {
			if err := conn.Create(&items).Error; err != nil {
				return fmt.Errorf("%w: %w", db.ErrQueryFailed, err)
			}
		}
		id = est.ID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// UpdateWithItems rewrites the estimate fields, replaces its lines and recomputes totals.
func (r *EstimateRepository) UpdateWithItems(ctx context.Context, id string, in EstimateInput) (bool, error) {
	const op = "repository.EstimateRepository.UpdateWithItems"
	in.TaxRate = in.TaxRate.Round(models.TaxRatePlaces)
	found := false
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		fields := db.Fields{
			"client_id":   in.ClientID,
			"title":       in.Title,
			"description": in.Description,
			"tax_rate":    in.TaxRate,
			"valid_until": in.ValidUntil,
			"notes":       in.Notes,
			"updated_at":  r.now(),
		}
		if in.Status != "" {
			fields["status"] = string(in.Status)
		}
		n, err := tx.Update(ctx, "estimates", fields, db.Filter{"id": id})
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

// ReplaceItems swaps every line of the estimate for items and recomputes totals.
func (r *EstimateRepository) ReplaceItems(ctx context.Context, id string, items []ItemInput) error {
	return r.g.Transaction(ctx, func(tx *db.Gateway) error {
		return r.replaceItems(ctx, tx, id, items)
	})
}

func (r *EstimateRepository) replaceItems(ctx context.Context, tx *db.Gateway, id string, in []ItemInput) error {
	if _, err := tx.Delete(ctx, "estimate_items", db.Filter{"estimate_id": id}); err != nil {
		return err
	}
	now := r.now()
	if items := estimateItems(id, in, now); len(items) > 0 {
		if err := tx.Conn(ctx).Create(&items).Error; err != nil {
			return fmt.Errorf("%w: %w", db.ErrQueryFailed, err)
		}
	}
	_, err := recomputeTotals[models.EstimateItem](tx.Conn(ctx), "estimates", "estimate_id", id, now)
	return err
}

// AddItem appends a line to the estimate and recomputes totals.
func (r *EstimateRepository) AddItem(ctx context.Context, id string, in ItemInput) (string, error) {
	var itemID string
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		n, err := tx.Count(ctx, "estimate_items", db.Filter{"estimate_id": id})
		if err != nil {
			return err
		}
		now := r.now()
		item := estimateItems(id, []ItemInput{in}, now)[0]
		item.SortOrder = int(n)
		if err := tx.Conn(ctx).Create(&item).Error; err != nil {
			return fmt.Errorf("%w: %w", db.ErrQueryFailed, err)
		}
		itemID = item.ID
		_, err = recomputeTotals[models.EstimateItem](tx.Conn(ctx), "estimates", "estimate_id", id, now)
		return err
	})
	return itemID, err
}

// UpdateItem rewrites one line and recomputes the parent's totals.
func (r *EstimateRepository) UpdateItem(ctx context.Context, itemID string, in ItemInput) (bool, error) {
	found := false
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		var item models.EstimateItem
		if err := tx.First(ctx, "estimate_items", &item, db.Query{Where: db.Filter{"id": itemID}}); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		found = true
		_, err := tx.Update(ctx, "estimate_items", db.Fields{
			"description": in.Description,
			"quantity":    in.Quantity,
			"unit_price":  in.UnitPrice,
			"total":       models.LineTotal(in.Quantity, in.UnitPrice),
		}, db.Filter{"id": itemID})
		if err != nil {
			return err
		}
		_, err = recomputeTotals[models.EstimateItem](tx.Conn(ctx), "estimates", "estimate_id", item.EstimateID, r.now())
		return err
	})
	return found, err
}

// DeleteItem removes one line and recomputes the parent's totals.
func (r *EstimateRepository) DeleteItem(ctx context.Context, itemID string) (bool, error) {
	found := false
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		var item models.EstimateItem
		if err := tx.First(ctx, "estimate_items", &item, db.Query{Where: db.Filter{"id": itemID}}); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		found = true
		if _, err := tx.Delete(ctx, "estimate_items", db.Filter{"id": itemID}); err != nil {
			return err
		}
		_, err := recomputeTotals[models.EstimateItem](tx.Conn(ctx), "estimates", "estimate_id", item.EstimateID, r.now())
		return err
	})
	return found, err
}

// UpdateTotals recomputes subtotal, tax and total from the stored lines.
func (r *EstimateRepository) UpdateTotals(ctx context.Context, id string) (models.Totals, error) {
	return recomputeTotals[models.EstimateItem](r.g.Conn(ctx), "estimates", "estimate_id", id, r.now())
}

// UpdateStatus sets the status and reports whether the estimate exists.
func (r *EstimateRepository) UpdateStatus(ctx context.Context, id string, status models.EstimateStatus) (bool, error) {
	return r.Update(ctx, id, db.Fields{"status": string(status)})
}

// Delete removes the estimate and its lines. Invoices converted from it keep their data
// but lose the back-reference.
func (r *EstimateRepository) Delete(ctx context.Context, id string) (bool, error) {
	found := false
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		if _, err := tx.Delete(ctx, "estimate_items", db.Filter{"estimate_id": id}); err != nil {
			return err
		}
		if _, err := tx.Update(ctx, "invoices", db.Fields{"estimate_id": nil}, db.Filter{"estimate_id": id}); err != nil {
			return err
		}
		n, err := tx.Delete(ctx, "estimates", db.Filter{"id": id})
		found = n > 0
		return err
	})
	return found, err
}

// ConvertToInvoice turns an estimate into a draft invoice due in 30 days, copying its money
// fields and lines, and marks the estimate approved. Everything happens in one transaction.
func (r *EstimateRepository) ConvertToInvoice(ctx context.Context, estimateID, userID string) (string, error) {
	const op = "repository.EstimateRepository.ConvertToInvoice"
	var invoiceID string
	err := r.g.Transaction(ctx, func(tx *db.Gateway) error {
		var est models.Estimate
		if err := tx.First(ctx, "estimates", &est, db.Query{Where: db.Filter{"id": estimateID}, Lock: true}); err != nil {
			return err
		}
		if est.IsConverted() {
			return ErrAlreadyConverted
		}
		var lines []models.EstimateItem
		if err := tx.Select(ctx, "estimate_items", &lines, db.Query{Where: db.Filter{"estimate_id": estimateID}, Order: "sort_order asc"}); err != nil {
			return err
		}

		number, err := nextNumber(ctx, tx, InvoicePrefix, "invoices", "invoice_number", r.now())
		if err != nil {
			return err
		}
		now := r.now()
		due := dateOnly(now).AddDate(0, 0, 30)
		inv := models.Invoice{
			ID:            newID(),
			InvoiceNumber: number,
			EstimateID:    &est.ID,
			ClientID:      est.ClientID,
			UserID:        userID,
			Title:         est.Title,
			Description:   est.Description,
			Subtotal:      est.Subtotal,
			TaxRate:       est.TaxRate,
			TaxAmount:     est.TaxAmount,
			Total:         est.Total,
			AmountPaid:    decimal.Zero,
			Status:        models.InvoiceStatusDraft,
			DueDate:       &due,
			Notes:         est.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		conn := tx.Conn(ctx)
		if err := conn.Omit(clause.Associations).Create(&inv).Error; err != nil {
			return fmt.Errorf("%w: %w", db.ErrQueryFailed, err)
		}
		if len(lines) > 0 {
			items := make([]models.InvoiceItem, 0, len(lines))
			for _, l := range lines {
				items = append(items, models.InvoiceItem{
					InvoiceID:   inv.ID,
					Description: l.Description,
					Quantity:    l.Quantity,
					UnitPrice:   l.UnitPrice,
					Total:       l.Total,
					SortOrder:   l.SortOrder,
					CreatedAt:   now,
				})
			}
			if err := conn.Create(&items).Error; err != nil {
				return fmt.Errorf("%w: %w", db.ErrQueryFailed, err)
			}
		}
		if _, err := tx.Update(ctx, "estimates", db.Fields{
			"status":     string(models.EstimateStatusApproved),
			"updated_at": now,
		}, db.Filter{"id": est.ID}); err != nil {
			return err
		}
		invoiceID = inv.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyConverted) || errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return invoiceID, nil
}
