package repository

import (
	"fmt"
	"time"

	"github.com/diewo77/cna-billing/internal/db"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemInput is one submitted line of an estimate or invoice.
type ItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

func estimateItems(estimateID string, in []ItemInput, now time.Time) []models.EstimateItem {
	out := make([]models.EstimateItem, 0, len(in))
	for i, it := range in {
		out = append(out, models.EstimateItem{
			EstimateID:  estimateID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       models.LineTotal(it.Quantity, it.UnitPrice),
			SortOrder:   i,
			CreatedAt:   now,
		})
	}
	return out
}

func invoiceItems(invoiceID string, in []ItemInput, now time.Time) []models.InvoiceItem {
	out := make([]models.InvoiceItem, 0, len(in))
	for i, it := range in {
		out = append(out, models.InvoiceItem{
			InvoiceID:   invoiceID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       models.LineTotal(it.Quantity, it.UnitPrice),
			SortOrder:   i,
			CreatedAt:   now,
		})
	}
	return out
}

// recomputeTotals reloads the items of a document and writes back subtotal, tax and total.
func recomputeTotals[I models.Line](conn *gorm.DB, table, fk, id string, now time.Time) (models.Totals, error) {
	var rate struct{ TaxRate decimal.Decimal }
	res := conn.Table(table).Select("tax_rate").Where("id = ?", id).Limit(1).Scan(&rate)
	if res.Error != nil {
		return models.Totals{}, fmt.Errorf("%w: %w", db.ErrQueryFailed, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Totals{}, db.ErrNotFound
	}
	var items []I
	if err := conn.Where(fk+" = ?", id).Find(&items).Error; err != nil {
		return models.Totals{}, fmt.Errorf("%w: %w", db.ErrQueryFailed, err)
	}
	t := models.ComputeTotals(items, rate.TaxRate)
	err := conn.Table(table).Where("id = ?", id).Updates(map[string]any{
		"subtotal":   t.Subtotal,
		"tax_amount": t.TaxAmount,
		"total":      t.Total,
		"updated_at": now,
	}).Error
	if err != nil {
		return models.Totals{}, fmt.Errorf("%w: %w", db.ErrQueryFailed, err)
	}
	return t, nil
}

func itemsOrdered(conn *gorm.DB) *gorm.DB {
	return conn.Order("sort_order asc")
}
