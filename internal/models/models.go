// Package models holds the persisted entities and the money rules shared by estimates and invoices.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is anything that contributes a line total to a document.
type Line interface {
	LineTotal() decimal.Decimal
}

// Totals are the derived money fields of an estimate or invoice.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// TaxRatePlaces is the precision of the tax_rate columns.
const TaxRatePlaces = 3

// LineTotal returns quantity × unit price rounded to cents.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

// ComputeTotals sums the item totals and applies the tax rate (a percentage).
// tax = subtotal × rate / 100, total = subtotal + tax, both rounded to cents.
func ComputeTotals[L Line](items []L, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Div(hundred).Round(2)
	return Totals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
	}
}

// NumberSequence tracks the last document number handed out for a prefix and month.
type NumberSequence struct {
	Prefix    string    `gorm:"size:8;primaryKey" json:"prefix"`
	Period    string    `gorm:"size:6;primaryKey" json:"period"` // YYYYMM
	LastValue int       `gorm:"not null" json:"last_value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// dateOnly truncates t to midnight in its own location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
