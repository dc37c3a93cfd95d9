package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// InvoiceStatuses lists every valid invoice status in display order.
var InvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartial,
	InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled,
}

// UnpaidInvoiceStatuses are the statuses that still expect money.
var UnpaidInvoiceStatuses = []InvoiceStatus{InvoiceStatusSent, InvoiceStatusPartial, InvoiceStatusOverdue}

// ValidInvoiceStatus reports whether s names an invoice status.
func ValidInvoiceStatus(s string) bool {
	for _, st := range InvoiceStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// Invoice is a bill sent to a client.
type Invoice struct {
	ID            string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	InvoiceNumber string          `gorm:"size:20;uniqueIndex;not null" json:"invoice_number"`
	EstimateID    *string         `gorm:"type:varchar(36);index" json:"estimate_id,omitempty"`
	ClientID      string          `gorm:"type:varchar(36);index;not null" json:"client_id"`
	Client        *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	UserID        string          `gorm:"type:varchar(36);index;not null" json:"user_id"`
	User          *User           `gorm:"foreignKey:UserID" json:"-"`
	Title         string          `gorm:"size:255;not null" json:"title"`
	Description   string          `gorm:"type:text" json:"description,omitempty"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(6,3);not null" json:"tax_rate"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_paid"`
	Status        InvoiceStatus   `gorm:"size:20;not null;default:draft;index" json:"status"`
	DueDate       *time.Time      `gorm:"type:date" json:"due_date,omitempty"`
	PaidDate      *time.Time      `gorm:"type:date" json:"paid_date,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	Items         []InvoiceItem   `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// BeforeCreate assigns the primary key.
func (i *Invoice) BeforeCreate(_ *gorm.DB) error {
	newID(&i.ID)
	return nil
}

// BalanceDue is total minus amount paid, never negative.
func (i *Invoice) BalanceDue() decimal.Decimal {
	due := i.Total.Sub(i.AmountPaid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// IsOverdue reports whether the due date has passed and the invoice is not paid.
func (i *Invoice) IsOverdue(now time.Time) bool {
	if i.Status == InvoiceStatusPaid || i.DueDate == nil {
		return false
	}
	return i.DueDate.Before(dateOnly(now))
}

// PaymentOutcome is the status change caused by a payment.
type PaymentOutcome struct {
	AmountPaid decimal.Decimal
	Status     InvoiceStatus
	Paid       bool
}

// ApplyPayment computes the new paid amount and status after receiving amount.
// The invoice is paid once the paid amount reaches the total, partial while it is between zero and the total.
func ApplyPayment(total, alreadyPaid, amount decimal.Decimal, current InvoiceStatus) PaymentOutcome {
	paid := alreadyPaid.Add(amount)
	out := PaymentOutcome{AmountPaid: paid, Status: current}
	switch {
	case paid.GreaterThanOrEqual(total):
		out.Status = InvoiceStatusPaid
		out.Paid = true
	case paid.IsPositive():
		out.Status = InvoiceStatusPartial
	}
	return out
}

// PaymentNote is the line appended to the notes when a payment carries a comment.
func PaymentNote(amount decimal.Decimal, on time.Time, note string) string {
	return fmt.Sprintf("\nPayment: $%s on %s - %s", amount.StringFixed(2), on.Format("2006-01-02"), note)
}

// InvoiceItem is one priced line of an invoice.
type InvoiceItem struct {
	ID          string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	InvoiceID   string          `gorm:"type:varchar(36);index;not null" json:"invoice_id"`
	Description string          `gorm:"size:500;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	SortOrder   int             `gorm:"not null" json:"sort_order"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BeforeCreate assigns the primary key.
func (i *InvoiceItem) BeforeCreate(_ *gorm.DB) error {
	newID(&i.ID)
	return nil
}

// LineTotal implements Line.
func (i InvoiceItem) LineTotal() decimal.Decimal {
	return LineTotal(i.Quantity, i.UnitPrice)
}

// MonthlyRevenue is the billed and collected amount for invoices created in one month.
type MonthlyRevenue struct {
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	TotalBilled  decimal.Decimal `json:"total_billed"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	InvoiceCount int64           `json:"invoice_count"`
}
