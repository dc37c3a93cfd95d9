package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EstimateStatus represents the status of an estimate.
type EstimateStatus string

const (
	EstimateStatusDraft    EstimateStatus = "draft"
	EstimateStatusSent     EstimateStatus = "sent"
	EstimateStatusApproved EstimateStatus = "approved"
	EstimateStatusRejected EstimateStatus = "rejected"
	EstimateStatusExpired  EstimateStatus = "expired"
)

// EstimateStatuses lists every valid estimate status in display order.
var EstimateStatuses = []EstimateStatus{
	EstimateStatusDraft, EstimateStatusSent, EstimateStatusApproved, EstimateStatusRejected, EstimateStatusExpired,
}

// ValidEstimateStatus reports whether s names an estimate status.
func ValidEstimateStatus(s string) bool {
	for _, st := range EstimateStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// Estimate is a priced proposal that can be converted into an invoice.
type Estimate struct {
	ID             string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	EstimateNumber string          `gorm:"size:20;uniqueIndex;not null" json:"estimate_number"`
	ClientID       string          `gorm:"type:varchar(36);index;not null" json:"client_id"`
	Client         *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	UserID         string          `gorm:"type:varchar(36);index;not null" json:"user_id"`
	User           *User           `gorm:"foreignKey:UserID" json:"-"`
	Title          string          `gorm:"size:255;not null" json:"title"`
	Description    string          `gorm:"type:text" json:"description,omitempty"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(6,3);not null" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Status         EstimateStatus  `gorm:"size:20;not null;default:draft" json:"status"`
	ValidUntil     *time.Time      `gorm:"type:date" json:"valid_until,omitempty"`
	Notes          string          `gorm:"type:text" json:"notes,omitempty"`
	Items          []EstimateItem  `gorm:"foreignKey:EstimateID" json:"items,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// BeforeCreate assigns the primary key.
func (e *Estimate) BeforeCreate(_ *gorm.DB) error {
	newID(&e.ID)
	return nil
}

// IsConverted reports whether the estimate was already turned into an invoice.
func (e *Estimate) IsConverted() bool {
	return e.Status == EstimateStatusApproved
}

// EstimateItem is one priced line of an estimate.
type EstimateItem struct {
	ID          string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	EstimateID  string          `gorm:"type:varchar(36);index;not null" json:"estimate_id"`
	Description string          `gorm:"size:500;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	SortOrder   int             `gorm:"not null" json:"sort_order"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BeforeCreate assigns the primary key.
func (i *EstimateItem) BeforeCreate(_ *gorm.DB) error {
	newID(&i.ID)
	return nil
}

// LineTotal implements Line.
func (i EstimateItem) LineTotal() decimal.Decimal {
	return LineTotal(i.Quantity, i.UnitPrice)
}
