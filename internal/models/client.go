package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Client is a customer that receives estimates and invoices.
type Client struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	FirstName string    `gorm:"size:100;not null" json:"first_name"`
	LastName  string    `gorm:"size:100;not null" json:"last_name"`
	Company   string    `gorm:"size:255" json:"company,omitempty"`
	Email     string    `gorm:"size:255;uniqueIndex:idx_clients_email_unique,where:email <> ''" json:"email,omitempty"`
	Phone     string    `gorm:"size:30" json:"phone,omitempty"`
	Address   string    `gorm:"size:255" json:"address,omitempty"`
	City      string    `gorm:"size:100" json:"city,omitempty"`
	State     string    `gorm:"size:50" json:"state,omitempty"`
	ZipCode   string    `gorm:"size:20" json:"zip_code,omitempty"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the primary key.
func (c *Client) BeforeCreate(_ *gorm.DB) error {
	newID(&c.ID)
	return nil
}

// FullName returns "First Last".
func (c *Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

// DisplayName is the full name with the company in parentheses when there is one.
func (c *Client) DisplayName() string {
	if c.Company == "" {
		return c.FullName()
	}
	return c.FullName() + " (" + c.Company + ")"
}

// ClientStats summarizes the documents issued to a client.
type ClientStats struct {
	EstimateCount int64           `json:"estimate_count"`
	InvoiceCount  int64           `json:"invoice_count"`
	TotalBilled   decimal.Decimal `json:"total_billed"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
}
