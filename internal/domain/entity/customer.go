package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Customer is looked up from the customer directory when attached to a cart
type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Document  string    `gorm:"size:20;index" json:"document"` // CPF or CNPJ
	Email     *string   `gorm:"size:255" json:"email,omitempty"`
	Phone     *string   `gorm:"size:50" json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the Customer model
func (Customer) TableName() string {
	return "customers"
}

// Ref returns the snapshot carried by carts and sales.
func (c *Customer) Ref() *CustomerRef {
	return &CustomerRef{ID: c.ID, Name: c.Name, Document: c.Document}
}

// CustomerRef is a customer snapshot. Carts, held carts and sales keep a copy
// instead of a live relation.
type CustomerRef struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Document string    `json:"document,omitempty"`
}

// NormalizeDocument strips the punctuation of a formatted CPF or CNPJ.
func NormalizeDocument(document string) string {
	var b strings.Builder
	for _, r := range document {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
