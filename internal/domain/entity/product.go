package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/shopspring/decimal"
)

// Product is the read-only catalog view the terminal sells from.
// The catalog itself is maintained elsewhere; the engine only looks products up.
type Product struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Code      string          `gorm:"size:100;index" json:"code"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric;not null" json:"price"`
	Active    bool            `gorm:"default:true" json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// Validate checks that the product can be put in a cart.
func (p *Product) Validate() error {
	if p == nil {
		return apperror.ErrInvalidProduct.WithMessage("Product not found")
	}
	if p.ID == uuid.Nil {
		return apperror.ErrInvalidProduct.WithMessage("Product has no id")
	}
	if strings.TrimSpace(p.Name) == "" {
		return apperror.ErrInvalidProduct.WithMessage("Product has no name")
	}
	if p.Price.IsNegative() {
		return apperror.ErrInvalidProduct.WithMessage("Product price is negative")
	}
	if !p.Active {
		return apperror.ErrInvalidProduct.WithMessage("Product " + p.Name + " is inactive")
	}
	return nil
}
