package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromotionKind selects the eligibility rule of a promotion
type PromotionKind string

const (
	PromotionBuyXGetY          PromotionKind = "buy_x_get_y"
	PromotionBundle            PromotionKind = "bundle"
	PromotionQuantityThreshold PromotionKind = "quantity_threshold"
)

// PromotionConditions holds the eligibility parameters.
//   - buy_x_get_y: a line whose product is in ProductIDs has Quantity >= MinQuantity
//   - bundle: every product in ProductIDs is in the cart
//   - quantity_threshold: the cart's item count is >= MinQuantity
type PromotionConditions struct {
	ProductIDs  []uuid.UUID `json:"product_ids,omitempty"`
	MinQuantity int         `json:"min_quantity,omitempty"`
}

// PromotionBenefit is the discount inserted when the promotion is applied.
type PromotionBenefit struct {
	Kind  DiscountKind    `json:"kind"`
	Value decimal.Decimal `json:"value"`
	Scope DiscountScope   `json:"scope"`
}

// Promotion is a read-only rule matched against carts. The engine never
// mutates promotions.
type Promotion struct {
	ID         uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	Name       string              `gorm:"size:255;not null" json:"name"`
	Kind       PromotionKind       `gorm:"size:30;not null" json:"kind"`
	Conditions PromotionConditions `gorm:"type:jsonb;serializer:json" json:"conditions"`
	Benefit    PromotionBenefit    `gorm:"type:jsonb;serializer:json" json:"benefit"`
	Active     bool                `gorm:"default:true;index" json:"active"`
	StartsAt   *time.Time          `json:"starts_at,omitempty"`
	EndsAt     *time.Time          `json:"ends_at,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// TableName returns the table name for the Promotion model
func (Promotion) TableName() string {
	return "promotions"
}

// InEffect reports whether the promotion is active at t.
func (p *Promotion) InEffect(t time.Time) bool {
	if !p.Active {
		return false
	}
	if p.StartsAt != nil && t.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && t.After(*p.EndsAt) {
		return false
	}
	return true
}

// Targets reports whether productID is in the promotion's product set.
func (p *Promotion) Targets(productID uuid.UUID) bool {
	for _, id := range p.Conditions.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}
