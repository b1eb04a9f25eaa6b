package entity

import (
	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/shopspring/decimal"
)

// DiscountKind is how a discount value is interpreted
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

// DiscountScope is what a discount applies to
type DiscountScope string

const (
	ScopeCart DiscountScope = "cart"
	ScopeItem DiscountScope = "item"
)

var hundred = decimal.NewFromInt(100)

// Discount is a manual or promotion-derived reduction on the cart or a line.
type Discount struct {
	ID           uuid.UUID       `json:"id"`
	Kind         DiscountKind    `json:"kind"`
	Value        decimal.Decimal `json:"value"`
	Scope        DiscountScope   `json:"scope"`
	TargetItemID *uuid.UUID      `json:"target_item_id,omitempty"`
	PromotionID  *uuid.UUID      `json:"promotion_id,omitempty"`
}

// Validate rejects out-of-range values. Values are never clamped here:
// 0 < percentage <= 100 and fixed > 0.
func (d *Discount) Validate() error {
	switch d.Kind {
	case DiscountPercentage:
		if !d.Value.IsPositive() || d.Value.GreaterThan(hundred) {
			return apperror.ErrInvalidDiscount.WithMessage("Percentage discount must be greater than 0 and at most 100")
		}
	case DiscountFixed:
		if !d.Value.IsPositive() {
			return apperror.ErrInvalidDiscount.WithMessage("Fixed discount must be greater than 0")
		}
	default:
		return apperror.ErrInvalidDiscount.WithMessage("Unknown discount kind " + string(d.Kind))
	}

	switch d.Scope {
	case ScopeCart:
		if d.TargetItemID != nil {
			return apperror.ErrInvalidDiscount.WithMessage("Cart discount cannot target an item")
		}
	case ScopeItem:
		if d.TargetItemID == nil {
			return apperror.ErrInvalidDiscount.WithMessage("Item discount requires a target item")
		}
	default:
		return apperror.ErrInvalidDiscount.WithMessage("Unknown discount scope " + string(d.Scope))
	}
	return nil
}

// Apply reduces amount by the discount, never below zero.
// Percentages are applied to the amount they receive, so consecutive
// percentage discounts compound.
func (d *Discount) Apply(amount decimal.Decimal) decimal.Decimal {
	var out decimal.Decimal
	switch d.Kind {
	case DiscountPercentage:
		factor := decimal.NewFromInt(1).Sub(d.Value.Shift(-2))
		out = amount.Mul(factor)
	case DiscountFixed:
		out = amount.Sub(d.Value)
	default:
		out = amount
	}
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}
