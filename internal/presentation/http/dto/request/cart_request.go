package request

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/shopspring/decimal"
)

// AddItemRequest adds a product by id or code
type AddItemRequest struct {
	ProductID *uuid.UUID `json:"product_id"`
	Code      string     `json:"code" binding:"omitempty,max=100"`
	Quantity  int        `json:"quantity" binding:"omitempty,min=1"`
}

// SetQuantityRequest replaces a line quantity; zero or less removes the line.
// Quantity is decoded as a decimal so fractional input reaches Int.
type SetQuantityRequest struct {
	Quantity *decimal.Decimal `json:"quantity" binding:"required"`
}

// Int returns the whole quantity. Fractional quantities fail with
// ErrQuantityExceeded; values beyond int32 are clamped so the cart
// ceiling rejects them.
func (r SetQuantityRequest) Int() (int, error) {
	q := *r.Quantity
	if !q.IsInteger() {
		return 0, apperror.ErrQuantityExceeded.WithMessage(
			fmt.Sprintf("Quantity %s is not a whole number", q.String()))
	}
	switch {
	case q.GreaterThan(decimal.NewFromInt(math.MaxInt32)):
		return math.MaxInt32, nil
	case q.LessThan(decimal.NewFromInt(math.MinInt32)):
		return math.MinInt32, nil
	}
	return int(q.IntPart()), nil
}

// SetCustomerRequest selects a customer by id or document (CPF/CNPJ).
// Both empty removes the customer.
type SetCustomerRequest struct {
	CustomerID *uuid.UUID `json:"customer_id"`
	Document   string     `json:"document" binding:"omitempty,max=20"`
}

// SetNotesRequest replaces the cart notes
type SetNotesRequest struct {
	Notes string `json:"notes" binding:"max=500"`
}

// AddDiscountRequest applies a manual discount
type AddDiscountRequest struct {
	Kind         string          `json:"kind" binding:"required,oneof=percentage fixed"`
	Value        decimal.Decimal `json:"value"`
	Scope        string          `json:"scope" binding:"required,oneof=cart item"`
	TargetItemID *uuid.UUID      `json:"target_item_id"`
}

// RecoverHeldCartRequest recovers a held cart into the active cart
type RecoverHeldCartRequest struct {
	Overwrite bool `json:"overwrite"`
}
