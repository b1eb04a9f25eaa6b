package entity

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/shopspring/decimal"
)

// DefaultMaxQuantity is the per-line quantity ceiling.
const DefaultMaxQuantity = 999

// LineItem is one product line of the active cart.
// LineTotal always equals Quantity * UnitPrice; discounts are reported by the
// pricing snapshot and never rewrite the line.
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

func (l *LineItem) setQuantity(q int) {
	l.Quantity = q
	l.LineTotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(q)))
}

// Cart is the in-progress sale of a terminal session. It is the single
// source of truth for pricing; nothing derived from it is cached.
type Cart struct {
	Items       []LineItem   `json:"items"`
	Customer    *CustomerRef `json:"customer,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	Discounts   []Discount   `json:"discounts,omitempty"`
	MaxQuantity int          `json:"-"`
}

// NewCart creates an empty cart with the given quantity ceiling.
func NewCart(maxQuantity int) *Cart {
	if maxQuantity <= 0 {
		maxQuantity = DefaultMaxQuantity
	}
	return &Cart{Items: []LineItem{}, MaxQuantity: maxQuantity}
}

func (c *Cart) ceiling() int {
	if c.MaxQuantity <= 0 {
		return DefaultMaxQuantity
	}
	return c.MaxQuantity
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount is the sum of quantities over all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Line returns the index of a line, or -1.
func (c *Cart) Line(lineID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ID == lineID {
			return i
		}
	}
	return -1
}

// AddItem adds quantity units of product. An existing line for the same
// product is incremented; otherwise a new line is appended.
func (c *Cart) AddItem(p *Product, quantity int) (*LineItem, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, apperror.ErrInvalidQuantity
	}

	for i := range c.Items {
		if c.Items[i].ProductID != p.ID {
			continue
		}
		next := c.Items[i].Quantity + quantity
		if next > c.ceiling() {
			return nil, apperror.ErrQuantityExceeded.WithMessage(
				fmt.Sprintf("Quantity %d exceeds the maximum of %d", next, c.ceiling()))
		}
		c.Items[i].setQuantity(next)
		return &c.Items[i], nil
	}

	if quantity > c.ceiling() {
		return nil, apperror.ErrQuantityExceeded.WithMessage(
			fmt.Sprintf("Quantity %d exceeds the maximum of %d", quantity, c.ceiling()))
	}
	line := LineItem{
		ID:          uuid.New(),
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   p.Price,
	}
	line.setQuantity(quantity)
	c.Items = append(c.Items, line)
	return &c.Items[len(c.Items)-1], nil
}

// SetQuantity changes a line's quantity. A quantity of zero or less removes
// the line, in which case the returned line is nil.
func (c *Cart) SetQuantity(lineID uuid.UUID, quantity int) (*LineItem, error) {
	idx := c.Line(lineID)
	if idx < 0 {
		return nil, apperror.NewNotFoundError("Cart line")
	}
	if quantity > c.ceiling() {
		return nil, apperror.ErrQuantityExceeded.WithMessage(
			fmt.Sprintf("Quantity %d exceeds the maximum of %d", quantity, c.ceiling()))
	}
	if quantity <= 0 {
		c.RemoveItem(lineID)
		return nil, nil
	}
	c.Items[idx].setQuantity(quantity)
	return &c.Items[idx], nil
}

// RemoveItem deletes a line and reports the index it occupied. Removing an
// unknown line is a no-op and returns (-1, false).
func (c *Cart) RemoveItem(lineID uuid.UUID) (int, bool) {
	idx := c.Line(lineID)
	if idx < 0 {
		return -1, false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)

	kept := c.Discounts[:0]
	for _, d := range c.Discounts {
		if d.TargetItemID != nil && *d.TargetItemID == lineID {
			continue
		}
		kept = append(kept, d)
	}
	c.Discounts = kept
	return idx, true
}

// Clear resets the cart for a new sale.
func (c *Cart) Clear() {
	c.Items = []LineItem{}
	c.Customer = nil
	c.Notes = ""
	c.Discounts = nil
}

// AddDiscount validates and appends a discount.
func (c *Cart) AddDiscount(d Discount) (*Discount, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Scope == ScopeItem && c.Line(*d.TargetItemID) < 0 {
		return nil, apperror.ErrInvalidDiscount.WithMessage("Discount targets a line that is not in the cart")
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	c.Discounts = append(c.Discounts, d)
	return &c.Discounts[len(c.Discounts)-1], nil
}

// RemoveDiscount drops a discount by id.
func (c *Cart) RemoveDiscount(id uuid.UUID) bool {
	for i := range c.Discounts {
		if c.Discounts[i].ID == id {
			c.Discounts = append(c.Discounts[:i], c.Discounts[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy that shares nothing with c.
func (c *Cart) Snapshot() *Cart {
	out := &Cart{
		Items:       make([]LineItem, len(c.Items)),
		Notes:       c.Notes,
		MaxQuantity: c.MaxQuantity,
	}
	copy(out.Items, c.Items)
	if c.Customer != nil {
		ref := *c.Customer
		out.Customer = &ref
	}
	if len(c.Discounts) > 0 {
		out.Discounts = make([]Discount, len(c.Discounts))
		copy(out.Discounts, c.Discounts)
	}
	return out
}
