package entity

import (
	"time"

	"github.com/google/uuid"
)

// HeldCart is a parked sale. It is an immutable snapshot until it is
// recovered into the active cart or discarded.
type HeldCart struct {
	ID         uuid.UUID    `json:"id"`
	TerminalID string       `json:"terminal_id"`
	CashierID  uuid.UUID    `json:"cashier_id"`
	Items      []LineItem   `json:"items"`
	Customer   *CustomerRef `json:"customer,omitempty"`
	Notes      string       `json:"notes,omitempty"`
	Discounts  []Discount   `json:"discounts,omitempty"`
	HeldAt     time.Time    `json:"held_at"`
}

// ToCart rebuilds an active cart from the snapshot.
func (h *HeldCart) ToCart(maxQuantity int) *Cart {
	c := NewCart(maxQuantity)
	c.Items = append(c.Items, h.Items...)
	if h.Customer != nil {
		ref := *h.Customer
		c.Customer = &ref
	}
	c.Notes = h.Notes
	if len(h.Discounts) > 0 {
		c.Discounts = append([]Discount(nil), h.Discounts...)
	}
	return c
}
