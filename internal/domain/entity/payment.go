package entity

import (
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	"github.com/shopspring/decimal"
)

// PaymentState is a state of the checkout flow
type PaymentState string

const (
	PaymentSelectingMethod   PaymentState = "selecting_method"
	PaymentConfirmingDetails PaymentState = "confirming_details"
	PaymentFinalizing        PaymentState = "finalizing"
	PaymentCompleted         PaymentState = "completed"
	PaymentCancelled         PaymentState = "cancelled"
)

// PaymentStep is the screen shown while confirming details
type PaymentStep string

const (
	StepNone         PaymentStep = ""
	StepCashAmount   PaymentStep = "cash_amount"
	StepConfirmation PaymentStep = "confirmation"
)

// CardType distinguishes the card brand function used on the terminal
type CardType string

const (
	CardCredit CardType = "credit"
	CardDebit  CardType = "debit"
)

// Valid reports whether the card type is known.
func (c CardType) Valid() bool {
	return c == CardCredit || c == CardDebit
}

// PaymentAttempt is the payment being confirmed. It exists while the flow is
// in confirming_details and becomes a Payment on the sale when it succeeds.
type PaymentAttempt struct {
	Method         enum.PaymentMethod `json:"method"`
	AmountTendered decimal.Decimal    `json:"amount_tendered"`
	Installments   int                `json:"installments"`
	CardType       CardType           `json:"card_type,omitempty"`
}
