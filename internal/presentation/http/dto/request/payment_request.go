package request

import (
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	"github.com/shopspring/decimal"
)

// SelectMethodRequest chooses the payment method
type SelectMethodRequest struct {
	Method *enum.PaymentMethod `json:"method" binding:"required"`
}

// PaymentDetailsRequest edits the confirmation fields. Omitted fields keep
// their value.
type PaymentDetailsRequest struct {
	AmountTendered *decimal.Decimal `json:"amount_tendered"`
	Installments   *int             `json:"installments"`
	CardType       *string          `json:"card_type" binding:"omitempty,oneof=credit debit"`
}

// ConfirmPaymentRequest finalizes the sale
type ConfirmPaymentRequest struct {
	DocumentType string `json:"document_type" binding:"omitempty,oneof=nfce nfe"`
}

// SaleFilterRequest represents sale list filters
type SaleFilterRequest struct {
	TerminalID   string `form:"terminal_id"`
	FiscalStatus string `form:"fiscal_status"`
	StartDate    string `form:"start_date"`
	EndDate      string `form:"end_date"`
	Page         int    `form:"page"`
	PerPage      int    `form:"per_page"`
}
