package request

import "github.com/shopspring/decimal"

// OpenSessionRequest opens a terminal session
type OpenSessionRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// DrawerMovementRequest is a cash deposit or withdrawal
type DrawerMovementRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note" binding:"max=255"`
	// SupervisorPIN is required for withdrawals.
	SupervisorPIN string `json:"supervisor_pin"`
}
