package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashMovementKind classifies a cash drawer ledger entry
type CashMovementKind string

const (
	CashOpening    CashMovementKind = "opening"
	CashSale       CashMovementKind = "sale"
	CashDeposit    CashMovementKind = "deposit"
	CashWithdrawal CashMovementKind = "withdrawal"
)

// CashMovement is an immutable entry in the drawer ledger. Amount is signed:
// withdrawals are negative.
type CashMovement struct {
	ID           uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	SessionID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"session_id"`
	TerminalID   string           `gorm:"size:50;not null;index" json:"terminal_id"`
	CashierID    uuid.UUID        `gorm:"type:uuid;not null" json:"cashier_id"`
	Kind         CashMovementKind `gorm:"size:20;not null" json:"kind"`
	Amount       decimal.Decimal  `gorm:"type:numeric;not null" json:"amount"`
	BalanceAfter decimal.Decimal  `gorm:"type:numeric;not null" json:"balance_after"`
	SaleID       *uuid.UUID       `gorm:"type:uuid" json:"sale_id,omitempty"`
	Note         string           `gorm:"type:text" json:"note,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// BeforeCreate generates a UUID before creating a new movement
func (m *CashMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the CashMovement model
func (CashMovement) TableName() string {
	return "cash_movements"
}
