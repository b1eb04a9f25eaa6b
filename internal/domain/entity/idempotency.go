package entity

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyKey stores the response of a checkout request so a repeated
// request with the same key replays it instead of running again.
type IdempotencyKey struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Key          string    `gorm:"uniqueIndex:idx_idem_key_cashier;size:255;not null"`
	CashierID    uuid.UUID `gorm:"uniqueIndex:idx_idem_key_cashier;type:uuid;not null"`
	Endpoint     string    `gorm:"size:255;not null"` // e.g. "POST /api/v1/terminals/:terminal/payment/confirm"
	ResponseCode int       `gorm:"not null"`
	ResponseBody string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	ExpiresAt    time.Time `gorm:"not null;index"`
}

// TableName returns the table name for IdempotencyKey
func (IdempotencyKey) TableName() string {
	return "idempotency_keys"
}

// IsExpired checks if the idempotency key has expired
func (i *IdempotencyKey) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}
