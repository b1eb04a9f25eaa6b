package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
)

// FiscalEmission tracks one sale's submission to the fiscal service.
type FiscalEmission struct {
	SaleID      uuid.UUID         `json:"sale_id"`
	DocType     DocumentType      `json:"doc_type"`
	Status      enum.FiscalStatus `json:"status"`
	AccessKey   string            `json:"access_key,omitempty"`
	Protocol    string            `json:"protocol,omitempty"`
	Error       string            `json:"error,omitempty"`
	Attempts    int               `json:"attempts"`
	RequestedAt time.Time         `json:"requested_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
