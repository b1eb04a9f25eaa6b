package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
)

// PrintJobKind is the kind of document a job prints
type PrintJobKind string

const (
	PrintReceipt        PrintJobKind = "receipt"
	PrintFiscalDocument PrintJobKind = "fiscal_document"
	PrintReport         PrintJobKind = "report"
	PrintTestPage       PrintJobKind = "test_page"
)

// PrintJob is one document queued for a device. Jobs only move forward
// (pending -> printing -> completed | failed); a retry is a new job.
type PrintJob struct {
	ID           uuid.UUID        `json:"id"`
	Kind         PrintJobKind     `json:"kind"`
	Payload      []byte           `json:"-"`
	TargetDevice string           `json:"target_device"`
	Status       enum.PrintStatus `json:"status"`
	Error        string           `json:"error,omitempty"`
	SaleID       *uuid.UUID       `json:"sale_id,omitempty"`
	RetryOf      *uuid.UUID       `json:"retry_of,omitempty"`
	EnqueuedAt   time.Time        `json:"enqueued_at"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	SettledAt    *time.Time       `json:"settled_at,omitempty"`
}

// Copy returns a value copy safe to hand to subscribers.
func (j *PrintJob) Copy() PrintJob {
	out := *j
	out.Payload = nil
	return out
}
