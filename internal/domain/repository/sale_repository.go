package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	"github.com/sangkips/pdv-engine/pkg/pagination"
)

// SaleRepository is the system of record for sales. A sale is durable only
// once Create has returned without error.
type SaleRepository interface {
	Create(ctx context.Context, sale *entity.Sale) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Sale, error)
	List(ctx context.Context, params *SaleFilterParams) ([]entity.Sale, int64, error)
	UpdateFiscal(ctx context.Context, id uuid.UUID, update FiscalUpdate) error
	UpdatePrintStatus(ctx context.Context, id uuid.UUID, status enum.PrintStatus) error
}

// FiscalUpdate carries the only fields the fiscal orchestrator may change
type FiscalUpdate struct {
	DocType   entity.DocumentType
	Status    enum.FiscalStatus
	AccessKey string
	Protocol  string
	Error     string
}

// SaleFilterParams contains filtering parameters for sale queries
type SaleFilterParams struct {
	Pagination   *pagination.PaginationParams
	TerminalID   string
	CashierID    *uuid.UUID
	FiscalStatus *enum.FiscalStatus
	StartDate    *time.Time
	EndDate      *time.Time
}
