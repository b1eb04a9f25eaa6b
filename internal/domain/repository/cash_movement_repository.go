package repository

import (
	"context"

	"github.com/sangkips/pdv-engine/internal/domain/entity"
)

// CashMovementRepository appends to the drawer ledger
type CashMovementRepository interface {
	Create(ctx context.Context, movement *entity.CashMovement) error
}
