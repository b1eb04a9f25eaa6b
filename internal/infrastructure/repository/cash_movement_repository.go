package repository

import (
	"context"

	"github.com/sangkips/pdv-engine/internal/domain/entity"
	domainRepo "github.com/sangkips/pdv-engine/internal/domain/repository"
	"gorm.io/gorm"
)

type cashMovementRepository struct {
	db *gorm.DB
}

// NewCashMovementRepository creates a new cash movement repository
func NewCashMovementRepository(db *gorm.DB) domainRepo.CashMovementRepository {
	return &cashMovementRepository{db: db}
}

func (r *cashMovementRepository) Create(ctx context.Context, movement *entity.CashMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}
