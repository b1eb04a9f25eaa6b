package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	domainRepo "github.com/sangkips/pdv-engine/internal/domain/repository"
	"gorm.io/gorm"
)

type saleRepository struct {
	db *gorm.DB
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *gorm.DB) domainRepo.SaleRepository {
	return &saleRepository{db: db}
}

// Create stores the sale with its items and payments in one transaction.
func (r *saleRepository) Create(ctx context.Context, sale *entity.Sale) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(sale).Error
	})
}

func (r *saleRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	var sale entity.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		First(&sale, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err == nil {
		sale.Recorded = true
	}
	return &sale, err
}

func (r *saleRepository) List(ctx context.Context, params *domainRepo.SaleFilterParams) ([]entity.Sale, int64, error) {
	var sales []entity.Sale
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Sale{}).
		Scopes(TerminalScope(params.TerminalID), CreatedBetween(params.StartDate, params.EndDate))

	if params.CashierID != nil {
		query = query.Where("cashier_id = ?", *params.CashierID)
	}

	if params.FiscalStatus != nil {
		query = query.Where("fiscal_status = ?", *params.FiscalStatus)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Scopes(Paginate(params.Pagination)).
		Preload("Items").
		Preload("Payments").
		Order("created_at DESC").
		Find(&sales).Error

	for i := range sales {
		sales[i].Recorded = true
	}
	return sales, total, err
}

// UpdateFiscal touches only the fiscal columns; totals are never rewritten.
func (r *saleRepository) UpdateFiscal(ctx context.Context, id uuid.UUID, update domainRepo.FiscalUpdate) error {
	return r.db.WithContext(ctx).Model(&entity.Sale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"fiscal_doc_type": update.DocType,
			"fiscal_status":   update.Status,
			"access_key":      update.AccessKey,
			"protocol":        update.Protocol,
			"fiscal_error":    update.Error,
		}).Error
}

func (r *saleRepository) UpdatePrintStatus(ctx context.Context, id uuid.UUID, status enum.PrintStatus) error {
	return r.db.WithContext(ctx).Model(&entity.Sale{}).
		Where("id = ?", id).
		Update("print_status", status).Error
}
