package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/pkg/pagination"
)

// ProductRepository is a read-only view of the product catalog
type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	GetByCode(ctx context.Context, code string) (*entity.Product, error)
	Search(ctx context.Context, params *ProductSearchParams) ([]entity.Product, int64, error)
}

// ProductSearchParams filters the catalog lookup used by the terminal
type ProductSearchParams struct {
	Pagination *pagination.PaginationParams
	Search     string
	ActiveOnly bool
}

// PromotionRepository lists promotion rules
type PromotionRepository interface {
	ListActive(ctx context.Context, at time.Time) ([]entity.Promotion, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Promotion, error)
}
