package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
)

// CustomerRepository is a read-only view of the customer directory
type CustomerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error)
	GetByDocument(ctx context.Context, document string) (*entity.Customer, error)
}
