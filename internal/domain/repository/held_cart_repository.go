package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
)

// HeldCartRepository stores parked carts
type HeldCartRepository interface {
	Save(ctx context.Context, held *entity.HeldCart) error
	Get(ctx context.Context, id uuid.UUID) (*entity.HeldCart, error)
	// Pop removes and returns a held cart atomically; (nil, nil) when absent.
	Pop(ctx context.Context, id uuid.UUID) (*entity.HeldCart, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ListByTerminal(ctx context.Context, terminalID string) ([]entity.HeldCart, error)
}
