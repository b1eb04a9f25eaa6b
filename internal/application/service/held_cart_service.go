package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/repository"
	"github.com/sangkips/pdv-engine/pkg/apperror"
)

// HeldCartService parks and resumes whole carts.
type HeldCartService struct {
	repo repository.HeldCartRepository
	now  func() time.Time
}

// NewHeldCartService creates a new held cart service
func NewHeldCartService(repo repository.HeldCartRepository) *HeldCartService {
	return &HeldCartService{repo: repo, now: time.Now}
}

// Hold stores a snapshot of the session's cart and clears it.
func (s *HeldCartService) Hold(ctx context.Context, sess *Session) (*entity.HeldCart, error) {
	if err := mutable(sess); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.cart.IsEmpty() {
		return nil, apperror.ErrEmptyCart
	}

	snap := sess.cart.Snapshot()
	held := &entity.HeldCart{
		ID:         uuid.New(),
		TerminalID: sess.TerminalID,
		CashierID:  sess.CashierID,
		Items:      snap.Items,
		Customer:   snap.Customer,
		Notes:      snap.Notes,
		Discounts:  snap.Discounts,
		HeldAt:     s.now(),
	}
	// The cart is cleared only once the snapshot is safely stored.
	if err := s.repo.Save(ctx, held); err != nil {
		return nil, err
	}
	sess.cart.Clear()

	slog.InfoContext(ctx, "cart held", "terminal_id", sess.TerminalID, "held_cart_id", held.ID, "items", len(held.Items))
	return held, nil
}

// HasUnsavedCart reports whether recovering a held cart would overwrite
// items in the active cart.
func (s *HeldCartService) HasUnsavedCart(sess *Session) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return !sess.cart.IsEmpty()
}

// Recover makes a held cart the active cart and removes it from the
// registry. When the active cart has items the caller must pass
// overwrite=true, otherwise ErrUnsavedCart is returned and nothing changes.
func (s *HeldCartService) Recover(ctx context.Context, sess *Session, heldCartID uuid.UUID, overwrite bool) (*entity.Cart, error) {
	if err := mutable(sess); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if !sess.cart.IsEmpty() && !overwrite {
		return nil, apperror.ErrUnsavedCart
	}

	held, err := s.repo.Get(ctx, heldCartID)
	if err != nil {
		return nil, err
	}
	if held == nil || held.TerminalID != sess.TerminalID {
		return nil, apperror.ErrHeldCartNotFound
	}

	// Pop is atomic; a concurrent recover of the same id gets nil here.
	held, err = s.repo.Pop(ctx, heldCartID)
	if err != nil {
		return nil, err
	}
	if held == nil {
		return nil, apperror.ErrHeldCartNotFound
	}

	sess.cart = held.ToCart(sess.cart.MaxQuantity)

	slog.InfoContext(ctx, "held cart recovered", "terminal_id", sess.TerminalID, "held_cart_id", held.ID, "overwrite", overwrite)
	return sess.cart.Snapshot(), nil
}

// Discard deletes a held cart of the terminal.
func (s *HeldCartService) Discard(ctx context.Context, terminalID string, heldCartID uuid.UUID) error {
	held, err := s.repo.Get(ctx, heldCartID)
	if err != nil {
		return err
	}
	if held == nil || held.TerminalID != terminalID {
		return apperror.ErrHeldCartNotFound
	}
	ok, err := s.repo.Delete(ctx, heldCartID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.ErrHeldCartNotFound
	}
	return nil
}

// List returns the terminal's held carts, oldest first.
func (s *HeldCartService) List(ctx context.Context, terminalID string) ([]entity.HeldCart, error) {
	return s.repo.ListByTerminal(ctx, terminalID)
}
