package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/repository"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// CashDrawer is the cash balance of one terminal session. Every change is
// validated and applied under the drawer lock and appended to the ledger.
type CashDrawer struct {
	mu         sync.Mutex
	sessionID  uuid.UUID
	terminalID string
	cashierID  uuid.UUID
	balance    decimal.Decimal
	ledger     []entity.CashMovement
	repo       repository.CashMovementRepository
	pinHash    string
}

// NewCashDrawer creates a drawer holding the opening amount. repo may be nil.
func NewCashDrawer(ctx context.Context, sess *Session, opening decimal.Decimal, repo repository.CashMovementRepository, pinHash string) (*CashDrawer, error) {
	if opening.IsNegative() {
		return nil, apperror.ErrInvalidAmount.WithMessage("Opening balance cannot be negative")
	}
	d := &CashDrawer{
		sessionID:  sess.ID,
		terminalID: sess.TerminalID,
		cashierID:  sess.CashierID,
		balance:    decimal.Zero,
		repo:       repo,
		pinHash:    pinHash,
	}
	if err := d.apply(ctx, entity.CashOpening, opening, nil, "Opening balance"); err != nil {
		return nil, err
	}
	return d, nil
}

// Balance returns the current amount in the drawer.
func (d *CashDrawer) Balance() decimal.Decimal {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.balance
}

// Movements returns a copy of the session ledger.
func (d *CashDrawer) Movements() []entity.CashMovement {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]entity.CashMovement(nil), d.ledger...)
}

// Deposit adds cash to the drawer (change float, supply).
func (d *CashDrawer) Deposit(ctx context.Context, amount decimal.Decimal, note string) (*entity.CashMovement, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.apply(ctx, entity.CashDeposit, amount, nil, note); err != nil {
		return nil, err
	}
	m := d.ledger[len(d.ledger)-1]
	return &m, nil
}

// Withdraw removes cash (sangria). The balance is checked at the moment of
// the mutation, and a supervisor PIN is required when one is configured.
func (d *CashDrawer) Withdraw(ctx context.Context, amount decimal.Decimal, note, pin string) (*entity.CashMovement, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount
	}
	if d.pinHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(d.pinHash), []byte(pin)); err != nil {
			return nil, apperror.ErrForbidden.WithMessage("Supervisor PIN is invalid")
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.balance.LessThan(amount) {
		return nil, apperror.ErrInsufficientFunds.WithMessage(
			"Drawer holds " + d.balance.StringFixed(2) + ", cannot withdraw " + amount.StringFixed(2))
	}
	if err := d.apply(ctx, entity.CashWithdrawal, amount.Neg(), nil, note); err != nil {
		return nil, err
	}
	m := d.ledger[len(d.ledger)-1]
	return &m, nil
}

// RecordSale adds the cash kept from a completed sale. The sale already
// exists, so a ledger write failure is logged rather than returned.
func (d *CashDrawer) RecordSale(ctx context.Context, saleID uuid.UUID, amount decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := saleID
	m := d.movement(entity.CashSale, amount, &id, "")
	d.balance = m.BalanceAfter
	d.ledger = append(d.ledger, m)
	if d.repo != nil {
		if err := d.repo.Create(ctx, &m); err != nil {
			slog.ErrorContext(ctx, "failed to persist cash movement", "sale_id", saleID, "error", err)
		}
	}
}

// apply persists a movement and then moves the balance. Callers hold d.mu
// (or own d exclusively during construction).
func (d *CashDrawer) apply(ctx context.Context, kind entity.CashMovementKind, amount decimal.Decimal, saleID *uuid.UUID, note string) error {
	m := d.movement(kind, amount, saleID, note)
	if d.repo != nil {
		if err := d.repo.Create(ctx, &m); err != nil {
			return err
		}
	}
	d.balance = m.BalanceAfter
	d.ledger = append(d.ledger, m)
	return nil
}

func (d *CashDrawer) movement(kind entity.CashMovementKind, amount decimal.Decimal, saleID *uuid.UUID, note string) entity.CashMovement {
	return entity.CashMovement{
		ID:           uuid.New(),
		SessionID:    d.sessionID,
		TerminalID:   d.terminalID,
		CashierID:    d.cashierID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: d.balance.Add(amount),
		SaleID:       saleID,
		Note:         note,
		CreatedAt:    time.Now(),
	}
}
