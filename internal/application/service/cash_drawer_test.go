package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/repository"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestDrawer(t *testing.T, opening string, repo *memMovementRepo, pinHash string) *CashDrawer {
	t.Helper()
	sess := &Session{ID: uuid.New(), TerminalID: "PDV01", CashierID: uuid.New()}
	var movements repository.CashMovementRepository
	if repo != nil {
		movements = repo
	}
	d, err := NewCashDrawer(context.Background(), sess, dec(opening), movements, pinHash)
	require.NoError(t, err)
	return d
}

func TestCashDrawer_Movements(t *testing.T) {
	repo := &memMovementRepo{}
	d := newTestDrawer(t, "100", repo, "")
	ctx := context.Background()

	_, err := d.Deposit(ctx, dec("50"), "troco")
	require.NoError(t, err)
	d.RecordSale(ctx, uuid.New(), dec("15.2382"))
	_, err = d.Withdraw(ctx, dec("30"), "sangria", "")
	require.NoError(t, err)

	assertDecimal(t, "135.2382", d.Balance())

	ledger := d.Movements()
	require.Len(t, ledger, 4)
	kinds := []entity.CashMovementKind{ledger[0].Kind, ledger[1].Kind, ledger[2].Kind, ledger[3].Kind}
	assert.Equal(t, []entity.CashMovementKind{entity.CashOpening, entity.CashDeposit, entity.CashSale, entity.CashWithdrawal}, kinds)
	assertDecimal(t, "-30", ledger[3].Amount)
	assertDecimal(t, "135.2382", ledger[3].BalanceAfter)
	assert.Len(t, repo.movements, 4)
}

func TestCashDrawer_RejectsBadAmounts(t *testing.T) {
	d := newTestDrawer(t, "10", nil, "")
	ctx := context.Background()

	_, err := d.Deposit(ctx, decimal.Zero, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount)
	_, err = d.Withdraw(ctx, dec("-1"), "", "")
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount)
	_, err = d.Withdraw(ctx, dec("10.01"), "", "")
	assert.ErrorIs(t, err, apperror.ErrInsufficientFunds)

	_, err = NewCashDrawer(ctx, &Session{ID: uuid.New()}, dec("-5"), nil, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount)
	assertDecimal(t, "10", d.Balance())
}

func TestCashDrawer_WithdrawRequiresSupervisorPIN(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("4321"), bcrypt.MinCost)
	require.NoError(t, err)
	d := newTestDrawer(t, "100", nil, string(hash))
	ctx := context.Background()

	_, err = d.Withdraw(ctx, dec("10"), "sangria", "0000")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = d.Withdraw(ctx, dec("10"), "sangria", "4321")
	assert.NoError(t, err)
	assertDecimal(t, "90", d.Balance())
}

func TestCashDrawer_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	d := newTestDrawer(t, "100", nil, "")
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Withdraw(ctx, dec("10"), "", ""); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assertDecimal(t, "0", d.Balance())
}

func TestCashDrawer_FailedPersistLeavesBalance(t *testing.T) {
	repo := &memMovementRepo{}
	d := newTestDrawer(t, "100", repo, "")
	repo.fail = true

	_, err := d.Deposit(context.Background(), dec("5"), "")
	assert.Error(t, err)
	assertDecimal(t, "100", d.Balance())
	assert.Len(t, d.Movements(), 1)
}
