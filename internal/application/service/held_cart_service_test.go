package service

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	infraRepo "github.com/sangkips/pdv-engine/internal/infrastructure/repository"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHeldCarts(t *testing.T) *HeldCartService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHeldCartService(infraRepo.NewHeldCartRepository(client, 0))
}

func TestHeldCartService_HoldRecoverRoundTrip(t *testing.T) {
	held := newTestHeldCarts(t)
	_, sess := openTestSession(t, "0")
	ctx := context.Background()

	cafe := testProduct("Cafe", "6.99")
	fillCart(t, sess, line(cafe, 2), line(testProduct("Leite", "4.79"), 1))
	sess.mu.Lock()
	lineID := sess.cart.Items[0].ID
	sess.cart.Customer = &entity.CustomerRef{ID: uuid.New(), Name: "Maria Souza", Document: "12345678909"}
	sess.cart.Notes = "volta em 5 min"
	_, err := sess.cart.AddDiscount(entity.Discount{Kind: entity.DiscountPercentage, Value: dec("10"), Scope: entity.ScopeItem, TargetItemID: &lineID})
	require.NoError(t, err)
	sess.mu.Unlock()
	before := sess.Cart()

	h, err := held.Hold(ctx, sess)
	require.NoError(t, err)
	assert.True(t, sess.Cart().IsEmpty(), "holding clears the active cart")
	assert.False(t, held.HasUnsavedCart(sess))

	list, err := held.List(ctx, "PDV01")
	require.NoError(t, err)
	require.Len(t, list, 1)

	cart, err := held.Recover(ctx, sess, h.ID, false)
	require.NoError(t, err)
	assert.Equal(t, before.Items, cart.Items)
	assert.Equal(t, before.Customer, cart.Customer)
	assert.Equal(t, before.Notes, cart.Notes)
	assert.Equal(t, before.Discounts, cart.Discounts)

	list, err = held.List(ctx, "PDV01")
	require.NoError(t, err)
	assert.Empty(t, list, "recovering removes the held cart")

	_, err = held.Recover(ctx, sess, h.ID, true)
	assert.ErrorIs(t, err, apperror.ErrHeldCartNotFound)
}

func TestHeldCartService_HoldEmptyCart(t *testing.T) {
	held := newTestHeldCarts(t)
	_, sess := openTestSession(t, "0")

	_, err := held.Hold(context.Background(), sess)
	assert.ErrorIs(t, err, apperror.ErrEmptyCart)
}

func TestHeldCartService_RecoverNeedsOverwriteConfirmation(t *testing.T) {
	held := newTestHeldCarts(t)
	_, sess := openTestSession(t, "0")
	ctx := context.Background()

	fillCart(t, sess, line(testProduct("Cafe", "6.99"), 1))
	h, err := held.Hold(ctx, sess)
	require.NoError(t, err)

	pao := testProduct("Pao", "8.90")
	fillCart(t, sess, line(pao, 3))
	assert.True(t, held.HasUnsavedCart(sess))

	_, err = held.Recover(ctx, sess, h.ID, false)
	assert.ErrorIs(t, err, apperror.ErrUnsavedCart)
	assert.Equal(t, pao.ID, sess.Cart().Items[0].ProductID, "active cart untouched")

	cart, err := held.Recover(ctx, sess, h.ID, true)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Cafe", cart.Items[0].ProductName)
}

func TestHeldCartService_OtherTerminalCannotRecover(t *testing.T) {
	held := newTestHeldCarts(t)
	sessions, sess := openTestSession(t, "0")
	ctx := context.Background()
	other, err := sessions.Open(ctx, "PDV02", uuid.New(), dec("0"))
	require.NoError(t, err)

	fillCart(t, sess, line(testProduct("Cafe", "6.99"), 1))
	h, err := held.Hold(ctx, sess)
	require.NoError(t, err)

	_, err = held.Recover(ctx, other, h.ID, true)
	assert.ErrorIs(t, err, apperror.ErrHeldCartNotFound)
	assert.ErrorIs(t, held.Discard(ctx, "PDV02", h.ID), apperror.ErrHeldCartNotFound)

	require.NoError(t, held.Discard(ctx, "PDV01", h.ID))
	assert.ErrorIs(t, held.Discard(ctx, "PDV01", h.ID), apperror.ErrHeldCartNotFound)
}

func TestHeldCartService_ConcurrentRecoverYieldsOneCart(t *testing.T) {
	held := newTestHeldCarts(t)
	_, sess := openTestSession(t, "0")
	ctx := context.Background()

	fillCart(t, sess, line(testProduct("Cafe", "6.99"), 1))
	h, err := held.Hold(ctx, sess)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = held.Recover(ctx, sess, h.ID, true)
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, apperror.ErrHeldCartNotFound)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Len(t, sess.Cart().Items, 1)
}
