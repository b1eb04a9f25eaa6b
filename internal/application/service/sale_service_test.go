package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	"github.com/sangkips/pdv-engine/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSale() *entity.Sale {
	return &entity.Sale{
		ID:         uuid.New(),
		Number:     "PDV01-0001",
		TerminalID: "PDV01",
		Subtotal:   dec("13.98"),
		TaxTotal:   dec("1.2582"),
		Total:      dec("15.2382"),
		CreatedAt:  time.Now(),
	}
}

func TestSaleService_RecordPersists(t *testing.T) {
	repo := newMemSaleRepo()
	svc := NewSaleService(repo)
	sale := testSale()

	svc.Record(context.Background(), sale)
	svc.Wait()

	assert.Equal(t, 1, repo.count())
	assert.Empty(t, svc.Pending())

	got, err := svc.Get(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.True(t, got.Recorded)
	assertDecimal(t, "15.2382", got.Total)
}

func TestSaleService_FailedWriteStaysPendingAndRetries(t *testing.T) {
	repo := newMemSaleRepo()
	repo.setFail(true)
	svc := NewSaleService(repo)
	sale := testSale()
	ctx := context.Background()

	svc.Record(ctx, sale)
	svc.Wait()

	require.Len(t, svc.Pending(), 1)
	got, err := svc.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.False(t, got.Recorded, "pending sales are served from memory")

	// Status changes made while pending are carried into the database.
	require.NoError(t, svc.UpdateFiscal(ctx, sale.ID, repository.FiscalUpdate{
		DocType: entity.DocumentNFCe, Status: enum.FiscalStatusAuthorized, AccessKey: "35", Protocol: "1",
	}))
	require.NoError(t, svc.UpdatePrintStatus(ctx, sale.ID, enum.PrintStatusCompleted))

	repo.setFail(false)
	assert.Equal(t, 1, svc.RetryPending(ctx))
	svc.Wait()

	assert.Empty(t, svc.Pending())
	stored, err := repo.GetByID(ctx, sale.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, enum.FiscalStatusAuthorized, stored.FiscalStatus)
	require.NotNil(t, stored.PrintStatus)
	assert.Equal(t, enum.PrintStatusCompleted, *stored.PrintStatus)
	assertDecimal(t, "15.2382", stored.Total, "financial fields are unchanged")
}

func TestSaleService_RecordIsIdempotent(t *testing.T) {
	repo := newMemSaleRepo()
	repo.setFail(true)
	svc := NewSaleService(repo)
	sale := testSale()

	svc.Record(context.Background(), sale)
	svc.Record(context.Background(), sale)
	svc.Wait()

	assert.Len(t, svc.Pending(), 1)
}

func TestSaleService_GetUnknown(t *testing.T) {
	svc := NewSaleService(newMemSaleRepo())
	_, err := svc.Get(context.Background(), uuid.New())
	assert.Error(t, err)
}
