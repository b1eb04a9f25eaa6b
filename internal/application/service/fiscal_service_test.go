package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/sangkips/pdv-engine/pkg/fiscal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fiscalStatus(t *testing.T, svc *FiscalService, saleID uuid.UUID) func() bool {
	return func() bool {
		em, err := svc.Get(saleID)
		return err == nil && em.Status.Terminal()
	}
}

func recordedSale(t *testing.T, sales *SaleService) *entity.Sale {
	t.Helper()
	sale := testSale()
	sale.Items = []entity.SaleItem{{ProductID: uuid.New(), ProductName: "Cafe", Quantity: 2, UnitPrice: dec("6.99"), LineTotal: dec("13.98"), DiscountedTotal: dec("13.98")}}
	sales.Record(context.Background(), sale)
	sales.Wait()
	return sale
}

func TestFiscalService_AuthorizesAndPrints(t *testing.T) {
	repo := newMemSaleRepo()
	sales := NewSaleService(repo)
	p := newFakePrinter()
	prints, err := NewPrintQueue([]PrintDevice{{Name: "caixa", Printer: p}}, PrintQueueOptions{Timeout: time.Second, Width: 48})
	require.NoError(t, err)
	client := &scriptedFiscal{}
	svc := NewFiscalService(client, sales, prints, time.Second)
	defer svc.Close()
	ctx := context.Background()

	sale := recordedSale(t, sales)
	em, err := svc.Emit(ctx, sale, entity.DocumentNFCe)
	require.NoError(t, err)
	assert.Equal(t, enum.FiscalStatusRequested, em.Status)

	require.Eventually(t, fiscalStatus(t, svc, sale.ID), eventually, tick)
	em, err = svc.Get(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.FiscalStatusAuthorized, em.Status)
	assert.Len(t, em.AccessKey, 44)
	assert.Equal(t, "135000000000001", em.Protocol)

	stored, err := repo.GetByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.FiscalStatusAuthorized, stored.FiscalStatus)
	assert.Equal(t, em.AccessKey, stored.AccessKey)
	assertDecimal(t, "15.2382", stored.Total, "only fiscal fields change")

	assert.Eventually(t, func() bool {
		jobs := prints.Jobs()
		return len(jobs) == 1 && jobs[0].Kind == entity.PrintFiscalDocument && jobs[0].Status == enum.PrintStatusCompleted
	}, eventually, tick)

	again, err := svc.Emit(ctx, sale, entity.DocumentNFCe)
	require.NoError(t, err, "emitting an authorized sale returns the emission")
	assert.Equal(t, em.AccessKey, again.AccessKey)
	assert.Len(t, client.submitted(), 1)
}

func TestFiscalService_NFeRequiresCustomer(t *testing.T) {
	svc := NewFiscalService(&scriptedFiscal{}, nil, nil, time.Second)
	defer svc.Close()

	_, err := svc.Emit(context.Background(), testSale(), entity.DocumentNFe)
	assert.ErrorIs(t, err, apperror.ErrMissingCustomer)

	_, err = svc.Emit(context.Background(), testSale(), entity.DocumentType("cte"))
	assert.ErrorIs(t, err, apperror.ErrInvalidDocumentType)
}

func TestFiscalService_InProgressRejectsSecondEmit(t *testing.T) {
	client := &scriptedFiscal{release: make(chan struct{})}
	svc := NewFiscalService(client, nil, nil, time.Second)
	defer svc.Close()
	sale := testSale()
	ctx := context.Background()

	_, err := svc.Emit(ctx, sale, entity.DocumentNFCe)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		em, _ := svc.Get(sale.ID)
		return em.Status == enum.FiscalStatusSubmitted
	}, eventually, tick)

	_, err = svc.Emit(ctx, sale, entity.DocumentNFCe)
	assert.ErrorIs(t, err, apperror.ErrEmissionInProgress)

	close(client.release)
	assert.Eventually(t, fiscalStatus(t, svc, sale.ID), eventually, tick)
}

func TestFiscalService_RetryOnlyFromFailed(t *testing.T) {
	client := &scriptedFiscal{script: []func(*fiscal.Document) (*fiscal.Result, error){
		func(*fiscal.Document) (*fiscal.Result, error) { return nil, errors.New("sefaz offline") },
	}}
	svc := NewFiscalService(client, nil, nil, time.Second)
	defer svc.Close()
	sale := testSale()
	ctx := context.Background()

	_, err := svc.Emit(ctx, sale, entity.DocumentNFCe)
	require.NoError(t, err)
	require.Eventually(t, fiscalStatus(t, svc, sale.ID), eventually, tick)

	em, err := svc.Get(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.FiscalStatusFailed, em.Status)
	assert.Equal(t, "sefaz offline", em.Error)

	_, err = svc.Emit(ctx, sale, entity.DocumentNFCe)
	assert.ErrorIs(t, err, apperror.ErrEmissionNotRetry, "failed emissions go through Retry")

	em, err = svc.Retry(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, em.Attempts)
	require.Eventually(t, fiscalStatus(t, svc, sale.ID), eventually, tick)

	em, err = svc.Get(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.FiscalStatusAuthorized, em.Status)

	docs := client.submitted()
	require.Len(t, docs, 2)
	assert.Equal(t, docs[0], docs[1], "the same payload is resubmitted")

	_, err = svc.Retry(ctx, sale.ID)
	assert.ErrorIs(t, err, apperror.ErrEmissionNotRetry)
}

func TestFiscalService_DeniedIsTerminal(t *testing.T) {
	client := &scriptedFiscal{script: []func(*fiscal.Document) (*fiscal.Result, error){
		func(*fiscal.Document) (*fiscal.Result, error) {
			return &fiscal.Result{Status: fiscal.StatusDenied, Message: "Rejeicao: NCM inexistente"}, nil
		},
	}}
	svc := NewFiscalService(client, nil, nil, time.Second)
	defer svc.Close()
	sale := testSale()
	ctx := context.Background()

	_, err := svc.Emit(ctx, sale, entity.DocumentNFCe)
	require.NoError(t, err)
	require.Eventually(t, fiscalStatus(t, svc, sale.ID), eventually, tick)

	em, err := svc.Get(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.FiscalStatusDenied, em.Status)
	assert.Equal(t, "Rejeicao: NCM inexistente", em.Error)

	_, err = svc.Retry(ctx, sale.ID)
	assert.ErrorIs(t, err, apperror.ErrEmissionNotRetry)
	_, err = svc.Retry(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
