package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	"github.com/sangkips/pdv-engine/internal/domain/repository"
	"github.com/sangkips/pdv-engine/internal/infrastructure/metrics"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/sangkips/pdv-engine/pkg/fiscal"
)

const defaultFiscalTimeout = 30 * time.Second

type fiscalRecorder interface {
	UpdateFiscal(ctx context.Context, id uuid.UUID, update repository.FiscalUpdate) error
}

type fiscalDocumentPrinter interface {
	EnqueueFiscalDocument(ctx context.Context, sale *entity.Sale, emission *entity.FiscalEmission) (*entity.PrintJob, error)
}

type emissionState struct {
	emission entity.FiscalEmission
	doc      *fiscal.Document
	sale     *entity.Sale
}

type fiscalOutcome struct {
	saleID  uuid.UUID
	attempt int
	result  *fiscal.Result
	err     error
}

// FiscalService drives NFC-e/NF-e emissions. Each submission runs in its own
// goroutine and reports to a single status loop, which is the only writer of
// final states.
type FiscalService struct {
	client  fiscal.Client
	sales   fiscalRecorder
	prints  fiscalDocumentPrinter
	timeout time.Duration

	mu        sync.Mutex
	emissions map[uuid.UUID]*emissionState

	results chan fiscalOutcome
	done    chan struct{}
	stop    sync.Once
	wg      sync.WaitGroup
}

// NewFiscalService creates the orchestrator and starts its status loop.
// sales and prints may be nil.
func NewFiscalService(client fiscal.Client, sales fiscalRecorder, prints fiscalDocumentPrinter, timeout time.Duration) *FiscalService {
	if timeout <= 0 {
		timeout = defaultFiscalTimeout
	}
	s := &FiscalService{
		client:    client,
		sales:     sales,
		prints:    prints,
		timeout:   timeout,
		emissions: make(map[uuid.UUID]*emissionState),
		results:   make(chan fiscalOutcome),
		done:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

// Close stops the status loop. Outstanding submissions are abandoned.
func (s *FiscalService) Close() {
	s.stop.Do(func() { close(s.done) })
	s.wg.Wait()
}

// Emit requests the fiscal document of a sale. An authorized emission is
// returned as is; a failed one must go through Retry.
func (s *FiscalService) Emit(ctx context.Context, sale *entity.Sale, docType entity.DocumentType) (*entity.FiscalEmission, error) {
	if !docType.Valid() {
		return nil, apperror.ErrInvalidDocumentType
	}
	if docType == entity.DocumentNFe && sale.Customer() == nil {
		return nil, apperror.ErrMissingCustomer.WithMessage("NF-e requires an identified customer")
	}

	s.mu.Lock()
	if st, ok := s.emissions[sale.ID]; ok {
		em := st.emission
		s.mu.Unlock()
		switch {
		case em.Status.InFlight():
			return nil, apperror.ErrEmissionInProgress
		case em.Status == enum.FiscalStatusAuthorized:
			return &em, nil
		default:
			return nil, apperror.ErrEmissionNotRetry.WithMessage("Emission already settled as " + em.Status.String())
		}
	}

	now := time.Now()
	st := &emissionState{
		emission: entity.FiscalEmission{
			SaleID:      sale.ID,
			DocType:     docType,
			Status:      enum.FiscalStatusRequested,
			Attempts:    1,
			RequestedAt: now,
			UpdatedAt:   now,
		},
		doc:  buildFiscalDocument(sale, docType),
		sale: sale.Clone(),
	}
	s.emissions[sale.ID] = st
	em := st.emission
	s.mu.Unlock()

	s.record(ctx, &em)
	slog.InfoContext(ctx, "fiscal emission requested", "sale_id", sale.ID, "doc_type", docType)
	s.submit(context.WithoutCancel(ctx), sale.ID, em.Attempts, st.doc)
	return &em, nil
}

// Retry resubmits the same document. Only failed emissions can be retried;
// denied is final.
func (s *FiscalService) Retry(ctx context.Context, saleID uuid.UUID) (*entity.FiscalEmission, error) {
	s.mu.Lock()
	st, ok := s.emissions[saleID]
	if !ok {
		s.mu.Unlock()
		return nil, apperror.NewNotFoundError("Fiscal emission")
	}
	if st.emission.Status != enum.FiscalStatusFailed {
		s.mu.Unlock()
		return nil, apperror.ErrEmissionNotRetry
	}
	st.emission.Attempts++
	st.emission.Status = enum.FiscalStatusRequested
	st.emission.Error = ""
	st.emission.UpdatedAt = time.Now()
	em := st.emission
	doc := st.doc
	s.mu.Unlock()

	s.record(ctx, &em)
	slog.InfoContext(ctx, "fiscal emission retried", "sale_id", saleID, "attempt", em.Attempts)
	s.submit(context.WithoutCancel(ctx), saleID, em.Attempts, doc)
	return &em, nil
}

// Get returns the emission of a sale.
func (s *FiscalService) Get(saleID uuid.UUID) (*entity.FiscalEmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.emissions[saleID]
	if !ok {
		return nil, apperror.NewNotFoundError("Fiscal emission")
	}
	em := st.emission
	return &em, nil
}

func (s *FiscalService) submit(ctx context.Context, saleID uuid.UUID, attempt int, doc *fiscal.Document) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.mu.Lock()
		st := s.emissions[saleID]
		if st.emission.Attempts != attempt {
			s.mu.Unlock()
			return
		}
		st.emission.Status = enum.FiscalStatusSubmitted
		st.emission.UpdatedAt = time.Now()
		em := st.emission
		s.mu.Unlock()
		s.record(ctx, &em)

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		res, err := s.client.Submit(callCtx, doc)
		cancel()

		select {
		case s.results <- fiscalOutcome{saleID: saleID, attempt: attempt, result: res, err: err}:
		case <-s.done:
		}
	}()
}

func (s *FiscalService) loop() {
	defer s.wg.Done()
	for {
		select {
		case out := <-s.results:
			s.apply(out)
		case <-s.done:
			return
		}
	}
}

func (s *FiscalService) apply(out fiscalOutcome) {
	ctx := context.Background()

	s.mu.Lock()
	st, ok := s.emissions[out.saleID]
	if !ok || st.emission.Attempts != out.attempt {
		s.mu.Unlock()
		return
	}
	switch {
	case out.err != nil:
		st.emission.Status = enum.FiscalStatusFailed
		st.emission.Error = out.err.Error()
	case out.result.Status == fiscal.StatusAuthorized:
		st.emission.Status = enum.FiscalStatusAuthorized
		st.emission.AccessKey = out.result.AccessKey
		st.emission.Protocol = out.result.Protocol
		st.emission.Error = ""
		st.sale.FiscalStatus = enum.FiscalStatusAuthorized
		st.sale.AccessKey = out.result.AccessKey
		st.sale.Protocol = out.result.Protocol
	default:
		st.emission.Status = enum.FiscalStatusDenied
		st.emission.Error = out.result.Message
	}
	st.emission.UpdatedAt = time.Now()
	em := st.emission
	sale := st.sale.Clone()
	s.mu.Unlock()

	s.record(ctx, &em)
	metrics.FiscalEmissions.WithLabelValues(string(em.DocType), em.Status.String()).Inc()

	switch em.Status {
	case enum.FiscalStatusAuthorized:
		slog.InfoContext(ctx, "fiscal document authorized", "sale_id", em.SaleID, "access_key", em.AccessKey, "protocol", em.Protocol)
		if s.prints != nil {
			if _, err := s.prints.EnqueueFiscalDocument(ctx, sale, &em); err != nil {
				slog.WarnContext(ctx, "failed to queue fiscal document print", "sale_id", em.SaleID, "error", err)
			}
		}
	case enum.FiscalStatusDenied:
		slog.WarnContext(ctx, "fiscal document denied", "sale_id", em.SaleID, "reason", em.Error)
	default:
		slog.ErrorContext(ctx, "fiscal submission failed", "sale_id", em.SaleID, "attempt", em.Attempts, "error", em.Error)
	}
}

// record attaches the emission state to the sale. Only fiscal fields move.
func (s *FiscalService) record(ctx context.Context, em *entity.FiscalEmission) {
	if s.sales == nil {
		return
	}
	update := repository.FiscalUpdate{
		DocType:   em.DocType,
		Status:    em.Status,
		AccessKey: em.AccessKey,
		Protocol:  em.Protocol,
		Error:     em.Error,
	}
	if err := s.sales.UpdateFiscal(ctx, em.SaleID, update); err != nil {
		slog.WarnContext(ctx, "failed to attach fiscal status to sale", "sale_id", em.SaleID, "status", em.Status.String(), "error", err)
	}
}

func buildFiscalDocument(sale *entity.Sale, docType entity.DocumentType) *fiscal.Document {
	doc := &fiscal.Document{
		SaleID:   sale.ID.String(),
		Number:   sale.Number,
		Type:     string(docType),
		IssuedAt: sale.CreatedAt,
		Subtotal: sale.Subtotal,
		Discount: sale.DiscountTotal,
		Tax:      sale.TaxTotal,
		Total:    sale.Total,
	}
	if c := sale.Customer(); c != nil {
		doc.Recipient = &fiscal.Recipient{Name: c.Name, Document: c.Document}
	}
	for _, it := range sale.Items {
		doc.Items = append(doc.Items, fiscal.Item{
			ProductID:   it.ProductID.String(),
			Description: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.DiscountedTotal,
		})
	}
	for _, p := range sale.Payments {
		doc.Payments = append(doc.Payments, fiscal.PaymentInfo{
			Method:       p.Method.String(),
			Amount:       p.Amount,
			Installments: p.Installments,
		})
	}
	return doc
}
