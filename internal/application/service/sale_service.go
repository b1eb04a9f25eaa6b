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
)

// pendingSale is a sale that has been finalized but not yet written.
type pendingSale struct {
	sale     *entity.Sale
	inflight bool
	// dirty marks fiscal/print changes made while the create was in flight.
	dirty   bool
	lastErr error
}

// SaleService is the durability boundary for completed sales. Record never
// fails the checkout: a sale that cannot be written stays pending in memory
// and is retried until the database accepts it.
type SaleService struct {
	repo repository.SaleRepository

	mu      sync.Mutex
	pending map[uuid.UUID]*pendingSale
	wg      sync.WaitGroup
}

// NewSaleService creates a new sale service
func NewSaleService(repo repository.SaleRepository) *SaleService {
	return &SaleService{
		repo:    repo,
		pending: make(map[uuid.UUID]*pendingSale),
	}
}

// Record hands a finalized sale to the repository in the background.
func (s *SaleService) Record(ctx context.Context, sale *entity.Sale) {
	s.mu.Lock()
	if _, ok := s.pending[sale.ID]; ok {
		s.mu.Unlock()
		return
	}
	s.pending[sale.ID] = &pendingSale{sale: sale.Clone()}
	metrics.SalesPendingRecord.Set(float64(len(s.pending)))
	s.mu.Unlock()

	s.persist(context.WithoutCancel(ctx), sale.ID)
}

// persist starts a create for one pending entry unless one is running.
func (s *SaleService) persist(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()
	entry, ok := s.pending[id]
	if !ok || entry.inflight {
		s.mu.Unlock()
		return
	}
	entry.inflight = true
	entry.dirty = false
	sale := entry.sale.Clone()
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.Create(ctx, sale); err != nil {
			s.mu.Lock()
			entry.inflight = false
			entry.lastErr = err
			s.mu.Unlock()
			slog.ErrorContext(ctx, "failed to record sale, kept pending", "sale_id", id, "number", sale.Number, "error", err)
			return
		}
		slog.InfoContext(ctx, "sale recorded", "sale_id", id, "number", sale.Number)

		// The entry stays pending until every change made during the
		// create has been written, so later updates cannot be overtaken.
		for {
			s.mu.Lock()
			if !entry.dirty {
				delete(s.pending, id)
				metrics.SalesPendingRecord.Set(float64(len(s.pending)))
				s.mu.Unlock()
				return
			}
			entry.dirty = false
			latest := entry.sale.Clone()
			s.mu.Unlock()
			s.flush(ctx, latest)
		}
	}()
}

// flush writes the fiscal and print fields changed during the create.
func (s *SaleService) flush(ctx context.Context, sale *entity.Sale) {
	update := repository.FiscalUpdate{
		DocType:   sale.FiscalDocType,
		Status:    sale.FiscalStatus,
		AccessKey: sale.AccessKey,
		Protocol:  sale.Protocol,
		Error:     sale.FiscalError,
	}
	if err := s.repo.UpdateFiscal(ctx, sale.ID, update); err != nil {
		slog.ErrorContext(ctx, "failed to update sale fiscal status", "sale_id", sale.ID, "error", err)
	}
	if sale.PrintStatus != nil {
		if err := s.repo.UpdatePrintStatus(ctx, sale.ID, *sale.PrintStatus); err != nil {
			slog.ErrorContext(ctx, "failed to update sale print status", "sale_id", sale.ID, "error", err)
		}
	}
}

// Get returns a sale, pending or recorded.
func (s *SaleService) Get(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	s.mu.Lock()
	if entry, ok := s.pending[id]; ok {
		out := entry.sale.Clone()
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	sale, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, apperror.NewNotFoundError("Sale")
	}
	return sale, nil
}

// List returns recorded sales.
func (s *SaleService) List(ctx context.Context, params *repository.SaleFilterParams) ([]entity.Sale, int64, error) {
	return s.repo.List(ctx, params)
}

// Pending returns copies of the sales not yet written.
func (s *SaleService) Pending() []*entity.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Sale, 0, len(s.pending))
	for _, entry := range s.pending {
		out = append(out, entry.sale.Clone())
	}
	return out
}

// UpdateFiscal attaches the fiscal outcome to a sale. Only the fiscal fields
// are touched.
func (s *SaleService) UpdateFiscal(ctx context.Context, id uuid.UUID, update repository.FiscalUpdate) error {
	s.mu.Lock()
	if entry, ok := s.pending[id]; ok {
		entry.sale.FiscalDocType = update.DocType
		entry.sale.FiscalStatus = update.Status
		entry.sale.AccessKey = update.AccessKey
		entry.sale.Protocol = update.Protocol
		entry.sale.FiscalError = update.Error
		entry.dirty = true
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.repo.UpdateFiscal(ctx, id, update)
}

// UpdatePrintStatus mirrors the receipt job status on the sale.
func (s *SaleService) UpdatePrintStatus(ctx context.Context, id uuid.UUID, status enum.PrintStatus) error {
	s.mu.Lock()
	if entry, ok := s.pending[id]; ok {
		entry.sale.PrintStatus = &status
		entry.dirty = true
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.repo.UpdatePrintStatus(ctx, id, status)
}

// RetryPending resubmits every pending sale that is not already in flight.
// It returns the number of retries started.
func (s *SaleService) RetryPending(ctx context.Context) int {
	s.mu.Lock()
	ids := make([]uuid.UUID, 0, len(s.pending))
	for id, entry := range s.pending {
		if !entry.inflight {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.persist(ctx, id)
	}
	if len(ids) > 0 {
		slog.InfoContext(ctx, "retrying pending sales", "count", len(ids))
	}
	return len(ids)
}

// Run retries pending sales on every tick until ctx is done. Writes already
// started are not cancelled with ctx.
func (s *SaleService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	writeCtx := context.WithoutCancel(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RetryPending(writeCtx)
		}
	}
}

// Wait blocks until running writes finish.
func (s *SaleService) Wait() {
	s.wg.Wait()
}
