package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/pdv-engine/internal/application/service"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	"github.com/sangkips/pdv-engine/internal/domain/repository"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/request"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/response"
	"github.com/sangkips/pdv-engine/pkg/pagination"
)

const dateLayout = "2006-01-02"

// SaleHandler serves recorded sales and their fiscal documents
type SaleHandler struct {
	sales  *service.SaleService
	fiscal *service.FiscalService
	prints *service.PrintQueue
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(sales *service.SaleService, fiscal *service.FiscalService, prints *service.PrintQueue) *SaleHandler {
	return &SaleHandler{sales: sales, fiscal: fiscal, prints: prints}
}

// List returns recorded sales, newest first
func (h *SaleHandler) List(c *gin.Context) {
	var req request.SaleFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query: "+err.Error())
		return
	}

	params := &repository.SaleFilterParams{
		Pagination: &pagination.PaginationParams{Page: req.Page, PerPage: req.PerPage},
		TerminalID: req.TerminalID,
	}
	params.Pagination.Validate()

	if req.FiscalStatus != "" {
		status, err := enum.ParseFiscalStatus(req.FiscalStatus)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		params.FiscalStatus = &status
	}
	if req.StartDate != "" {
		t, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			response.BadRequest(c, "start_date must be YYYY-MM-DD")
			return
		}
		params.StartDate = &t
	}
	if req.EndDate != "" {
		t, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			response.BadRequest(c, "end_date must be YYYY-MM-DD")
			return
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		params.EndDate = &end
	}

	sales, total, err := h.sales.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	result := pagination.NewPaginatedResult(sales, pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total))
	response.SuccessWithPagination(c, 200, "Sales retrieved successfully", result)
}

// Get returns one sale, recorded or still pending
func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	sale, err := h.sales.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Sale retrieved successfully", sale)
}

// Pending returns the sales not yet written to the database
func (h *SaleHandler) Pending(c *gin.Context) {
	response.OK(c, "Pending sales retrieved successfully", h.sales.Pending())
}

// RetryPending resubmits the pending sales
func (h *SaleHandler) RetryPending(c *gin.Context) {
	n := h.sales.RetryPending(c.Request.Context())
	response.Accepted(c, "Pending sales resubmitted", gin.H{"retried": n})
}

// Fiscal returns the fiscal emission of a sale
func (h *SaleHandler) Fiscal(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	em, err := h.fiscal.Get(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Fiscal emission retrieved successfully", em)
}

// EmitFiscal requests a fiscal document for a sale that has none
func (h *SaleHandler) EmitFiscal(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req request.ConfirmPaymentRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	sale, err := h.sales.Get(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	docType := entity.DocumentType(req.DocumentType)
	if docType == "" {
		docType = sale.FiscalDocType
	}

	em, err := h.fiscal.Emit(ctx, sale, docType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, "Fiscal emission requested", em)
}

// RetryFiscal resubmits a failed emission
func (h *SaleHandler) RetryFiscal(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	em, err := h.fiscal.Retry(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, "Fiscal emission resubmitted", em)
}

// PrintReceipt queues a copy of the sale receipt
func (h *SaleHandler) PrintReceipt(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	sale, err := h.sales.Get(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	job, err := h.prints.EnqueueReceipt(ctx, sale)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, "Receipt queued for printing", job)
}
