package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/pdv-engine/internal/application/service"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/request"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/response"
	"github.com/sangkips/pdv-engine/pkg/tef"
)

// PaymentHandler drives the checkout of a terminal
type PaymentHandler struct {
	sessions *service.SessionService
	payments *service.PaymentService
	terminal tef.Terminal
}

// NewPaymentHandler creates a new payment handler. terminal may be nil.
func NewPaymentHandler(sessions *service.SessionService, payments *service.PaymentService, terminal tef.Terminal) *PaymentHandler {
	return &PaymentHandler{sessions: sessions, payments: payments, terminal: terminal}
}

// Open starts the checkout of the active cart
func (h *PaymentHandler) Open(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	flow, err := h.payments.Open(c.Request.Context(), sess)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Payment opened successfully", flow)
}

// Get returns the current payment flow
func (h *PaymentHandler) Get(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	flow, err := h.payments.Current(sess)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Payment retrieved successfully", flow)
}

// SelectMethod chooses how the sale is paid
func (h *PaymentHandler) SelectMethod(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	var req request.SelectMethodRequest
	if !bindJSON(c, &req) {
		return
	}

	flow, err := h.payments.SelectMethod(sess, *req.Method)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Payment method selected", flow)
}

// UpdateDetails edits the amount tendered, installments or card type
func (h *PaymentHandler) UpdateDetails(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	var req request.PaymentDetailsRequest
	if !bindJSON(c, &req) {
		return
	}

	details := service.PaymentDetails{
		AmountTendered: req.AmountTendered,
		Installments:   req.Installments,
	}
	if req.CardType != nil {
		ct := entity.CardType(*req.CardType)
		details.CardType = &ct
	}

	flow, err := h.payments.UpdateDetails(sess, details)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Payment details updated", flow)
}

// Confirm validates the payment and finalizes the sale. A repeated confirm
// on a completed flow returns the same sale.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	var req request.ConfirmPaymentRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	sale, err := h.payments.Confirm(c.Request.Context(), sess, entity.DocumentType(req.DocumentType))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Sale completed successfully", sale)
}

// Cancel abandons the checkout; the cart is kept
func (h *PaymentHandler) Cancel(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	flow, err := h.payments.Cancel(c.Request.Context(), sess)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Payment cancelled", flow)
}

// TEFStatus reports whether the card terminal is reachable
func (h *PaymentHandler) TEFStatus(c *gin.Context) {
	if h.terminal == nil {
		response.OK(c, "Card terminal not configured", gin.H{"status": tef.StatusDisconnected})
		return
	}
	response.OK(c, "Card terminal status retrieved", gin.H{"status": h.terminal.CheckStatus(c.Request.Context())})
}
