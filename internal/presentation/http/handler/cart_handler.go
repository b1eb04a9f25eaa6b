package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/pdv-engine/internal/application/service"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/request"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/response"
)

// CartHandler handles the active cart of a terminal
type CartHandler struct {
	sessions *service.SessionService
	carts    *service.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(sessions *service.SessionService, carts *service.CartService) *CartHandler {
	return &CartHandler{sessions: sessions, carts: carts}
}

// Get returns the cart with its totals
func (h *CartHandler) Get(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	view, err := h.carts.View(sess)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Cart retrieved successfully", view)
}

// AddItem adds a product by id or code
func (h *CartHandler) AddItem(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	var req request.AddItemRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ProductID == nil && req.Code == "" {
		response.BadRequest(c, "product_id or code is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	view, err := h.carts.AddItem(c.Request.Context(), sess, service.ProductRef{ID: req.ProductID, Code: req.Code}, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Item added successfully", view)
}

// SetQuantity replaces a line quantity
func (h *CartHandler) SetQuantity(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}
	lineID, ok := parseUUIDParam(c, "line")
	if !ok {
		return
	}

	var req request.SetQuantityRequest
	if !bindJSON(c, &req) {
		return
	}

	quantity, err := req.Int()
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.carts.SetQuantity(sess, lineID, quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Quantity updated successfully", view)
}

// RemoveItem removes a line
func (h *CartHandler) RemoveItem(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}
	lineID, ok := parseUUIDParam(c, "line")
	if !ok {
		return
	}

	view, err := h.carts.RemoveItem(sess, lineID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Item removed successfully", view)
}

// SetCustomer selects or clears the customer
func (h *CartHandler) SetCustomer(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	var req request.SetCustomerRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.carts.SetCustomer(c.Request.Context(), sess, req.CustomerID, req.Document)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Customer updated successfully", view)
}

// SetNotes replaces the cart notes
func (h *CartHandler) SetNotes(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	var req request.SetNotesRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.carts.SetNotes(sess, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Notes updated successfully", view)
}

// AddDiscount applies a manual discount
func (h *CartHandler) AddDiscount(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	var req request.AddDiscountRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.carts.AddDiscount(sess, entity.Discount{
		Kind:         entity.DiscountKind(req.Kind),
		Value:        req.Value,
		Scope:        entity.DiscountScope(req.Scope),
		TargetItemID: req.TargetItemID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Discount applied successfully", view)
}

// RemoveDiscount removes a discount
func (h *CartHandler) RemoveDiscount(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}
	discountID, ok := parseUUIDParam(c, "discount")
	if !ok {
		return
	}

	view, err := h.carts.RemoveDiscount(sess, discountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Discount removed successfully", view)
}

// Clear empties the cart
func (h *CartHandler) Clear(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	view, err := h.carts.Clear(sess)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Cart cleared successfully", view)
}

// Promotions lists the active promotions the cart qualifies for
func (h *CartHandler) Promotions(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	promos, err := h.carts.ApplicablePromotions(c.Request.Context(), sess)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Promotions retrieved successfully", promos)
}

// ApplyPromotion turns an eligible promotion into a discount
func (h *CartHandler) ApplyPromotion(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}
	promotionID, ok := parseUUIDParam(c, "promotion")
	if !ok {
		return
	}

	view, err := h.carts.ApplyPromotion(c.Request.Context(), sess, promotionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Promotion applied successfully", view)
}
