package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/pdv-engine/internal/application/service"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/request"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/response"
	"github.com/sangkips/pdv-engine/internal/presentation/http/middleware"
)

// HeldCartHandler parks and recovers carts
type HeldCartHandler struct {
	sessions *service.SessionService
	held     *service.HeldCartService
	carts    *service.CartService
}

// NewHeldCartHandler creates a new held cart handler
func NewHeldCartHandler(sessions *service.SessionService, held *service.HeldCartService, carts *service.CartService) *HeldCartHandler {
	return &HeldCartHandler{sessions: sessions, held: held, carts: carts}
}

// Hold parks the active cart and empties it
func (h *HeldCartHandler) Hold(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	held, err := h.held.Hold(c.Request.Context(), sess)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Cart held successfully", held)
}

// List returns the terminal's held carts, oldest first
func (h *HeldCartHandler) List(c *gin.Context) {
	held, err := h.held.List(c.Request.Context(), middleware.GetTerminalID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Held carts retrieved successfully", held)
}

// Unsaved reports whether the active cart has items a recover would replace
func (h *HeldCartHandler) Unsaved(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}
	response.OK(c, "Active cart status retrieved", gin.H{"unsaved_cart": h.held.HasUnsavedCart(sess)})
}

// Recover loads a held cart into the active cart. A non-empty active cart
// is only replaced when overwrite is set.
func (h *HeldCartHandler) Recover(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "held")
	if !ok {
		return
	}

	var req request.RecoverHeldCartRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	if _, err := h.held.Recover(c.Request.Context(), sess, id, req.Overwrite); err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.carts.View(sess)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Held cart recovered successfully", view)
}

// Discard deletes a held cart
func (h *HeldCartHandler) Discard(c *gin.Context) {
	id, ok := parseUUIDParam(c, "held")
	if !ok {
		return
	}

	if err := h.held.Discard(c.Request.Context(), middleware.GetTerminalID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
