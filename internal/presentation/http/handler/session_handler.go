package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/pdv-engine/internal/application/service"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/request"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/response"
	"github.com/sangkips/pdv-engine/internal/presentation/http/middleware"
)

// SessionHandler handles terminal session and cash drawer requests
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List returns every open session
func (h *SessionHandler) List(c *gin.Context) {
	open := h.sessions.List()
	out := make([]response.SessionResponse, 0, len(open))
	for _, sess := range open {
		out = append(out, response.NewSessionResponse(sess))
	}
	response.OK(c, "Sessions retrieved successfully", out)
}

// Open starts a session for the authenticated cashier
func (h *SessionHandler) Open(c *gin.Context) {
	cashierID := GetCashierID(c)
	if cashierID == nil {
		response.Unauthorized(c, "Cashier not authenticated")
		return
	}

	var req request.OpenSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	sess, err := h.sessions.Open(c.Request.Context(), middleware.GetTerminalID(c), *cashierID, req.OpeningBalance)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Session opened successfully", response.NewSessionResponse(sess))
}

// Get returns the terminal's session
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}
	response.OK(c, "Session retrieved successfully", response.NewSessionResponse(sess))
}

// Summary returns the X report of the session
func (h *SessionHandler) Summary(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	summary, err := h.sessions.Summary(sess.TerminalID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Session summary retrieved successfully", summary)
}

// PrintReport queues the X report on the default printer
func (h *SessionHandler) PrintReport(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	job, err := h.sessions.PrintReport(c.Request.Context(), sess.TerminalID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, "Report queued for printing", job)
}

// Close ends the session and returns its Z report
func (h *SessionHandler) Close(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	summary, err := h.sessions.Close(c.Request.Context(), sess.TerminalID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Session closed successfully", summary)
}

// Drawer returns the cash drawer balance and movements
func (h *SessionHandler) Drawer(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}
	response.OK(c, "Cash drawer retrieved successfully", response.NewDrawerResponse(sess.Drawer()))
}

// Deposit adds cash to the drawer
func (h *SessionHandler) Deposit(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	var req request.DrawerMovementRequest
	if !bindJSON(c, &req) {
		return
	}

	movement, err := sess.Drawer().Deposit(c.Request.Context(), req.Amount, req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Deposit recorded successfully", movement)
}

// Withdraw removes cash from the drawer; a supervisor PIN is required
func (h *SessionHandler) Withdraw(c *gin.Context) {
	sess, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	var req request.DrawerMovementRequest
	if !bindJSON(c, &req) {
		return
	}

	movement, err := sess.Drawer().Withdraw(c.Request.Context(), req.Amount, req.Note, req.SupervisorPIN)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Withdrawal recorded successfully", movement)
}
