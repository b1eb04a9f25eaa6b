package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/application/service"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// SessionResponse describes an open terminal session
type SessionResponse struct {
	ID            uuid.UUID       `json:"id"`
	TerminalID    string          `json:"terminal_id"`
	CashierID     uuid.UUID       `json:"cashier_id"`
	OpenedAt      time.Time       `json:"opened_at"`
	DrawerBalance decimal.Decimal `json:"drawer_balance"`
	CartItems     int             `json:"cart_items"`
}

// NewSessionResponse builds the response from a live session
func NewSessionResponse(sess *service.Session) SessionResponse {
	return SessionResponse{
		ID:            sess.ID,
		TerminalID:    sess.TerminalID,
		CashierID:     sess.CashierID,
		OpenedAt:      sess.OpenedAt,
		DrawerBalance: sess.Drawer().Balance(),
		CartItems:     sess.Cart().ItemCount(),
	}
}

// DrawerResponse is the cash drawer balance and its ledger
type DrawerResponse struct {
	Balance   decimal.Decimal       `json:"balance"`
	Movements []entity.CashMovement `json:"movements"`
}

// NewDrawerResponse reads a drawer
func NewDrawerResponse(d *service.CashDrawer) DrawerResponse {
	return DrawerResponse{
		Balance:   d.Balance(),
		Movements: d.Movements(),
	}
}
