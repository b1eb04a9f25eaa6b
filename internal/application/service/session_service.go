package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	"github.com/sangkips/pdv-engine/internal/domain/repository"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/shopspring/decimal"
)

// Session is the working context of one terminal: its cart, its cash drawer
// and its payment flow. All mutations go through mu, so requests for the
// same terminal are serialized while terminals run independently.
type Session struct {
	ID         uuid.UUID
	TerminalID string
	CashierID  uuid.UUID
	OpenedAt   time.Time

	mu      sync.Mutex
	cart    *entity.Cart
	drawer  *CashDrawer
	payment *PaymentFlow
	sales   []saleLine
	seq     int
	closed  bool
}

type saleLine struct {
	id     uuid.UUID
	total  decimal.Decimal
	method enum.PaymentMethod
}

// Drawer returns the session's cash drawer.
func (s *Session) Drawer() *CashDrawer {
	return s.drawer
}

// Cart returns a copy of the active cart.
func (s *Session) Cart() *entity.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot()
}

// acquire locks the session. It fails once the session has been closed, so
// a request holding a stale pointer cannot touch it.
func (s *Session) acquire() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperror.ErrSessionNotOpen
	}
	return nil
}

// paymentInProgress reports whether a flow is open and not yet settled.
// Callers hold s.mu.
func (s *Session) paymentInProgress() bool {
	if s.payment == nil {
		return false
	}
	switch s.payment.State {
	case entity.PaymentCompleted, entity.PaymentCancelled:
		return false
	default:
		return true
	}
}

// nextSaleNumber returns a sale number unique across sessions. Callers hold s.mu.
func (s *Session) nextSaleNumber() string {
	s.seq++
	return fmt.Sprintf("%s-%s-%04d", s.TerminalID, strings.ToUpper(s.ID.String()[:8]), s.seq)
}

// SessionSummary is the cash report of a session (X report while open,
// Z report on close).
type SessionSummary struct {
	SessionID      uuid.UUID                  `json:"session_id"`
	TerminalID     string                     `json:"terminal_id"`
	CashierID      uuid.UUID                  `json:"cashier_id"`
	OpenedAt       time.Time                  `json:"opened_at"`
	ClosedAt       *time.Time                 `json:"closed_at,omitempty"`
	SalesCount     int                        `json:"sales_count"`
	SalesTotal     decimal.Decimal            `json:"sales_total"`
	ByMethod       map[string]decimal.Decimal `json:"by_method"`
	OpeningBalance decimal.Decimal            `json:"opening_balance"`
	CashSales      decimal.Decimal            `json:"cash_sales"`
	Deposits       decimal.Decimal            `json:"deposits"`
	Withdrawals    decimal.Decimal            `json:"withdrawals"`
	DrawerBalance  decimal.Decimal            `json:"drawer_balance"`
}

// Methods returns the payment method names of the summary in stable order.
func (s *SessionSummary) Methods() []string {
	names := make([]string, 0, len(s.ByMethod))
	for name := range s.ByMethod {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// summary builds the report. Callers hold s.mu.
func (s *Session) summary() *SessionSummary {
	sum := &SessionSummary{
		SessionID:      s.ID,
		TerminalID:     s.TerminalID,
		CashierID:      s.CashierID,
		OpenedAt:       s.OpenedAt,
		SalesTotal:     decimal.Zero,
		ByMethod:       map[string]decimal.Decimal{},
		OpeningBalance: decimal.Zero,
		CashSales:      decimal.Zero,
		Deposits:       decimal.Zero,
		Withdrawals:    decimal.Zero,
	}
	for _, l := range s.sales {
		sum.SalesCount++
		sum.SalesTotal = sum.SalesTotal.Add(l.total)
		name := l.method.String()
		sum.ByMethod[name] = sum.ByMethod[name].Add(l.total)
	}
	for _, m := range s.drawer.Movements() {
		switch m.Kind {
		case entity.CashOpening:
			sum.OpeningBalance = sum.OpeningBalance.Add(m.Amount)
		case entity.CashSale:
			sum.CashSales = sum.CashSales.Add(m.Amount)
		case entity.CashDeposit:
			sum.Deposits = sum.Deposits.Add(m.Amount)
		case entity.CashWithdrawal:
			sum.Withdrawals = sum.Withdrawals.Add(m.Amount.Neg())
		}
	}
	sum.DrawerBalance = s.drawer.Balance()
	return sum
}

// reportPrinter queues session reports for printing.
type reportPrinter interface {
	EnqueueReport(ctx context.Context, summary *SessionSummary) (*entity.PrintJob, error)
}

// SessionService keeps the open session of every terminal.
type SessionService struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxQuantity int
	movements   repository.CashMovementRepository
	pinHash     string
	reports     reportPrinter
}

// NewSessionService creates a new session service. movements and reports may be nil.
func NewSessionService(maxQuantity int, movements repository.CashMovementRepository, pinHash string, reports reportPrinter) *SessionService {
	return &SessionService{
		sessions:    make(map[string]*Session),
		maxQuantity: maxQuantity,
		movements:   movements,
		pinHash:     pinHash,
		reports:     reports,
	}
}

// Open starts a session on a terminal with the given opening cash.
func (s *SessionService) Open(ctx context.Context, terminalID string, cashierID uuid.UUID, opening decimal.Decimal) (*Session, error) {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return nil, apperror.NewBadRequestError("Terminal id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[terminalID]; ok {
		return nil, apperror.ErrSessionAlreadyOpen
	}

	sess := &Session{
		ID:         uuid.New(),
		TerminalID: terminalID,
		CashierID:  cashierID,
		OpenedAt:   time.Now(),
		cart:       entity.NewCart(s.maxQuantity),
	}
	drawer, err := NewCashDrawer(ctx, sess, opening, s.movements, s.pinHash)
	if err != nil {
		return nil, err
	}
	sess.drawer = drawer
	s.sessions[terminalID] = sess

	slog.InfoContext(ctx, "session opened", "terminal_id", terminalID, "session_id", sess.ID, "cashier_id", cashierID, "opening", opening.String())
	return sess, nil
}

// Get returns the open session of a terminal.
func (s *SessionService) Get(terminalID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[terminalID]
	if !ok {
		return nil, apperror.ErrSessionNotOpen
	}
	return sess, nil
}

// GetFor returns the terminal's session if it belongs to cashierID.
func (s *SessionService) GetFor(terminalID string, cashierID uuid.UUID) (*Session, error) {
	sess, err := s.Get(terminalID)
	if err != nil {
		return nil, err
	}
	if sess.CashierID != cashierID {
		return nil, apperror.ErrForbidden.WithMessage("Terminal " + terminalID + " is operated by another cashier")
	}
	return sess, nil
}

// List returns the open sessions ordered by terminal.
func (s *SessionService) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TerminalID < out[j].TerminalID })
	return out
}

// Summary returns the current cash report of a terminal.
func (s *SessionService) Summary(terminalID string) (*SessionSummary, error) {
	sess, err := s.Get(terminalID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.summary(), nil
}

// PrintReport queues the current cash report.
func (s *SessionService) PrintReport(ctx context.Context, terminalID string) (*entity.PrintJob, error) {
	summary, err := s.Summary(terminalID)
	if err != nil {
		return nil, err
	}
	if s.reports == nil {
		return nil, apperror.ErrUnknownDevice.WithMessage("No printer is configured")
	}
	return s.reports.EnqueueReport(ctx, summary)
}

// Close ends the session. A session with items in the cart or an open
// payment cannot be closed; hold or cancel first.
func (s *SessionService) Close(ctx context.Context, terminalID string) (*SessionSummary, error) {
	s.mu.Lock()
	sess, ok := s.sessions[terminalID]
	if !ok {
		s.mu.Unlock()
		return nil, apperror.ErrSessionNotOpen
	}

	sess.mu.Lock()
	if sess.paymentInProgress() {
		sess.mu.Unlock()
		s.mu.Unlock()
		return nil, apperror.ErrInvalidPaymentState.WithMessage("Finish or cancel the payment before closing the session")
	}
	if !sess.cart.IsEmpty() {
		sess.mu.Unlock()
		s.mu.Unlock()
		return nil, apperror.ErrUnsavedCart.WithMessage("Hold or clear the cart before closing the session")
	}
	sess.closed = true
	summary := sess.summary()
	now := time.Now()
	summary.ClosedAt = &now
	sess.mu.Unlock()

	delete(s.sessions, terminalID)
	s.mu.Unlock()

	if s.reports != nil {
		if _, err := s.reports.EnqueueReport(ctx, summary); err != nil {
			slog.WarnContext(ctx, "failed to queue closing report", "terminal_id", terminalID, "error", err)
		}
	}

	slog.InfoContext(ctx, "session closed",
		"terminal_id", terminalID,
		"session_id", summary.SessionID,
		"sales", summary.SalesCount,
		"total", summary.SalesTotal.String(),
		"drawer_balance", summary.DrawerBalance.String(),
	)
	return summary, nil
}
