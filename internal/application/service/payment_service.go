package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	"github.com/sangkips/pdv-engine/internal/infrastructure/metrics"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/sangkips/pdv-engine/pkg/tef"
	"github.com/shopspring/decimal"
)

// Installment defaults.
const (
	DefaultMaxInstallments = 12
)

// DefaultInstallmentMinimum is the smallest installment value allowed.
var DefaultInstallmentMinimum = decimal.NewFromInt(10)

// PaymentFlow is the checkout of one cart. It lives on the session until the
// next flow is opened.
type PaymentFlow struct {
	ID        uuid.UUID              `json:"id"`
	State     entity.PaymentState    `json:"state"`
	Step      entity.PaymentStep     `json:"step"`
	Attempt   *entity.PaymentAttempt `json:"attempt,omitempty"`
	Change    decimal.Decimal        `json:"change"`
	Sale      *entity.Sale           `json:"sale,omitempty"`
	LastError string                 `json:"last_error,omitempty"`
	OpenedAt  time.Time              `json:"opened_at"`
}

func (f *PaymentFlow) copy() *PaymentFlow {
	out := *f
	if f.Attempt != nil {
		a := *f.Attempt
		out.Attempt = &a
	}
	if f.Sale != nil {
		out.Sale = f.Sale.Clone()
	}
	return &out
}

// PaymentDetails carries the fields a cashier edits while confirming. Nil
// fields are left unchanged.
type PaymentDetails struct {
	AmountTendered *decimal.Decimal
	Installments   *int
	CardType       *entity.CardType
}

// PaymentConfig holds the installment rules and the default document type.
type PaymentConfig struct {
	MaxInstallments    int
	InstallmentMinimum decimal.Decimal
	DefaultDocType     entity.DocumentType
}

type saleRecorder interface {
	Record(ctx context.Context, sale *entity.Sale)
}

type fiscalEmitter interface {
	Emit(ctx context.Context, sale *entity.Sale, docType entity.DocumentType) (*entity.FiscalEmission, error)
}

type receiptPrinter interface {
	EnqueueReceipt(ctx context.Context, sale *entity.Sale) (*entity.PrintJob, error)
}

// PaymentService runs the checkout state machine:
// selecting_method -> confirming_details -> finalizing -> completed,
// with cancelled reachable from any state before finalizing.
type PaymentService struct {
	pricing  *PricingService
	terminal tef.Terminal
	sales    saleRecorder
	fiscal   fiscalEmitter
	prints   receiptPrinter
	cfg      PaymentConfig
}

// NewPaymentService creates a new payment service. terminal, fiscal and
// prints may be nil.
func NewPaymentService(
	pricing *PricingService,
	terminal tef.Terminal,
	sales saleRecorder,
	fiscal fiscalEmitter,
	prints receiptPrinter,
	cfg PaymentConfig,
) *PaymentService {
	if cfg.MaxInstallments <= 0 {
		cfg.MaxInstallments = DefaultMaxInstallments
	}
	if cfg.InstallmentMinimum.IsZero() {
		cfg.InstallmentMinimum = DefaultInstallmentMinimum
	}
	if !cfg.DefaultDocType.Valid() {
		cfg.DefaultDocType = entity.DocumentNFCe
	}
	return &PaymentService{
		pricing:  pricing,
		terminal: terminal,
		sales:    sales,
		fiscal:   fiscal,
		prints:   prints,
		cfg:      cfg,
	}
}

// Current returns the session's payment flow.
func (s *PaymentService) Current(sess *Session) (*PaymentFlow, error) {
	if err := sess.acquire(); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	if sess.payment == nil {
		return nil, apperror.ErrPaymentNotOpen
	}
	return sess.payment.copy(), nil
}

// Open starts a payment flow for the active cart. Opening again while the
// flow is still selecting a method returns the same flow.
func (s *PaymentService) Open(ctx context.Context, sess *Session) (*PaymentFlow, error) {
	if err := sess.acquire(); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.paymentInProgress() {
		if sess.payment.State == entity.PaymentSelectingMethod {
			return sess.payment.copy(), nil
		}
		return nil, apperror.ErrInvalidPaymentState.WithMessage("A payment is already being confirmed")
	}
	if sess.cart.IsEmpty() {
		return nil, apperror.ErrEmptyCart
	}

	sess.payment = &PaymentFlow{
		ID:       uuid.New(),
		State:    entity.PaymentSelectingMethod,
		Step:     entity.StepNone,
		Change:   decimal.Zero,
		OpenedAt: time.Now(),
	}
	slog.InfoContext(ctx, "payment opened", "terminal_id", sess.TerminalID, "payment_id", sess.payment.ID)
	return sess.payment.copy(), nil
}

// openFlow returns the flow if it is in one of the given states.
func openFlow(sess *Session, states ...entity.PaymentState) (*PaymentFlow, error) {
	flow := sess.payment
	if flow == nil || !sess.paymentInProgress() {
		return nil, apperror.ErrPaymentNotOpen
	}
	for _, st := range states {
		if flow.State == st {
			return flow, nil
		}
	}
	return nil, apperror.ErrInvalidPaymentState.WithMessage("Payment is " + string(flow.State))
}

// SelectMethod chooses how the sale is paid. Cash moves to the cash amount
// step; every other method moves to confirmation. Choosing again while
// confirming replaces the attempt.
func (s *PaymentService) SelectMethod(sess *Session, method enum.PaymentMethod) (*PaymentFlow, error) {
	if !method.Valid() {
		return nil, apperror.ErrInvalidPaymentMethod
	}
	if err := sess.acquire(); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	flow, err := openFlow(sess, entity.PaymentSelectingMethod, entity.PaymentConfirmingDetails)
	if err != nil {
		return nil, err
	}

	flow.Attempt = &entity.PaymentAttempt{
		Method:         method,
		AmountTendered: decimal.Zero,
		Installments:   1,
	}
	if method == enum.PaymentMethodCash {
		flow.Step = entity.StepCashAmount
	} else {
		flow.Step = entity.StepConfirmation
	}
	flow.State = entity.PaymentConfirmingDetails
	flow.LastError = ""
	return flow.copy(), nil
}

// UpdateDetails edits the attempt. Nothing is validated until Confirm.
func (s *PaymentService) UpdateDetails(sess *Session, details PaymentDetails) (*PaymentFlow, error) {
	if err := sess.acquire(); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	flow, err := openFlow(sess, entity.PaymentConfirmingDetails)
	if err != nil {
		return nil, err
	}
	if details.AmountTendered != nil {
		flow.Attempt.AmountTendered = *details.AmountTendered
	}
	if details.Installments != nil {
		flow.Attempt.Installments = *details.Installments
	}
	if details.CardType != nil {
		flow.Attempt.CardType = *details.CardType
	}
	return flow.copy(), nil
}

// Cancel abandons the flow. The cart is left untouched.
func (s *PaymentService) Cancel(ctx context.Context, sess *Session) (*PaymentFlow, error) {
	if err := sess.acquire(); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	flow, err := openFlow(sess, entity.PaymentSelectingMethod, entity.PaymentConfirmingDetails)
	if err != nil {
		return nil, err
	}
	flow.State = entity.PaymentCancelled
	flow.Step = entity.StepNone

	slog.InfoContext(ctx, "payment cancelled", "terminal_id", sess.TerminalID, "payment_id", flow.ID)
	return flow.copy(), nil
}

// validateInstallments checks a credit plan. Installments on other methods
// are ignored and reported as 1.
func (s *PaymentService) validateInstallments(att *entity.PaymentAttempt, total decimal.Decimal) error {
	if att.Method != enum.PaymentMethodCredit {
		att.Installments = 1
		return nil
	}
	n := att.Installments
	if n < 1 || n > s.cfg.MaxInstallments {
		return apperror.ErrInvalidInstallmentPlan.WithMessage(
			fmt.Sprintf("Installments must be between 1 and %d", s.cfg.MaxInstallments))
	}
	if n > 1 && total.LessThan(s.cfg.InstallmentMinimum.Mul(decimal.NewFromInt(int64(n)))) {
		return apperror.ErrInvalidInstallmentPlan.WithMessage(
			fmt.Sprintf("Each installment must be at least %s", s.cfg.InstallmentMinimum.StringFixed(2)))
	}
	return nil
}

// validate checks the attempt against the total and returns the change.
func (s *PaymentService) validate(att *entity.PaymentAttempt, total decimal.Decimal, customer *entity.CustomerRef, docType entity.DocumentType) (decimal.Decimal, error) {
	change := decimal.Zero
	if att.Method == enum.PaymentMethodCash {
		if att.AmountTendered.LessThan(total) {
			return change, apperror.ErrInsufficientAmount.WithMessage(
				fmt.Sprintf("Tendered %s is less than the total %s", att.AmountTendered.String(), total.String()))
		}
		change = att.AmountTendered.Sub(total)
	}
	if err := s.validateInstallments(att, total); err != nil {
		return change, err
	}
	if att.Method.IsCard() && !att.CardType.Valid() {
		return change, apperror.ErrMissingCardType
	}
	if !docType.Valid() {
		return change, apperror.ErrInvalidDocumentType
	}
	if docType == entity.DocumentNFe && customer == nil {
		return change, apperror.ErrMissingCustomer.WithMessage("NF-e requires an identified customer")
	}
	return change, nil
}

// authorize runs a card attempt through the TEF terminal.
func (s *PaymentService) authorize(ctx context.Context, att *entity.PaymentAttempt, total decimal.Decimal) (string, error) {
	if !att.Method.IsCard() || s.terminal == nil {
		return "", nil
	}
	auth, err := s.terminal.ProcessPayment(ctx, tef.Request{
		Amount:       total,
		Installments: att.Installments,
		CardType:     string(att.CardType),
	})
	switch {
	case err == nil:
		return auth.NSU + "/" + auth.AuthCode, nil
	case errors.Is(err, tef.ErrDeclined):
		return "", apperror.ErrPaymentDeclined.WithMessage(err.Error())
	default:
		return "", apperror.ErrTEFUnavailable.WithMessage(err.Error())
	}
}

// Confirm validates the attempt and finalizes the sale. It is one-shot: once
// the flow has completed every further call returns the same sale. A failed
// validation or card authorization leaves the flow in confirming_details.
func (s *PaymentService) Confirm(ctx context.Context, sess *Session, docType entity.DocumentType) (*entity.Sale, error) {
	if docType == "" {
		docType = s.cfg.DefaultDocType
	}
	if err := sess.acquire(); err != nil {
		return nil, err
	}

	flow := sess.payment
	if flow != nil && flow.State == entity.PaymentCompleted {
		sale := flow.Sale.Clone()
		sess.mu.Unlock()
		return sale, nil
	}
	flow, err := openFlow(sess, entity.PaymentConfirmingDetails)
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}

	reject := func(err error) (*entity.Sale, error) {
		flow.LastError = err.Error()
		sess.mu.Unlock()
		metrics.PaymentRejections.WithLabelValues(apperror.GetAppError(err).Reason).Inc()
		return nil, err
	}

	if sess.cart.IsEmpty() {
		return reject(apperror.ErrEmptyCart)
	}
	totals := s.pricing.Price(sess.cart)
	att := *flow.Attempt
	change, err := s.validate(&att, totals.Total, sess.cart.Customer, docType)
	if err != nil {
		return reject(err)
	}

	// The session stays locked through the card authorization so a second
	// confirm waits and then sees the completed flow.
	authRef, err := s.authorize(ctx, &att, totals.Total)
	if err != nil {
		slog.WarnContext(ctx, "card authorization failed", "terminal_id", sess.TerminalID, "payment_id", flow.ID, "error", err)
		return reject(err)
	}

	flow.State = entity.PaymentFinalizing
	sale := s.buildSale(sess, totals, &att, change, authRef, docType)

	sess.cart.Clear()
	if att.Method == enum.PaymentMethodCash {
		sess.drawer.RecordSale(ctx, sale.ID, sale.Total)
	}
	sess.sales = append(sess.sales, saleLine{id: sale.ID, total: sale.Total, method: att.Method})

	*flow.Attempt = att
	flow.Change = change
	flow.Sale = sale
	flow.State = entity.PaymentCompleted
	flow.Step = entity.StepNone
	flow.LastError = ""
	sess.mu.Unlock()

	s.handOff(ctx, sale, docType)

	metrics.SalesCompleted.WithLabelValues(sale.TerminalID, att.Method.String()).Inc()
	metrics.SalesAmount.WithLabelValues(sale.TerminalID).Add(sale.Total.InexactFloat64())
	slog.InfoContext(ctx, "sale completed",
		"terminal_id", sale.TerminalID,
		"sale_id", sale.ID,
		"number", sale.Number,
		"method", att.Method.String(),
		"total", sale.Total.String(),
		"change", change.String(),
	)
	return sale.Clone(), nil
}

func (s *PaymentService) buildSale(sess *Session, totals Totals, att *entity.PaymentAttempt, change decimal.Decimal, authRef string, docType entity.DocumentType) *entity.Sale {
	now := time.Now()
	sale := &entity.Sale{
		ID:            uuid.New(),
		Number:        sess.nextSaleNumber(),
		TerminalID:    sess.TerminalID,
		SessionID:     sess.ID,
		CashierID:     sess.CashierID,
		Notes:         sess.cart.Notes,
		Subtotal:      totals.Subtotal,
		TaxTotal:      totals.Tax,
		DiscountTotal: totals.DiscountTotal,
		Total:         totals.Total,
		FiscalDocType: docType,
		FiscalStatus:  enum.FiscalStatusNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if c := sess.cart.Customer; c != nil {
		id := c.ID
		sale.CustomerID = &id
		sale.CustomerName = c.Name
		sale.CustomerDocument = c.Document
	}
	for i, it := range sess.cart.Items {
		sale.Items = append(sale.Items, entity.SaleItem{
			ID:              uuid.New(),
			SaleID:          sale.ID,
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			LineTotal:       it.LineTotal,
			DiscountedTotal: totals.Lines[i].Discounted,
		})
	}
	payment := entity.Payment{
		ID:               uuid.New(),
		SaleID:           sale.ID,
		Method:           att.Method,
		Amount:           totals.Total,
		Tendered:         totals.Total,
		Change:           change,
		Installments:     att.Installments,
		AuthorizationRef: authRef,
	}
	if att.Method == enum.PaymentMethodCash {
		payment.Tendered = att.AmountTendered
	}
	if att.Method.IsCard() {
		payment.CardType = att.CardType
	}
	sale.Payments = []entity.Payment{payment}
	return sale
}

// handOff passes a finalized sale to the recorder, the fiscal orchestrator
// and the print queue. Their failures are tracked on the sale and never
// undo the checkout.
func (s *PaymentService) handOff(ctx context.Context, sale *entity.Sale, docType entity.DocumentType) {
	if s.sales != nil {
		s.sales.Record(ctx, sale)
	}
	if s.fiscal != nil {
		if _, err := s.fiscal.Emit(ctx, sale, docType); err != nil {
			slog.ErrorContext(ctx, "failed to request fiscal document", "sale_id", sale.ID, "error", err)
		}
	}
	if s.prints != nil {
		if _, err := s.prints.EnqueueReceipt(ctx, sale); err != nil {
			slog.ErrorContext(ctx, "failed to queue receipt", "sale_id", sale.ID, "error", err)
		}
	}
}
