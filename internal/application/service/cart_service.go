package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/repository"
	"github.com/sangkips/pdv-engine/pkg/apperror"
)

// CartView is a cart together with its pricing snapshot
type CartView struct {
	Cart   *entity.Cart `json:"cart"`
	Totals Totals       `json:"totals"`
}

// RemovalView is the cart after a removal and the index the line held.
// RemovedIndex is -1 when no line matched.
type RemovalView struct {
	CartView
	RemovedIndex int `json:"removed_index"`
}

// CartService runs cart commands against a terminal session.
type CartService struct {
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	pricing      *PricingService
}

// NewCartService creates a new cart service
func NewCartService(
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	pricing *PricingService,
) *CartService {
	return &CartService{
		productRepo:  productRepo,
		customerRepo: customerRepo,
		pricing:      pricing,
	}
}

// ProductRef identifies a product by id or by code (barcode)
type ProductRef struct {
	ID   *uuid.UUID
	Code string
}

// mutable locks the session and refuses changes while a payment is open, so
// the amount being confirmed cannot drift under the cashier.
func mutable(sess *Session) error {
	if err := sess.acquire(); err != nil {
		return err
	}
	if sess.paymentInProgress() {
		sess.mu.Unlock()
		return apperror.ErrInvalidPaymentState.WithMessage("Cart is locked while a payment is open")
	}
	return nil
}

func (s *CartService) view(sess *Session) *CartView {
	return &CartView{Cart: sess.cart.Snapshot(), Totals: s.pricing.Price(sess.cart)}
}

// View returns the cart and its totals.
func (s *CartService) View(sess *Session) (*CartView, error) {
	if err := sess.acquire(); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	return s.view(sess), nil
}

func (s *CartService) lookupProduct(ctx context.Context, ref ProductRef) (*entity.Product, error) {
	var (
		p   *entity.Product
		err error
	)
	switch {
	case ref.ID != nil:
		p, err = s.productRepo.GetByID(ctx, *ref.ID)
	case strings.TrimSpace(ref.Code) != "":
		p, err = s.productRepo.GetByCode(ctx, strings.TrimSpace(ref.Code))
	default:
		return nil, apperror.NewBadRequestError("Product id or code is required")
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.ErrInvalidProduct.WithMessage("Product not found")
	}
	return p, nil
}

// AddItem looks the product up and adds it to the cart.
func (s *CartService) AddItem(ctx context.Context, sess *Session, ref ProductRef, quantity int) (*CartView, error) {
	p, err := s.lookupProduct(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := mutable(sess); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if _, err := sess.cart.AddItem(p, quantity); err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// SetQuantity changes a line's quantity; zero or less removes it.
func (s *CartService) SetQuantity(sess *Session, lineID uuid.UUID, quantity int) (*CartView, error) {
	if err := mutable(sess); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if _, err := sess.cart.SetQuantity(lineID, quantity); err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// RemoveItem drops a line. Removing an unknown line is not an error.
func (s *CartService) RemoveItem(sess *Session, lineID uuid.UUID) (*RemovalView, error) {
	if err := mutable(sess); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	idx, removed := sess.cart.RemoveItem(lineID)
	if !removed {
		idx = -1
	}
	return &RemovalView{CartView: *s.view(sess), RemovedIndex: idx}, nil
}

// SetCustomer attaches a customer by id or document (CPF/CNPJ). Passing
// neither detaches the current customer.
func (s *CartService) SetCustomer(ctx context.Context, sess *Session, customerID *uuid.UUID, document string) (*CartView, error) {
	var ref *entity.CustomerRef
	document = entity.NormalizeDocument(document)
	if customerID != nil || document != "" {
		var (
			c   *entity.Customer
			err error
		)
		if customerID != nil {
			c, err = s.customerRepo.GetByID(ctx, *customerID)
		} else {
			c, err = s.customerRepo.GetByDocument(ctx, document)
		}
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, apperror.NewNotFoundError("Customer")
		}
		ref = c.Ref()
	}

	if err := mutable(sess); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	sess.cart.Customer = ref
	return s.view(sess), nil
}

// SetNotes replaces the cart notes.
func (s *CartService) SetNotes(sess *Session, notes string) (*CartView, error) {
	if err := mutable(sess); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	sess.cart.Notes = strings.TrimSpace(notes)
	return s.view(sess), nil
}

// AddDiscount validates and inserts a manual discount.
func (s *CartService) AddDiscount(sess *Session, d entity.Discount) (*CartView, error) {
	if err := mutable(sess); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	d.ID = uuid.Nil
	d.PromotionID = nil
	if err := s.pricing.ValidateDiscount(sess.cart, &d); err != nil {
		return nil, err
	}
	if _, err := sess.cart.AddDiscount(d); err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// RemoveDiscount drops a discount by id.
func (s *CartService) RemoveDiscount(sess *Session, discountID uuid.UUID) (*CartView, error) {
	if err := mutable(sess); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if !sess.cart.RemoveDiscount(discountID) {
		return nil, apperror.NewNotFoundError("Discount")
	}
	return s.view(sess), nil
}

// Clear empties the cart.
func (s *CartService) Clear(sess *Session) (*CartView, error) {
	if err := mutable(sess); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	sess.cart.Clear()
	return s.view(sess), nil
}

// ApplicablePromotions lists the promotions the cart currently qualifies for.
func (s *CartService) ApplicablePromotions(ctx context.Context, sess *Session) ([]entity.Promotion, error) {
	cart := sess.Cart()
	return s.pricing.ListApplicable(ctx, cart)
}

// ApplyPromotion inserts an eligible promotion's benefit as a discount.
func (s *CartService) ApplyPromotion(ctx context.Context, sess *Session, promotionID uuid.UUID) (*CartView, error) {
	promo, err := s.pricing.GetPromotion(ctx, promotionID)
	if err != nil {
		return nil, err
	}

	if err := mutable(sess); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if _, err := s.pricing.ApplyPromotion(sess.cart, promo); err != nil {
		return nil, err
	}
	return s.view(sess), nil
}
