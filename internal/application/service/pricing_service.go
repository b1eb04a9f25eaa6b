package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/repository"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is applied when no rate is configured.
var DefaultTaxRate = decimal.RequireFromString("0.09")

// LineTotals is the priced view of one cart line
type LineTotals struct {
	LineID     uuid.UUID       `json:"line_id"`
	LineTotal  decimal.Decimal `json:"line_total"`
	Discounted decimal.Decimal `json:"discounted"`
}

// Totals is a pricing snapshot of a cart. It is recomputed on every read.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int             `json:"item_count"`
	Lines         []LineTotals    `json:"lines"`
}

// PricingService computes cart totals and matches promotions.
type PricingService struct {
	taxRate   decimal.Decimal
	promoRepo repository.PromotionRepository
	now       func() time.Time
}

// NewPricingService creates a new pricing service. promoRepo may be nil when
// promotions are supplied by the caller.
func NewPricingService(taxRate decimal.Decimal, promoRepo repository.PromotionRepository) *PricingService {
	if taxRate.IsNegative() {
		taxRate = DefaultTaxRate
	}
	return &PricingService{taxRate: taxRate, promoRepo: promoRepo, now: time.Now}
}

// TaxRate returns the configured rate.
func (s *PricingService) TaxRate() decimal.Decimal {
	return s.taxRate
}

// Price computes the totals of a cart.
//
// Tax is charged on the pre-discount subtotal. Item discounts are applied to
// their line first, in insertion order, then cart discounts are applied to
// the sum of the discounted lines. No rounding happens here.
func (s *PricingService) Price(cart *entity.Cart) Totals {
	t := Totals{
		Subtotal: decimal.Zero,
		Lines:    make([]LineTotals, 0, len(cart.Items)),
	}

	discounted := decimal.Zero
	for _, item := range cart.Items {
		t.Subtotal = t.Subtotal.Add(item.LineTotal)
		t.ItemCount += item.Quantity

		line := item.LineTotal
		for i := range cart.Discounts {
			d := &cart.Discounts[i]
			if d.Scope == entity.ScopeItem && d.TargetItemID != nil && *d.TargetItemID == item.ID {
				line = d.Apply(line)
			}
		}
		discounted = discounted.Add(line)
		t.Lines = append(t.Lines, LineTotals{LineID: item.ID, LineTotal: item.LineTotal, Discounted: line})
	}

	for i := range cart.Discounts {
		d := &cart.Discounts[i]
		if d.Scope == entity.ScopeCart {
			discounted = d.Apply(discounted)
		}
	}

	t.DiscountTotal = t.Subtotal.Sub(discounted)
	t.Tax = t.Subtotal.Mul(s.taxRate)
	t.Total = t.Subtotal.Sub(t.DiscountTotal).Add(t.Tax)
	return t
}

// ValidateDiscount rejects a discount before it reaches the cart.
func (s *PricingService) ValidateDiscount(cart *entity.Cart, d *entity.Discount) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.Scope == entity.ScopeItem && cart.Line(*d.TargetItemID) < 0 {
		return apperror.ErrInvalidDiscount.WithMessage("Discount targets a line that is not in the cart")
	}
	return nil
}

// IsEligible reports whether the cart satisfies the promotion's conditions.
func (s *PricingService) IsEligible(cart *entity.Cart, promo *entity.Promotion) bool {
	switch promo.Kind {
	case entity.PromotionBuyXGetY:
		return qualifyingLine(cart, promo) >= 0
	case entity.PromotionBundle:
		if len(promo.Conditions.ProductIDs) == 0 {
			return false
		}
		for _, pid := range promo.Conditions.ProductIDs {
			found := false
			for _, item := range cart.Items {
				if item.ProductID == pid {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case entity.PromotionQuantityThreshold:
		return promo.Conditions.MinQuantity > 0 && cart.ItemCount() >= promo.Conditions.MinQuantity
	default:
		return false
	}
}

// qualifyingLine returns the first line a buy-x-get-y promotion matches, or -1.
func qualifyingLine(cart *entity.Cart, promo *entity.Promotion) int {
	if promo.Kind != entity.PromotionBuyXGetY {
		return -1
	}
	for i, item := range cart.Items {
		if promo.Targets(item.ProductID) && item.Quantity >= promo.Conditions.MinQuantity {
			return i
		}
	}
	return -1
}

// ApplicablePromotions filters promos down to those in effect that the cart
// qualifies for. The cart is not changed.
func (s *PricingService) ApplicablePromotions(cart *entity.Cart, promos []entity.Promotion) []entity.Promotion {
	now := s.now()
	out := make([]entity.Promotion, 0)
	for i := range promos {
		if promos[i].InEffect(now) && s.IsEligible(cart, &promos[i]) {
			out = append(out, promos[i])
		}
	}
	return out
}

// ListApplicable loads active promotions and returns the ones the cart
// qualifies for.
func (s *PricingService) ListApplicable(ctx context.Context, cart *entity.Cart) ([]entity.Promotion, error) {
	if s.promoRepo == nil {
		return []entity.Promotion{}, nil
	}
	promos, err := s.promoRepo.ListActive(ctx, s.now())
	if err != nil {
		return nil, err
	}
	return s.ApplicablePromotions(cart, promos), nil
}

// GetPromotion loads a promotion by id.
func (s *PricingService) GetPromotion(ctx context.Context, id uuid.UUID) (*entity.Promotion, error) {
	if s.promoRepo == nil {
		return nil, apperror.NewNotFoundError("Promotion")
	}
	promo, err := s.promoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, apperror.NewNotFoundError("Promotion")
	}
	return promo, nil
}

// ApplyPromotion inserts the promotion's benefit into the cart as a
// discount. Item-scoped benefits target the first qualifying line; a
// quantity threshold has no single line, so its benefit applies to the cart.
func (s *PricingService) ApplyPromotion(cart *entity.Cart, promo *entity.Promotion) (*entity.Discount, error) {
	if !promo.InEffect(s.now()) || !s.IsEligible(cart, promo) {
		return nil, apperror.ErrPromotionNotEligible
	}
	for _, d := range cart.Discounts {
		if d.PromotionID != nil && *d.PromotionID == promo.ID {
			return nil, apperror.ErrPromotionNotEligible.WithMessage("Promotion " + promo.Name + " is already applied")
		}
	}

	pid := promo.ID
	d := entity.Discount{
		Kind:        promo.Benefit.Kind,
		Value:       promo.Benefit.Value,
		Scope:       entity.ScopeCart,
		PromotionID: &pid,
	}

	if promo.Benefit.Scope == entity.ScopeItem {
		idx := qualifyingLine(cart, promo)
		if idx < 0 && promo.Kind == entity.PromotionBundle {
			for i, item := range cart.Items {
				if promo.Targets(item.ProductID) {
					idx = i
					break
				}
			}
		}
		if idx >= 0 {
			target := cart.Items[idx].ID
			d.Scope = entity.ScopeItem
			d.TargetItemID = &target
		}
	}

	if err := s.ValidateDiscount(cart, &d); err != nil {
		return nil, err
	}
	return cart.AddDiscount(d)
}
