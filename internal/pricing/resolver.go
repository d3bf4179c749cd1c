// Package pricing computes what a client pays for a request or cart.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

var (
	ErrInvalidCoupon       = errors.New("coupon code is not valid")
	ErrCouponExhausted     = fmt.Errorf("%w: no uses left", ErrInvalidCoupon)
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// DefaultShippingFee is the flat fee added to every checkout.
var DefaultShippingFee = decimal.NewFromInt(10)

// Quote is the outcome of resolving a price. Err is set when the coupon was
// rejected; totals are still valid and carry no discount in that case.
type Quote struct {
	Subtotal   models.Money
	Discount   models.Money
	Shipping   models.Money
	Total      models.Money
	CouponCode string
	Err        error
}

// Resolver applies coupons and shipping to a base price
type Resolver struct {
	ShippingFee models.Money
}

// NewResolver returns a resolver charging the given shipping fee.
func NewResolver(shippingFee models.Money) Resolver {
	return Resolver{ShippingFee: shippingFee}
}

// Resolve computes max(base - discount + shipping, 0). An empty code applies
// no discount. An unknown or used-up code is reported in Quote.Err and the
// discount is zero. coupons is never modified.
func (r Resolver) Resolve(base models.Money, code string, coupons []models.Coupon) Quote {
	q := Quote{
		Subtotal: base,
		Discount: decimal.Zero,
		Shipping: r.ShippingFee,
	}

	if code != "" {
		coupon, err := findCoupon(code, coupons)
		if err != nil {
			q.Err = err
		} else {
			q.Discount = coupon.DiscountAmount
			q.CouponCode = coupon.Code
		}
	}

	q.Total = clampTotal(base.Sub(q.Discount).Add(q.Shipping))
	return q
}

// ResolveCart sums prices and resolves the result like a single base price.
func (r Resolver) ResolveCart(prices []models.Money, code string, coupons []models.Coupon) Quote {
	return r.Resolve(decimal.Sum(decimal.Zero, prices...), code, coupons)
}

func findCoupon(code string, coupons []models.Coupon) (models.Coupon, error) {
	for _, c := range coupons {
		if c.Code != code {
			continue
		}
		if c.Quantity <= 0 {
			return models.Coupon{}, ErrCouponExhausted
		}
		return c, nil
	}
	return models.Coupon{}, ErrInvalidCoupon
}

func clampTotal(total models.Money) models.Money {
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// CanAfford reports whether balance covers total.
func CanAfford(balance, total models.Money) bool {
	return balance.GreaterThanOrEqual(total)
}

// CheckAffordable returns ErrInsufficientBalance when balance is below total.
func CheckAffordable(balance, total models.Money) error {
	if !CanAfford(balance, total) {
		return fmt.Errorf("%w: balance %s, total %s", ErrInsufficientBalance, balance.StringFixed(2), total.StringFixed(2))
	}
	return nil
}
