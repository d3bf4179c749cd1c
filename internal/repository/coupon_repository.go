package repository

import (
	"context"
	"sort"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

// ListCoupons returns the user's coupons with uses left, ordered by code
func (s *InMemoryStore) ListCoupons(_ context.Context, userID int64) ([]models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, ErrUserNotFound
	}

	coupons := make([]models.Coupon, 0, len(s.coupons[userID]))
	for _, c := range s.coupons[userID] {
		coupons = append(coupons, c)
	}
	sort.Slice(coupons, func(i, j int) bool { return coupons[i].Code < coupons[j].Code })
	return coupons, nil
}

// ExchangeCoupon implements CouponRepository
func (s *InMemoryStore) ExchangeCoupon(_ context.Context, userID int64, promo models.Promo) (int64, models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, models.Coupon{}, ErrUserNotFound
	}
	if u.Points < promo.PointsCost {
		return u.Points, models.Coupon{}, ErrInsufficientPoints
	}

	u.Points -= promo.PointsCost
	s.users[userID] = u

	owned := s.coupons[userID]
	if owned == nil {
		owned = make(map[string]models.Coupon)
		s.coupons[userID] = owned
	}
	c := owned[promo.Code]
	c.Code = promo.Code
	c.DiscountAmount = promo.Discount
	c.Quantity++
	owned[promo.Code] = c

	return u.Points, c, nil
}

// Charge implements CouponRepository
func (s *InMemoryStore) Charge(_ context.Context, userID int64, amount models.Money, promoCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if u.Money.LessThan(amount) {
		return ErrInsufficientBalance
	}

	if promoCode != "" {
		c, ok := s.coupons[userID][promoCode]
		if !ok {
			return ErrCouponNotOwned
		}
		if c.Quantity <= 0 {
			return ErrCouponExhausted
		}
		c.Quantity--
		if c.Quantity == 0 {
			delete(s.coupons[userID], promoCode)
		} else {
			s.coupons[userID][promoCode] = c
		}
	}

	u.Money = u.Money.Sub(amount)
	s.users[userID] = u
	return nil
}
