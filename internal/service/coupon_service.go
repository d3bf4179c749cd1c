package service

import (
	"context"
	"strings"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

// PromoCatalog looks up promo definitions by code
type PromoCatalog interface {
	Lookup(ctx context.Context, code string) (models.Promo, bool)
	All() []models.Promo
}

// CouponService handles coupon inventory and point exchange
type CouponService struct {
	coupons repository.CouponRepository
	catalog PromoCatalog
}

// NewCouponService creates a new coupon service
func NewCouponService(coupons repository.CouponRepository, catalog PromoCatalog) *CouponService {
	return &CouponService{coupons: coupons, catalog: catalog}
}

// ListCoupons returns the user's coupon inventory
func (s *CouponService) ListCoupons(ctx context.Context, userID int64) (*models.CouponList, error) {
	coupons, err := s.coupons.ListCoupons(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.CouponList{Coupons: coupons}, nil
}

// Promos returns every promo that can be bought with points
func (s *CouponService) Promos() []models.Promo {
	return s.catalog.All()
}

// Exchange spends the user's points on one use of code
func (s *CouponService) Exchange(ctx context.Context, req models.ExchangeCouponRequest) (*models.ExchangeCouponResponse, error) {
	promo, ok := s.catalog.Lookup(ctx, strings.TrimSpace(req.Code))
	if !ok {
		return nil, ErrInvalidCoupon
	}

	points, coupon, err := s.coupons.ExchangeCoupon(ctx, req.UserID, promo)
	if err != nil {
		return nil, err
	}
	return &models.ExchangeCouponResponse{Points: points, Coupon: coupon}, nil
}
