package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

// PaymentService charges client balances
type PaymentService struct {
	coupons repository.CouponRepository
	newID   func() string
}

// NewPaymentService creates a new payment service
func NewPaymentService(coupons repository.CouponRepository) *PaymentService {
	return &PaymentService{
		coupons: coupons,
		newID:   generatePaymentID,
	}
}

// Pay debits TotalAmount from the user and consumes PromoCode when set.
// The discount is already part of TotalAmount.
func (s *PaymentService) Pay(ctx context.Context, req models.PaymentRequest) (*models.PaymentResponse, error) {
	if req.PaymentMethod != "" && req.PaymentMethod != models.PaymentMethodTailorPay {
		return nil, ErrInvalidPaymentMethod
	}
	if req.TotalAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	if err := s.coupons.Charge(ctx, req.UserID, req.TotalAmount, req.PromoCode); err != nil {
		return nil, err
	}

	return &models.PaymentResponse{
		Success:   true,
		Message:   "Payment successful",
		PaymentID: s.newID(),
	}, nil
}

// generatePaymentID generates a unique payment reference using UUID
func generatePaymentID() string {
	return uuid.New().String()
}
