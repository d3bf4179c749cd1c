package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/measurement"
	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/pricing"
	"github.com/Lixing-Zhang/tailortech/internal/session"
)

// Plan is everything a non-interactive caller knows up front
type Plan struct {
	Measurements measurement.Set
	Description  string
	CouponCode   string
}

// Result summarises a finished workflow
type Result struct {
	RequestID int64
	PaymentID string
	Quote     pricing.Quote
}

// Run drives the workflow from its current state to Submitted. A workflow
// stopped at Paid by an earlier failure resumes at Submit.
func (w *Workflow) Run(ctx context.Context, p Plan) (*Result, error) {
	if w.State() < Confirmed {
		for _, f := range measurement.RequiredFields(w.Category()) {
			v, ok := p.Measurements[f.Name]
			if !ok {
				continue
			}
			if err := w.SetMeasurement(f.Name, v); err != nil {
				return nil, err
			}
		}
		if err := w.SubmitMeasurements(); err != nil {
			return nil, err
		}
		if err := w.Confirm(p.Description); err != nil {
			return nil, err
		}
	}

	if w.State() == Confirmed {
		if p.CouponCode != "" {
			if _, err := w.ApplyCoupon(ctx, p.CouponCode); err != nil {
				return nil, err
			}
		}
		if err := w.Pay(ctx); err != nil {
			return nil, err
		}
	}

	if w.State() == Paid {
		if err := w.Submit(ctx); err != nil {
			return nil, err
		}
	}

	return &Result{RequestID: w.RequestID(), PaymentID: w.PaymentID(), Quote: w.Quote()}, nil
}

// OrderResult summarises a product checkout
type OrderResult struct {
	TransactionIDs []int64
	PaymentID      string
	Quote          pricing.Quote
}

// Checkout buys ready-made products: quote the cart, pay, then create the
// order. Products must be active. A failed order after a successful payment
// is reported as PartialSubmission.
func Checkout(ctx context.Context, deps Deps, client session.Client, products []models.Product, couponCode string) (*OrderResult, error) {
	deps = deps.withDefaults()

	if len(products) == 0 {
		return nil, validation("cart is empty", nil)
	}
	prices := make([]models.Money, len(products))
	ids := make([]int64, len(products))
	for i, p := range products {
		if !p.IsActive {
			return nil, validation(fmt.Sprintf("%s is no longer available", p.Name), nil)
		}
		prices[i] = p.Price
		ids[i] = p.ID
	}

	var coupons []models.Coupon
	if couponCode != "" {
		var err error
		if coupons, err = deps.API.ListCoupons(ctx, client.ID); err != nil {
			return nil, network(err)
		}
	}

	q := deps.Resolver.ResolveCart(prices, couponCode, coupons)
	if q.Err != nil {
		return nil, Classify(q.Err)
	}
	if err := pricing.CheckAffordable(client.Money, q.Total); err != nil {
		return nil, Classify(err)
	}

	paid, err := deps.API.Pay(ctx, models.PaymentRequest{
		UserID:        client.ID,
		TotalAmount:   q.Total,
		PromoCode:     q.CouponCode,
		PaymentMethod: models.PaymentMethodTailorPay,
	}, deps.NewKey())
	if err != nil {
		return nil, Classify(err)
	}
	if !paid.Success {
		return nil, network(fmt.Errorf("payment declined: %s", paid.Message))
	}

	order, err := deps.API.CreateOrder(ctx, models.CreateOrderRequest{
		UserID:     client.ID,
		Name:       products[0].Name,
		ProductIDs: ids,
		Status:     models.StatusPending,
		TotalPrice: q.Total,
	}, deps.NewKey())
	if err != nil {
		deps.Log.Error("order not created after payment",
			zap.Int64("user_id", client.ID),
			zap.String("payment_id", paid.PaymentID),
			zap.Error(err),
		)
		return nil, &Failure{
			Kind:    KindPartialSubmission,
			Message: fmt.Sprintf("payment %s taken but the order was not created", paid.PaymentID),
			Err:     err,
		}
	}

	return &OrderResult{TransactionIDs: order.TransactionIDs, PaymentID: paid.PaymentID, Quote: q}, nil
}
