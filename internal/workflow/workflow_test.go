package workflow

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/tailortech/internal/measurement"
	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/pricing"
	"github.com/Lixing-Zhang/tailortech/internal/session"
)

type fakeAPI struct {
	mu sync.Mutex

	coupons    []models.Coupon
	couponErr  error
	payErr     error
	createErr  error
	saveErr    error
	orderErr   error
	payBlock   chan struct{}
	payStarted chan struct{}

	couponCalls  int
	payments     []models.PaymentRequest
	paymentKeys  []string
	creates      []models.CreateRequestRequest
	measurements []savedMeasurement
	orders       []models.CreateOrderRequest
}

type savedMeasurement struct {
	category models.Category
	body     map[string]any
}

func (f *fakeAPI) ListCoupons(context.Context, int64) ([]models.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.couponCalls++
	return f.coupons, f.couponErr
}

func (f *fakeAPI) Pay(_ context.Context, req models.PaymentRequest, key string) (*models.PaymentResponse, error) {
	if f.payStarted != nil {
		close(f.payStarted)
	}
	if f.payBlock != nil {
		<-f.payBlock
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, req)
	f.paymentKeys = append(f.paymentKeys, key)
	if f.payErr != nil {
		return nil, f.payErr
	}
	return &models.PaymentResponse{Success: true, Message: "ok", PaymentID: "pay-" + strconv.Itoa(len(f.payments))}, nil
}

func (f *fakeAPI) CreateRequest(_ context.Context, req models.CreateRequestRequest, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, req)
	if f.createErr != nil {
		return 0, f.createErr
	}
	return 41, nil
}

func (f *fakeAPI) SaveMeasurement(_ context.Context, c models.Category, body map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.measurements = append(f.measurements, savedMeasurement{category: c, body: body})
	return f.saveErr
}

func (f *fakeAPI) CreateOrder(_ context.Context, req models.CreateOrderRequest, _ string) (*models.CreateOrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return &models.CreateOrderResponse{TransactionIDs: []int64{7, 8}}, nil
}

var (
	alice = session.Client{ID: 1, Name: "Alice", Money: models.NewMoney(1000)}

	somchai = models.Tailor{ID: 3, Name: "Somchai", Specialities: []models.Speciality{
		{Category: models.CategoryTop, Price: models.NewMoney(100)},
		{Category: models.CategoryToteBag, Price: models.NewMoney(250)},
	}}
)

func topPlan() Plan {
	return Plan{
		Measurements: measurement.Set{
			"neck": "38", "shoulder": "45", "shoulderToWaist": "42", "chest": "96",
			"waist": "80", "sleeveLength": "60", "collar": true,
		},
		Description: "hem sleeves",
	}
}

func newWorkflow(t *testing.T, api *fakeAPI, client session.Client) *Workflow {
	t.Helper()
	n := 0
	w, err := New(Deps{
		API:      api,
		Resolver: pricing.NewResolver(models.NewMoney(10)),
		NewKey: func() string {
			n++
			return "key-" + strconv.Itoa(n)
		},
	}, client, somchai, models.CategoryTop)
	require.NoError(t, err)
	return w
}

func fillTop(t *testing.T, w *Workflow) {
	t.Helper()
	for name, v := range topPlan().Measurements {
		require.NoError(t, w.SetMeasurement(name, v))
	}
}

func confirmTop(t *testing.T, w *Workflow) {
	t.Helper()
	fillTop(t, w)
	require.NoError(t, w.SubmitMeasurements())
	require.NoError(t, w.Confirm("hem sleeves"))
}

func TestRun_TopSucceeds(t *testing.T) {
	api := &fakeAPI{}
	w := newWorkflow(t, api, alice)

	res, err := w.Run(context.Background(), topPlan())
	require.NoError(t, err)
	assert.Equal(t, Submitted, w.State())
	assert.Equal(t, int64(41), res.RequestID)
	assert.Equal(t, "pay-1", res.PaymentID)
	assert.True(t, res.Quote.Total.Equal(models.NewMoney(110)))

	require.Len(t, api.payments, 1)
	assert.True(t, api.payments[0].TotalAmount.Equal(models.NewMoney(110)))
	assert.Equal(t, models.PaymentMethodTailorPay, api.payments[0].PaymentMethod)
	assert.Empty(t, api.payments[0].PromoCode)

	require.Len(t, api.creates, 1)
	create := api.creates[0]
	assert.Equal(t, models.CategoryTop.Code(), create.RequestType)
	assert.Equal(t, 1, create.RequestType)
	assert.Equal(t, models.StatusPending, create.Status)
	assert.Equal(t, "hem sleeves", create.Desc)
	assert.Equal(t, int64(3), create.TailorID)
	assert.True(t, create.Price.Equal(models.NewMoney(100)))

	require.Len(t, api.measurements, 1)
	saved := api.measurements[0]
	assert.Equal(t, "tops", saved.category.Resource())
	assert.Equal(t, int64(41), saved.body["RequestID"])
	assert.Equal(t, true, saved.body["collar"])
	assert.Zero(t, api.couponCalls)
	assert.Nil(t, w.LastFailure())
}

func TestSubmitMeasurements_RequiresCompleteForm(t *testing.T) {
	w := newWorkflow(t, &fakeAPI{}, alice)
	require.NoError(t, w.SetMeasurement("neck", "38"))

	err := w.SubmitMeasurements()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	assert.ErrorIs(t, err, measurement.ErrIncomplete)

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "fill all required fields", f.Message)
	assert.Contains(t, f.Err.Error(), "collar")
	assert.Equal(t, CategorySelected, w.State())
	assert.Equal(t, f, w.LastFailure())
}

func TestSetMeasurement_Rules(t *testing.T) {
	w := newWorkflow(t, &fakeAPI{}, alice)

	err := w.SetMeasurement("dressLength", "90")
	assert.True(t, IsKind(err, KindValidation))
	assert.ErrorIs(t, err, measurement.ErrUnknownField)

	fillTop(t, w)
	require.NoError(t, w.SubmitMeasurements())
	assert.Equal(t, MeasurementsEntered, w.State())

	require.NoError(t, w.SetMeasurement("neck", ""))
	assert.Equal(t, CategorySelected, w.State(), "blanking a field reopens the form")

	require.NoError(t, w.SetMeasurement("neck", "39"))
	require.NoError(t, w.SubmitMeasurements())
	require.NoError(t, w.Confirm("x"))
	assert.ErrorIs(t, w.SetMeasurement("neck", "40"), ErrInvalidState)
}

func TestConfirm_RequiresDescription(t *testing.T) {
	w := newWorkflow(t, &fakeAPI{}, alice)
	assert.ErrorIs(t, w.Confirm("too early"), ErrInvalidState)

	fillTop(t, w)
	require.NoError(t, w.SubmitMeasurements())

	err := w.Confirm("   ")
	require.Error(t, err)
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, KindValidation, f.Kind)
	assert.Equal(t, "please provide details", f.Message)
	assert.Equal(t, MeasurementsEntered, w.State())
}

func TestSelectCategory(t *testing.T) {
	w := newWorkflow(t, &fakeAPI{}, alice)
	fillTop(t, w)

	require.NoError(t, w.SelectCategory(models.CategoryTop))
	assert.Len(t, w.Measurements(), 7, "same category keeps values")

	err := w.SelectCategory(models.CategoryDress)
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, models.CategoryTop, w.Category())

	require.NoError(t, w.SelectCategory(models.CategoryToteBag))
	assert.Equal(t, models.CategoryToteBag, w.Category())
	assert.Empty(t, w.Measurements())
	assert.Equal(t, CategorySelected, w.State())
}

func TestNew_RequiresSpeciality(t *testing.T) {
	_, err := New(Deps{API: &fakeAPI{}}, alice, somchai, models.CategorySuit)
	assert.True(t, IsKind(err, KindValidation))
}

func TestApplyCoupon(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{coupons: []models.Coupon{{Code: "TECH15", DiscountAmount: models.NewMoney(150), Quantity: 1}}}
	w := newWorkflow(t, api, alice)
	confirmTop(t, w)

	q, err := w.ApplyCoupon(ctx, "TECH15")
	require.NoError(t, err)
	assert.True(t, q.Total.IsZero(), "total floors at zero")
	assert.True(t, q.Discount.Equal(models.NewMoney(150)))

	q, err = w.ApplyCoupon(ctx, "BAD")
	assert.True(t, IsKind(err, KindInvalidCoupon))
	assert.ErrorIs(t, err, pricing.ErrInvalidCoupon)
	assert.True(t, q.Discount.IsZero(), "stale discount is cleared")
	assert.True(t, w.Quote().Total.Equal(models.NewMoney(110)))

	_, err = w.ApplyCoupon(ctx, "TECH15")
	require.NoError(t, err)
	assert.Equal(t, 1, api.couponCalls, "inventory fetched once")

	require.NoError(t, w.Pay(ctx))
	require.Len(t, api.payments, 1)
	assert.Equal(t, "TECH15", api.payments[0].PromoCode)
	assert.True(t, api.payments[0].TotalAmount.IsZero())
}

func TestApplyCoupon_FetchFailure(t *testing.T) {
	api := &fakeAPI{couponErr: errors.New("connection refused")}
	w := newWorkflow(t, api, alice)
	confirmTop(t, w)

	_, err := w.ApplyCoupon(context.Background(), "TECH15")
	assert.True(t, IsKind(err, KindNetwork))
	assert.Equal(t, Confirmed, w.State())

	api.couponErr = nil
	api.coupons = []models.Coupon{{Code: "TECH15", DiscountAmount: models.NewMoney(50), Quantity: 1}}
	q, err := w.ApplyCoupon(context.Background(), "TECH15")
	require.NoError(t, err)
	assert.True(t, q.Total.Equal(models.NewMoney(60)))
}

func TestPay_InsufficientBalanceMakesNoCall(t *testing.T) {
	api := &fakeAPI{}
	w := newWorkflow(t, api, session.Client{ID: 2, Money: models.NewMoney(50)})
	confirmTop(t, w)

	err := w.Pay(context.Background())
	assert.True(t, IsKind(err, KindInsufficientBalance))
	assert.ErrorIs(t, err, pricing.ErrInsufficientBalance)
	assert.Empty(t, api.payments)
	assert.Equal(t, Confirmed, w.State())
}

func TestPay_NetworkFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{payErr: errors.New("dial tcp: connection refused")}
	w := newWorkflow(t, api, alice)
	confirmTop(t, w)

	err := w.Pay(ctx)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
	assert.False(t, IsKind(err, KindPartialSubmission))
	assert.Equal(t, Confirmed, w.State())
	assert.Len(t, w.Measurements(), 7)
	assert.Empty(t, api.creates)
	assert.Empty(t, api.measurements)

	_, err = w.Run(ctx, Plan{})
	require.Error(t, err)

	api.payErr = nil
	res, err := w.Run(ctx, Plan{})
	require.NoError(t, err)
	assert.Equal(t, int64(41), res.RequestID)
	assert.Equal(t, []string{"key-1", "key-1", "key-1"}, api.paymentKeys, "retries reuse the payment key")
}

func TestEditMeasurements_ResetsConfirmation(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{coupons: []models.Coupon{{Code: "TECH15", DiscountAmount: models.NewMoney(50), Quantity: 1}}}
	w := newWorkflow(t, api, alice)
	confirmTop(t, w)
	_, err := w.ApplyCoupon(ctx, "TECH15")
	require.NoError(t, err)

	require.NoError(t, w.EditMeasurements())
	assert.Equal(t, MeasurementsEntered, w.State())
	assert.Equal(t, "38", w.Measurements()["neck"])
	assert.Empty(t, w.Quote().CouponCode)

	require.NoError(t, w.Confirm("shorter"))
	require.NoError(t, w.Pay(ctx))
	assert.True(t, api.payments[0].TotalAmount.Equal(models.NewMoney(110)))
	assert.ErrorIs(t, w.EditMeasurements(), ErrInvalidState)
}

func TestSubmit_PartialSubmissionResumes(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{saveErr: errors.New("503 Service Unavailable")}
	w := newWorkflow(t, api, alice)

	_, err := w.Run(ctx, topPlan())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPartialSubmission))
	assert.False(t, IsKind(err, KindNetwork))

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, int64(41), f.RequestID)
	assert.Equal(t, Paid, w.State())
	assert.Equal(t, int64(41), w.RequestID())

	api.saveErr = nil
	require.NoError(t, w.Submit(ctx))
	assert.Equal(t, Submitted, w.State())
	assert.Len(t, api.payments, 1)
	assert.Len(t, api.creates, 1, "request is not created twice")
	assert.Len(t, api.measurements, 2)
}

func TestSubmit_CreateFailureAfterPayment(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{createErr: errors.New("timeout")}
	w := newWorkflow(t, api, alice)

	_, err := w.Run(ctx, topPlan())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPartialSubmission))
	assert.False(t, IsKind(err, KindNetwork))

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Zero(t, f.RequestID)
	assert.Contains(t, f.Message, "pay-1")
	assert.Equal(t, f, w.LastFailure())
	assert.Equal(t, Paid, w.State())
	assert.Len(t, api.payments, 1)
	assert.Empty(t, api.measurements)

	api.createErr = nil
	require.NoError(t, w.Submit(ctx))
	assert.Equal(t, Submitted, w.State())
	assert.Len(t, api.payments, 1, "retry does not pay again")
	assert.Len(t, api.creates, 2)
	assert.Len(t, api.measurements, 1)
}

func TestBusyGuard(t *testing.T) {
	api := &fakeAPI{payBlock: make(chan struct{}), payStarted: make(chan struct{})}
	w := newWorkflow(t, api, alice)
	confirmTop(t, w)

	var first atomic.Value
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Pay(context.Background()); err != nil {
			first.Store(err)
		}
	}()
	<-api.payStarted

	assert.ErrorIs(t, w.Pay(context.Background()), ErrBusy)
	assert.ErrorIs(t, w.EditMeasurements(), ErrBusy)
	_, err := w.ApplyCoupon(context.Background(), "")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, Confirmed, w.State(), "reads do not block")

	close(api.payBlock)
	<-done
	assert.Nil(t, first.Load())
	assert.Equal(t, Paid, w.State())
	assert.Len(t, api.payments, 1)
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	products := []models.Product{
		{ID: 1, TailorID: 1, Name: "Linen Shirt", Price: models.NewMoney(450), IsActive: true},
		{ID: 3, TailorID: 2, Name: "Silk Slip Dress", Price: models.NewMoney(1800), IsActive: true},
	}
	deps := Deps{API: nil, Resolver: pricing.NewResolver(models.NewMoney(10))}

	t.Run("success", func(t *testing.T) {
		api := &fakeAPI{}
		deps.API = api
		res, err := Checkout(ctx, deps, session.Client{ID: 1, Money: models.NewMoney(5000)}, products, "")
		require.NoError(t, err)
		assert.Equal(t, []int64{7, 8}, res.TransactionIDs)
		assert.True(t, res.Quote.Total.Equal(models.NewMoney(2260)))
		require.Len(t, api.orders, 1)
		assert.Equal(t, []int64{1, 3}, api.orders[0].ProductIDs)
		assert.NotEqual(t, api.paymentKeys[0], "", "keys are generated")
	})

	t.Run("insufficient balance", func(t *testing.T) {
		api := &fakeAPI{}
		deps.API = api
		_, err := Checkout(ctx, deps, alice, products, "")
		assert.True(t, IsKind(err, KindInsufficientBalance))
		assert.Empty(t, api.payments)
	})

	t.Run("invalid coupon", func(t *testing.T) {
		api := &fakeAPI{}
		deps.API = api
		_, err := Checkout(ctx, deps, session.Client{ID: 1, Money: models.NewMoney(5000)}, products, "NOPE")
		assert.True(t, IsKind(err, KindInvalidCoupon))
		assert.Empty(t, api.payments)
	})

	t.Run("order fails after payment", func(t *testing.T) {
		api := &fakeAPI{orderErr: errors.New("boom")}
		deps.API = api
		_, err := Checkout(ctx, deps, session.Client{ID: 1, Money: models.NewMoney(5000)}, products, "")
		assert.True(t, IsKind(err, KindPartialSubmission))
		assert.Len(t, api.payments, 1)
	})

	t.Run("inactive product", func(t *testing.T) {
		deps.API = &fakeAPI{}
		sold := []models.Product{{ID: 9, Name: "Old", IsActive: false}}
		_, err := Checkout(ctx, deps, alice, sold, "")
		assert.True(t, IsKind(err, KindValidation))
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"invalid coupon", pricing.ErrInvalidCoupon, KindInvalidCoupon},
		{"exhausted coupon", pricing.ErrCouponExhausted, KindInvalidCoupon},
		{"balance", pricing.ErrInsufficientBalance, KindInsufficientBalance},
		{"incomplete", measurement.ErrIncomplete, KindValidation},
		{"anything else", errors.New("EOF"), KindNetwork},
		{"already classified", partial(5, errors.New("x")), KindPartialSubmission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err).Kind)
		})
	}
	assert.Nil(t, Classify(nil))
}
