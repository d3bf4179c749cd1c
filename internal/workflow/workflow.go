// Package workflow drives a custom tailoring request from category choice to
// submission: measurements, confirmation, coupon, payment, persistence.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/measurement"
	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/pricing"
	"github.com/Lixing-Zhang/tailortech/internal/session"
)

const (
	msgFillFields     = "fill all required fields"
	msgProvideDetails = "please provide details"
)

// State is a step of the request workflow. There is no Failed state: a
// failed step keeps the last good state and is reported by LastFailure.
type State int

const (
	CategorySelected State = iota
	MeasurementsEntered
	Confirmed
	Paid
	Submitted
)

func (s State) String() string {
	switch s {
	case CategorySelected:
		return "CategorySelected"
	case MeasurementsEntered:
		return "MeasurementsEntered"
	case Confirmed:
		return "Confirmed"
	case Paid:
		return "Paid"
	case Submitted:
		return "Submitted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// API is the part of the marketplace client the workflow calls
type API interface {
	ListCoupons(ctx context.Context, userID int64) ([]models.Coupon, error)
	Pay(ctx context.Context, req models.PaymentRequest, idempotencyKey string) (*models.PaymentResponse, error)
	CreateRequest(ctx context.Context, req models.CreateRequestRequest, idempotencyKey string) (int64, error)
	SaveMeasurement(ctx context.Context, category models.Category, body map[string]any) error
	CreateOrder(ctx context.Context, req models.CreateOrderRequest, idempotencyKey string) (*models.CreateOrderResponse, error)
}

// Deps are the collaborators shared by workflows
type Deps struct {
	API      API
	Resolver pricing.Resolver
	Log      *zap.Logger
	// NewKey returns a fresh idempotency key. Defaults to a ULID.
	NewKey func() string
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.NewKey == nil {
		d.NewKey = func() string { return ulid.Make().String() }
	}
	return d
}

// Workflow is one pending request. Its steps may be called from several
// goroutines but only one network step runs at a time.
type Workflow struct {
	deps   Deps
	client session.Client
	tailor models.Tailor

	mu           sync.Mutex
	busy         bool
	state        State
	category     models.Category
	basePrice    models.Money
	measurements measurement.Set
	description  string
	quote        pricing.Quote
	coupons      []models.Coupon
	couponsReady bool
	paymentKey   string
	paymentID    string
	requestKey   string
	requestID    int64
	last         *Failure
}

// New starts a workflow for client ordering category from tailor. The tailor
// must offer the category; its speciality price is the base price.
func New(deps Deps, client session.Client, tailor models.Tailor, category models.Category) (*Workflow, error) {
	sp, ok := tailor.SpecialityFor(category)
	if !ok {
		return nil, validation(fmt.Sprintf("%s does not make %s", tailor.Name, category), models.ErrUnknownCategory)
	}
	return &Workflow{
		deps:         deps.withDefaults(),
		client:       client,
		tailor:       tailor,
		state:        CategorySelected,
		category:     category,
		basePrice:    sp.Price,
		measurements: measurement.Set{},
	}, nil
}

// State returns the current step
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) Category() models.Category {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.category
}

// Measurements returns a copy of the entered values
func (w *Workflow) Measurements() measurement.Set {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.measurements.Clone()
}

// Quote returns the last resolved price
func (w *Workflow) Quote() pricing.Quote {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.quote
}

// RequestID is the server ID of the request once created, else 0
func (w *Workflow) RequestID() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requestID
}

// PaymentID is the payment reference once paid
func (w *Workflow) PaymentID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paymentID
}

// LastFailure is the failure reported by the most recent step, or nil
func (w *Workflow) LastFailure() *Failure {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// lock takes the mutex for a local step; it fails while a network step runs
func (w *Workflow) lock() error {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return ErrBusy
	}
	return nil
}

// report records f as the last failure and returns it as an error
func (w *Workflow) report(f *Failure) error {
	w.last = f
	if f == nil {
		return nil
	}
	return f
}

func (w *Workflow) outOfOrder(step string) error {
	return fmt.Errorf("%w: %s in %s", ErrInvalidState, step, w.state)
}

// SelectCategory switches the garment. A different category restarts the
// form; the same category is a no-op.
func (w *Workflow) SelectCategory(c models.Category) error {
	if err := w.lock(); err != nil {
		return err
	}
	defer w.mu.Unlock()

	if w.state >= Paid {
		return w.outOfOrder("select category")
	}
	if c == w.category {
		return nil
	}
	sp, ok := w.tailor.SpecialityFor(c)
	if !ok {
		return w.report(validation(fmt.Sprintf("%s does not make %s", w.tailor.Name, c), models.ErrUnknownCategory))
	}

	w.category = c
	w.basePrice = sp.Price
	w.measurements = measurement.Set{}
	w.resetConfirmation()
	w.state = CategorySelected
	w.last = nil
	return nil
}

// SetMeasurement records one field value. The form must be open: edit
// measurements first when the request is already confirmed.
func (w *Workflow) SetMeasurement(name string, value any) error {
	if err := w.lock(); err != nil {
		return err
	}
	defer w.mu.Unlock()

	if w.state > MeasurementsEntered {
		return w.outOfOrder("set measurement")
	}
	if !isField(w.category, name) {
		return w.report(validation(fmt.Sprintf("%s has no field %q", w.category, name), measurement.ErrUnknownField))
	}

	w.measurements = measurement.SetValue(w.measurements, name, value)
	if w.state == MeasurementsEntered && !measurement.IsComplete(w.category, w.measurements) {
		w.state = CategorySelected
	}
	return nil
}

func isField(c models.Category, name string) bool {
	for _, f := range measurement.RequiredFields(c) {
		if f.Name == name {
			return true
		}
	}
	return false
}

// SubmitMeasurements closes the form once every required field is filled
func (w *Workflow) SubmitMeasurements() error {
	if err := w.lock(); err != nil {
		return err
	}
	defer w.mu.Unlock()

	switch w.state {
	case CategorySelected, MeasurementsEntered:
	default:
		return w.outOfOrder("submit measurements")
	}

	if !measurement.IsComplete(w.category, w.measurements) {
		missing := measurement.Missing(w.category, w.measurements)
		return w.report(validation(msgFillFields, fmt.Errorf("%w: %s", measurement.ErrIncomplete, strings.Join(missing, ", "))))
	}
	w.state = MeasurementsEntered
	w.last = nil
	return nil
}

// Confirm attaches the description and quotes the price without a coupon
func (w *Workflow) Confirm(description string) error {
	if err := w.lock(); err != nil {
		return err
	}
	defer w.mu.Unlock()

	if w.state != MeasurementsEntered {
		return w.outOfOrder("confirm")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return w.report(validation(msgProvideDetails, nil))
	}

	w.description = description
	w.quote = w.deps.Resolver.Resolve(w.basePrice, "", nil)
	w.state = Confirmed
	w.last = nil
	return nil
}

// EditMeasurements reopens the form from Confirmed. Confirmation data is
// discarded; measurement values stay as defaults.
func (w *Workflow) EditMeasurements() error {
	if err := w.lock(); err != nil {
		return err
	}
	defer w.mu.Unlock()

	switch w.state {
	case MeasurementsEntered:
		return nil
	case Confirmed:
	default:
		return w.outOfOrder("edit measurements")
	}
	w.resetConfirmation()
	w.state = MeasurementsEntered
	w.last = nil
	return nil
}

func (w *Workflow) resetConfirmation() {
	w.description = ""
	w.quote = pricing.Quote{}
	w.paymentKey = ""
}

// begin marks a network step in flight; the caller must call end
func (w *Workflow) begin(allowed ...State) error {
	if err := w.lock(); err != nil {
		return err
	}
	defer w.mu.Unlock()

	for _, s := range allowed {
		if w.state == s {
			w.busy = true
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidState, w.state)
}

func (w *Workflow) end() {
	w.busy = false
	w.mu.Unlock()
}

// ApplyCoupon resolves the price with code. The coupon inventory is fetched
// once per workflow. An invalid code clears any previous discount and is
// reported as InvalidCoupon alongside the undiscounted quote.
func (w *Workflow) ApplyCoupon(ctx context.Context, code string) (pricing.Quote, error) {
	if err := w.begin(Confirmed); err != nil {
		return pricing.Quote{}, err
	}

	w.mu.Lock()
	coupons, ready := w.coupons, w.couponsReady
	w.mu.Unlock()

	code = strings.TrimSpace(code)
	var fetchErr error
	if code != "" && !ready {
		coupons, fetchErr = w.deps.API.ListCoupons(ctx, w.client.ID)
	}

	w.mu.Lock()
	defer w.end()

	if fetchErr != nil {
		w.deps.Log.Warn("fetch coupons failed", zap.Int64("user_id", w.client.ID), zap.Error(fetchErr))
		return w.quote, w.report(network(fetchErr))
	}
	if code != "" {
		w.coupons, w.couponsReady = coupons, true
	}

	q := w.deps.Resolver.Resolve(w.basePrice, code, w.coupons)
	if !q.Total.Equal(w.quote.Total) || q.CouponCode != w.quote.CouponCode {
		w.paymentKey = ""
	}
	w.quote = q
	if q.Err != nil {
		return q, w.report(Classify(q.Err))
	}
	w.last = nil
	return q, nil
}

// Pay charges the quoted total once. Affordability is checked first and no
// call is made when the balance is short. On failure the state stays
// Confirmed with all data kept; paying again reuses the idempotency key so a
// lost response never charges twice.
func (w *Workflow) Pay(ctx context.Context) error {
	if err := w.begin(Confirmed); err != nil {
		return err
	}

	w.mu.Lock()
	total := w.quote.Total
	if err := pricing.CheckAffordable(w.client.Money, total); err != nil {
		defer w.end()
		return w.report(Classify(err))
	}
	if w.paymentKey == "" {
		w.paymentKey = w.deps.NewKey()
	}
	req := models.PaymentRequest{
		UserID:        w.client.ID,
		TotalAmount:   total,
		PromoCode:     w.quote.CouponCode,
		PaymentMethod: models.PaymentMethodTailorPay,
	}
	key := w.paymentKey
	w.mu.Unlock()

	resp, err := w.deps.API.Pay(ctx, req, key)

	w.mu.Lock()
	defer w.end()

	if err != nil {
		w.deps.Log.Warn("payment failed", zap.Int64("user_id", req.UserID), zap.String("total", total.String()), zap.Error(err))
		return w.report(Classify(err))
	}
	if !resp.Success {
		return w.report(network(fmt.Errorf("payment declined: %s", resp.Message)))
	}

	w.paymentID = resp.PaymentID
	w.client.Money = w.client.Money.Sub(total)
	w.state = Paid
	w.last = nil
	w.deps.Log.Info("payment completed", zap.Int64("user_id", req.UserID), zap.String("payment_id", resp.PaymentID))
	return nil
}

// Submit creates the request and then saves its measurements. When the
// second call fails the request already exists; Submit again resumes at the
// measurement call.
func (w *Workflow) Submit(ctx context.Context) error {
	if err := w.begin(Paid); err != nil {
		return err
	}

	w.mu.Lock()
	requestID := w.requestID
	if w.requestKey == "" {
		w.requestKey = w.deps.NewKey()
	}
	key := w.requestKey
	category := w.category
	create := models.CreateRequestRequest{
		UserID:      w.client.ID,
		Name:        category.String(),
		Desc:        w.description,
		Price:       w.basePrice,
		RequestType: category.Code(),
		TailorID:    w.tailor.ID,
		Status:      models.StatusPending,
		TotalPrice:  w.quote.Total,
	}
	values := w.measurements.Clone()
	w.mu.Unlock()

	var createErr, saveErr error
	if requestID == 0 {
		requestID, createErr = w.deps.API.CreateRequest(ctx, create, key)
	}
	if createErr == nil {
		saveErr = w.deps.API.SaveMeasurement(ctx, category, measurement.Payload(category, values, requestID))
	}

	w.mu.Lock()
	defer w.end()

	if createErr != nil {
		w.deps.Log.Error("request not created after payment",
			zap.Int64("user_id", create.UserID),
			zap.String("payment_id", w.paymentID),
			zap.Error(createErr),
		)
		return w.report(unrecorded(w.paymentID, createErr))
	}
	w.requestID = requestID
	if saveErr != nil {
		w.deps.Log.Error("measurements not saved for created request",
			zap.Int64("request_id", requestID),
			zap.String("category", category.Resource()),
			zap.Error(saveErr),
		)
		return w.report(partial(requestID, saveErr))
	}

	w.state = Submitted
	w.last = nil
	w.deps.Log.Info("request submitted", zap.Int64("request_id", requestID), zap.Int64("tailor_id", w.tailor.ID))
	return nil
}
