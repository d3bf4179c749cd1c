package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/coupon"
	"github.com/Lixing-Zhang/tailortech/internal/middleware"
	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
	"github.com/Lixing-Zhang/tailortech/internal/service"
)

type testAPI struct {
	handler http.Handler
	store   *repository.InMemoryStore
	auth    *service.AuthService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := repository.NewSeededInMemoryStore()
	promos := coupon.NewBuiltinCatalog()
	auth := service.NewAuthService(store, store, "handler-test-secret-123", time.Hour)

	services := Services{
		Auth:         auth,
		Users:        service.NewUserService(store),
		Catalog:      service.NewCatalogService(store, store),
		Coupons:      service.NewCouponService(store, promos),
		Payments:     service.NewPaymentService(store),
		Requests:     service.NewRequestService(store, store),
		Transactions: service.NewTransactionService(store, service.DefaultPayout),
		Orders:       service.NewOrderService(store),
		Promos:       promos,
	}
	return &testAPI{
		handler: NewRouter(services, RouterConfig{
			Pricing: models.PricingInfo{ShippingFee: models.NewMoney(10), PlatformFeePercent: 5, PointsDivisor: 15},
		}, zap.NewNop()),
		store:   store,
		auth:    auth,
	}
}

func (a *testAPI) token(t *testing.T, role models.Role, id int64) string {
	t.Helper()
	tok, err := a.auth.IssueToken(service.Principal{Role: role, ID: id})
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(dst), rr.Body.String())
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rr, &body)
	return body["error"]
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rr := api.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp HealthResponse
	decode(t, rr, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "memory", resp.Storage)
}

func TestPricing(t *testing.T) {
	api := newTestAPI(t)
	rr := api.do(t, http.MethodGet, "/api/pricing", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"shippingFee":10,"platformFeePercent":5,"pointsDivisor":15}`, rr.Body.String())
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name           string
		path           string
		body           models.LoginRequest
		expectedStatus int
	}{
		{"user login", "/api/login/user", models.LoginRequest{Email: "alice@example.com", Password: repository.SeedPassword}, http.StatusOK},
		{"tailor login", "/api/login/tailor", models.LoginRequest{Email: "mali@example.com", Password: repository.SeedPassword}, http.StatusOK},
		{"wrong password", "/api/login/user", models.LoginRequest{Email: "alice@example.com", Password: "x"}, http.StatusUnauthorized},
		{"tailor on user endpoint", "/api/login/user", models.LoginRequest{Email: "mali@example.com", Password: repository.SeedPassword}, http.StatusUnauthorized},
		{"missing fields", "/api/login/tailor", models.LoginRequest{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, http.MethodPost, tt.path, "", tt.body)
			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var resp models.SessionResponse
			decode(t, rr, &resp)
			assert.NotEmpty(t, resp.Token)

			validate := api.do(t, http.MethodGet, "/api/validate", resp.Token, nil)
			assert.Equal(t, http.StatusOK, validate.Code)
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/validate", "/api/users/1", "/api/coupons/code?userId=1", "/api/carts/get-cart/1"} {
		rr := api.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestUsers(t *testing.T) {
	api := newTestAPI(t)
	alice := api.token(t, models.RoleUser, 1)

	rr := api.do(t, http.MethodGet, "/api/users/1", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var u models.User
	decode(t, rr, &u)
	assert.Equal(t, "Alice Wong", u.Name)

	rr = api.do(t, http.MethodGet, "/api/users/2", alice, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/users/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/users/topup/1", alice, models.TopUpRequest{Amount: models.NewMoney(100)})
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &u)
	assert.True(t, u.Money.Equal(models.NewMoney(2100)))

	rr = api.do(t, http.MethodPost, "/api/users/topup/1", alice, models.TopUpRequest{Amount: models.NewMoney(-1)})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/users/update", alice, models.ProfileUpdate{ID: 1, PhoneNumber: "0800000000"})
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &u)
	assert.Equal(t, "0800000000", u.PhoneNumber)
}

func TestCatalog(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedCount  int
	}{
		{"all tailors", "/api/tailors/get-all", http.StatusOK, 3},
		{"by speciality", "/api/tailors/get-all?speciality=Tops", http.StatusOK, 1},
		{"by query", "/api/tailors/get-all?query=couture", http.StatusOK, 1},
		{"bad speciality", "/api/tailors/get-all?speciality=hats", http.StatusBadRequest, 0},
		{"products", "/api/products/get-all", http.StatusOK, 5},
		{"products by query", "/api/products/get-all?query=tote", http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, http.MethodGet, tt.path, "", nil)
			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			if tt.expectedStatus == http.StatusOK {
				var items []json.RawMessage
				decode(t, rr, &items)
				assert.Len(t, items, tt.expectedCount)
			}
		})
	}

	rr := api.do(t, http.MethodGet, "/api/tailors/3", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var tailor models.Tailor
	decode(t, rr, &tailor)
	sp, ok := tailor.SpecialityFor(models.CategoryToteBag)
	require.True(t, ok)
	assert.True(t, sp.Price.Equal(models.NewMoney(250)))

	rr = api.do(t, http.MethodGet, "/api/tailors/99", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Tailor not found", errorBody(t, rr))
}

func TestCoupons(t *testing.T) {
	api := newTestAPI(t)
	alice := api.token(t, models.RoleUser, 1)

	rr := api.do(t, http.MethodGet, "/api/coupons/code?userId=1", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list models.CouponList
	decode(t, rr, &list)
	require.Len(t, list.Coupons, 1)
	assert.Equal(t, "TECH15", list.Coupons[0].Code)

	rr = api.do(t, http.MethodGet, "/api/coupons/code?userId=2", alice, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/coupons/code", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/coupons/exchange", alice, models.ExchangeCouponRequest{UserID: 1, Code: "TECH75"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Insufficient points", errorBody(t, rr))

	rr = api.do(t, http.MethodPost, "/api/coupons/exchange", alice, models.ExchangeCouponRequest{UserID: 1, Code: "TECH15"})
	require.Equal(t, http.StatusOK, rr.Code)
	var exch models.ExchangeCouponResponse
	decode(t, rr, &exch)
	assert.Equal(t, int64(150), exch.Points)
	assert.Equal(t, 2, exch.Coupon.Quantity)

	rr = api.do(t, http.MethodGet, "/api/coupons/validate/TECH35", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = api.do(t, http.MethodGet, "/api/coupons/validate/tech35", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/coupons/stats", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var stats map[string]interface{}
	decode(t, rr, &stats)
	assert.EqualValues(t, 3, stats["total_promos"])

	rr = api.do(t, http.MethodGet, "/api/coupons/promos", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var promos []models.Promo
	decode(t, rr, &promos)
	assert.Len(t, promos, 3)
}

func TestPayment(t *testing.T) {
	tests := []struct {
		name           string
		userID         int64
		tokenID        int64
		amount         int64
		promo          string
		expectedStatus int
		expectedError  string
	}{
		{name: "successful payment", userID: 1, tokenID: 1, amount: 110, expectedStatus: http.StatusOK},
		{name: "with owned coupon", userID: 1, tokenID: 1, amount: 0, promo: "TECH15", expectedStatus: http.StatusOK},
		{name: "insufficient balance", userID: 2, tokenID: 2, amount: 110, expectedStatus: http.StatusBadRequest, expectedError: "Insufficient balance"},
		{name: "coupon not owned", userID: 2, tokenID: 2, amount: 10, promo: "TECH15", expectedStatus: http.StatusBadRequest, expectedError: "Coupon not found"},
		{name: "paying for someone else", userID: 2, tokenID: 1, amount: 10, expectedStatus: http.StatusForbidden, expectedError: "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			rr := api.do(t, http.MethodPost, "/api/payment", api.token(t, models.RoleUser, tt.tokenID), models.PaymentRequest{
				UserID:        tt.userID,
				TotalAmount:   models.NewMoney(tt.amount),
				PromoCode:     tt.promo,
				PaymentMethod: models.PaymentMethodTailorPay,
			})

			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorBody(t, rr))
				return
			}
			var resp models.PaymentResponse
			decode(t, rr, &resp)
			assert.True(t, resp.Success)
			assert.NotEmpty(t, resp.PaymentID)
		})
	}
}

func TestPayment_IdempotentReplayChargesOnce(t *testing.T) {
	api := newTestAPI(t)
	alice := api.token(t, models.RoleUser, 1)
	body := models.PaymentRequest{UserID: 1, TotalAmount: models.NewMoney(110)}

	first := api.do(t, http.MethodPost, "/api/payment", alice, body, middleware.IdempotencyHeader, "01J0PAYMENTKEY")
	second := api.do(t, http.MethodPost, "/api/payment", alice, body, middleware.IdempotencyHeader, "01J0PAYMENTKEY")

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(middleware.ReplayHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	u, err := api.store.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, u.Money.Equal(models.NewMoney(1890)), "money = %s", u.Money)
}

func topMeasurementBody(requestID int64) map[string]any {
	return map[string]any{
		"RequestID": requestID, "neck": "38", "shoulder": "45", "shoulderToWaist": "42",
		"chest": "96", "waist": "80", "sleeveLength": "60", "collar": false,
	}
}

func TestRequestLifecycle(t *testing.T) {
	api := newTestAPI(t)
	alice := api.token(t, models.RoleUser, 1)
	somchai := api.token(t, models.RoleTailor, 1)

	rr := api.do(t, http.MethodPost, "/api/requests/create", alice, models.CreateRequestRequest{
		UserID: 1, Name: "Tops", Desc: "Linen shirt", Price: models.NewMoney(100),
		RequestType: 1, TailorID: 1, Status: models.StatusPending, TotalPrice: models.NewMoney(110),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created models.CreatedResponse
	decode(t, rr, &created)
	require.Positive(t, created.ID)

	rr = api.do(t, http.MethodPost, "/api/measurements/dresses", alice, topMeasurementBody(created.ID))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/measurements/hats", alice, topMeasurementBody(created.ID))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/measurements/tops", alice, topMeasurementBody(created.ID))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = api.do(t, http.MethodPost, "/api/measurements/tops", alice, topMeasurementBody(created.ID))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/requests/get-tailor-request/1", somchai, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var txns []models.Transaction
	decode(t, rr, &txns)
	require.Len(t, txns, 1)
	txnID := txns[0].ID
	assert.Equal(t, "96", txns[0].Requests[0].Measurement["chest"])

	rr = api.do(t, http.MethodPost, "/api/requests/update-status", alice, models.UpdateStatusRequest{TransactionID: txnID, NewStatus: models.StatusAccepted})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/requests/update-status", somchai, models.UpdateStatusRequest{TransactionID: txnID, NewStatus: models.StatusAccepted})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/orders/confirm-received", alice, models.ConfirmReceivedRequest{TransactionID: txnID})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/requests/confirm-received", alice, models.ConfirmReceivedRequest{TransactionID: txnID})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/requests/confirm-received", alice, models.ConfirmReceivedRequest{TransactionID: txnID})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Transaction already finished", errorBody(t, rr))

	tailor, err := api.store.GetTailor(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, tailor.Money.Equal(models.NewMoney(95)))
	user, err := api.store.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(256), user.Points)
}

func TestRequestCreate_Validation(t *testing.T) {
	api := newTestAPI(t)
	alice := api.token(t, models.RoleUser, 1)

	tests := []struct {
		name           string
		req            models.CreateRequestRequest
		expectedStatus int
	}{
		{"missing description", models.CreateRequestRequest{UserID: 1, TailorID: 1, RequestType: 1}, http.StatusBadRequest},
		{"unknown type", models.CreateRequestRequest{UserID: 1, TailorID: 1, RequestType: 7, Desc: "x"}, http.StatusBadRequest},
		{"tailor lacks speciality", models.CreateRequestRequest{UserID: 1, TailorID: 1, RequestType: 5, Desc: "x"}, http.StatusBadRequest},
		{"unknown tailor", models.CreateRequestRequest{UserID: 1, TailorID: 50, RequestType: 1, Desc: "x"}, http.StatusNotFound},
		{"other user", models.CreateRequestRequest{UserID: 2, TailorID: 1, RequestType: 1, Desc: "x"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, http.MethodPost, "/api/requests/create", alice, tt.req)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/requests/create", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+alice)
	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid request body", errorBody(t, rr))
}

func TestOrdersAndCart(t *testing.T) {
	api := newTestAPI(t)
	alice := api.token(t, models.RoleUser, 1)
	mali := api.token(t, models.RoleTailor, 2)

	rr := api.do(t, http.MethodPost, "/api/carts/add-to-cart", alice, models.CartItem{UserID: 1, ProductID: 3})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = api.do(t, http.MethodPost, "/api/carts/add-to-cart", alice, models.CartItem{UserID: 1, ProductID: 4})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/carts/get-cart/1", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var cart models.CartResponse
	decode(t, rr, &cart)
	assert.Len(t, cart.Products, 2)

	rr = api.do(t, http.MethodDelete, "/api/carts/remove", alice, models.CartItem{UserID: 1, ProductID: 4})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/orders/create", alice, models.CreateOrderRequest{
		UserID: 1, Name: "Alice Wong", ProductIDs: []int64{3}, Status: models.StatusPending, TotalPrice: models.NewMoney(1810),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var order models.CreateOrderResponse
	decode(t, rr, &order)
	require.Len(t, order.TransactionIDs, 1)

	rr = api.do(t, http.MethodPost, "/api/orders/create", alice, models.CreateOrderRequest{UserID: 1, ProductIDs: []int64{3}})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/orders/create", alice, models.CreateOrderRequest{UserID: 1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/carts/get-cart/1", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &cart)
	assert.Empty(t, cart.Products)

	rr = api.do(t, http.MethodGet, "/api/orders/get-tailor-order/2", mali, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var txns []models.Transaction
	decode(t, rr, &txns)
	require.Len(t, txns, 1)
	assert.Equal(t, order.TransactionIDs[0], txns[0].ID)

	rr = api.do(t, http.MethodGet, "/api/orders/get-user-order/1", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/orders/get-user-order/1", mali, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
