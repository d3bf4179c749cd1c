package tailorapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

func id(v int64) string { return strconv.FormatInt(v, 10) }

// Login authenticates against the endpoint for role and keeps the returned token
func (c *Client) Login(ctx context.Context, role models.Role, email, password string) (*models.SessionResponse, error) {
	path := "/login/user"
	if role == models.RoleTailor {
		path = "/login/tailor"
	}

	var resp models.SessionResponse
	err := c.do(ctx, call{
		op: "login", method: http.MethodPost, path: path,
		body: models.LoginRequest{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	// the endpoint decides the role, not the payload
	resp.Role = role
	c.SetToken(resp.Token)
	return &resp, nil
}

// Validate returns the profile behind the current token
func (c *Client) Validate(ctx context.Context) (*models.SessionResponse, error) {
	var resp models.SessionResponse
	if err := c.do(ctx, call{op: "validate", method: http.MethodGet, path: "/validate"}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout ends the session and drops the token even when the call fails
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, call{op: "logout", method: http.MethodGet, path: "/logout"}, nil)
	c.SetToken("")
	return err
}

func (c *Client) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, call{op: "get_user", method: http.MethodGet, path: "/users/" + id(userID)}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, call{op: "update_profile", method: http.MethodPost, path: "/users/update", body: update}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) TopUp(ctx context.Context, userID int64, amount models.Money) (*models.User, error) {
	var u models.User
	err := c.do(ctx, call{
		op: "top_up", method: http.MethodPost, path: "/users/topup/" + id(userID),
		body: models.TopUpRequest{Amount: amount},
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListTailors queries the catalog. Empty arguments are not sent.
func (c *Client) ListTailors(ctx context.Context, query, speciality string) ([]models.Tailor, error) {
	q := url.Values{}
	if query != "" {
		q.Set("query", query)
	}
	if speciality != "" {
		q.Set("speciality", speciality)
	}

	var tailors []models.Tailor
	if err := c.do(ctx, call{op: "list_tailors", method: http.MethodGet, path: "/tailors/get-all", query: q}, &tailors); err != nil {
		return nil, err
	}
	return tailors, nil
}

func (c *Client) GetTailor(ctx context.Context, tailorID int64) (*models.Tailor, error) {
	var t models.Tailor
	if err := c.do(ctx, call{op: "get_tailor", method: http.MethodGet, path: "/tailors/" + id(tailorID)}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) ListProducts(ctx context.Context, query string) ([]models.Product, error) {
	q := url.Values{}
	if query != "" {
		q.Set("query", query)
	}

	var products []models.Product
	if err := c.do(ctx, call{op: "list_products", method: http.MethodGet, path: "/products/get-all", query: q}, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Pricing returns the server's shipping and payout parameters
func (c *Client) Pricing(ctx context.Context) (*models.PricingInfo, error) {
	var p models.PricingInfo
	if err := c.do(ctx, call{op: "pricing", method: http.MethodGet, path: "/pricing"}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListCoupons returns the user's coupon inventory
func (c *Client) ListCoupons(ctx context.Context, userID int64) ([]models.Coupon, error) {
	q := url.Values{"userId": {id(userID)}}

	var list models.CouponList
	if err := c.do(ctx, call{op: "list_coupons", method: http.MethodGet, path: "/coupons/code", query: q}, &list); err != nil {
		return nil, err
	}
	return list.Coupons, nil
}

func (c *Client) ExchangeCoupon(ctx context.Context, req models.ExchangeCouponRequest) (*models.ExchangeCouponResponse, error) {
	var resp models.ExchangeCouponResponse
	if err := c.do(ctx, call{op: "exchange_coupon", method: http.MethodPost, path: "/coupons/exchange", body: req}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Promos(ctx context.Context) ([]models.Promo, error) {
	var promos []models.Promo
	if err := c.do(ctx, call{op: "promos", method: http.MethodGet, path: "/coupons/promos"}, &promos); err != nil {
		return nil, err
	}
	return promos, nil
}

// Pay charges the user's balance. Retrying with the same key never charges twice.
func (c *Client) Pay(ctx context.Context, req models.PaymentRequest, idempotencyKey string) (*models.PaymentResponse, error) {
	var resp models.PaymentResponse
	err := c.do(ctx, call{
		op: "payment", method: http.MethodPost, path: "/payment",
		body: req, idempotencyKey: idempotencyKey,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateRequest persists a custom request and returns its server ID
func (c *Client) CreateRequest(ctx context.Context, req models.CreateRequestRequest, idempotencyKey string) (int64, error) {
	var resp models.CreatedResponse
	err := c.do(ctx, call{
		op: "create_request", method: http.MethodPost, path: "/requests/create",
		body: req, want: http.StatusCreated, idempotencyKey: idempotencyKey,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// SaveMeasurement posts a measurement body to /measurements/{category resource}
func (c *Client) SaveMeasurement(ctx context.Context, category models.Category, body map[string]any) error {
	return c.do(ctx, call{
		op: "save_measurement", method: http.MethodPost, path: "/measurements/" + category.Resource(),
		body: body, want: http.StatusCreated,
	}, nil)
}

func (c *Client) GetRequest(ctx context.Context, requestID int64) (*models.Request, error) {
	var r models.Request
	if err := c.do(ctx, call{op: "get_request", method: http.MethodGet, path: "/requests/" + id(requestID)}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateOrder buys products; the server opens one transaction per tailor
func (c *Client) CreateOrder(ctx context.Context, req models.CreateOrderRequest, idempotencyKey string) (*models.CreateOrderResponse, error) {
	var resp models.CreateOrderResponse
	err := c.do(ctx, call{
		op: "create_order", method: http.MethodPost, path: "/orders/create",
		body: req, want: http.StatusCreated, idempotencyKey: idempotencyKey,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) transactions(ctx context.Context, op, path string) ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := c.do(ctx, call{op: op, method: http.MethodGet, path: path}, &txns); err != nil {
		return nil, err
	}
	return txns, nil
}

func (c *Client) UserRequests(ctx context.Context, userID int64) ([]models.Transaction, error) {
	return c.transactions(ctx, "user_requests", "/requests/get-user-request/"+id(userID))
}

func (c *Client) TailorRequests(ctx context.Context, tailorID int64) ([]models.Transaction, error) {
	return c.transactions(ctx, "tailor_requests", "/requests/get-tailor-request/"+id(tailorID))
}

func (c *Client) UserOrders(ctx context.Context, userID int64) ([]models.Transaction, error) {
	return c.transactions(ctx, "user_orders", "/orders/get-user-order/"+id(userID))
}

func (c *Client) TailorOrders(ctx context.Context, tailorID int64) ([]models.Transaction, error) {
	return c.transactions(ctx, "tailor_orders", "/orders/get-tailor-order/"+id(tailorID))
}

// Kind selects the /requests or /orders family of status endpoints
type Kind string

const (
	KindRequest Kind = "requests"
	KindOrder   Kind = "orders"
)

// UpdateStatus moves a transaction forward; tailors only
func (c *Client) UpdateStatus(ctx context.Context, kind Kind, req models.UpdateStatusRequest) (*models.Transaction, error) {
	var t models.Transaction
	err := c.do(ctx, call{op: "update_status", method: http.MethodPost, path: "/" + string(kind) + "/update-status", body: req}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ConfirmReceived finishes a transaction; clients only
func (c *Client) ConfirmReceived(ctx context.Context, kind Kind, transactionID int64) (*models.Transaction, error) {
	var t models.Transaction
	err := c.do(ctx, call{
		op: "confirm_received", method: http.MethodPost, path: "/" + string(kind) + "/confirm-received",
		body: models.ConfirmReceivedRequest{TransactionID: transactionID},
	}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) AddToCart(ctx context.Context, item models.CartItem) error {
	return c.do(ctx, call{op: "add_to_cart", method: http.MethodPost, path: "/carts/add-to-cart", body: item}, nil)
}

func (c *Client) GetCart(ctx context.Context, userID int64) ([]models.Product, error) {
	var cart models.CartResponse
	if err := c.do(ctx, call{op: "get_cart", method: http.MethodGet, path: "/carts/get-cart/" + id(userID)}, &cart); err != nil {
		return nil, err
	}
	return cart.Products, nil
}

func (c *Client) RemoveFromCart(ctx context.Context, item models.CartItem) error {
	return c.do(ctx, call{op: "remove_from_cart", method: http.MethodDelete, path: "/carts/remove", body: item}, nil)
}
