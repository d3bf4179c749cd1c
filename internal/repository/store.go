package repository

import (
	"context"
	"errors"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTailorNotFound      = errors.New("tailor not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductUnavailable  = errors.New("product is no longer available")
	ErrRequestNotFound     = errors.New("request not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCouponNotOwned      = errors.New("coupon not owned by user")
	ErrCouponExhausted     = errors.New("coupon has no uses left")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrAlreadyFinished     = errors.New("transaction already finished")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrMeasurementExists   = errors.New("measurement already recorded for request")
	ErrCategoryMismatch    = errors.New("measurement category does not match request")
	ErrDuplicateEmail      = errors.New("email already registered")
)

// TransactionKind separates custom-request transactions from product orders
type TransactionKind int

const (
	KindRequest TransactionKind = iota
	KindOrder
)

// UserRepository defines data access for client accounts
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error)
	TopUp(ctx context.Context, userID int64, amount models.Money) (*models.User, error)
}

// TailorRepository defines data access for tailor accounts
type TailorRepository interface {
	GetTailor(ctx context.Context, id int64) (*models.Tailor, error)
	GetTailorByEmail(ctx context.Context, email string) (*models.Tailor, error)
	ListTailors(ctx context.Context) ([]models.Tailor, error)
}

// ProductRepository defines data access for products, carts and orders
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)

	AddToCart(ctx context.Context, userID, productID int64) error
	GetCart(ctx context.Context, userID int64) ([]models.Product, error)
	RemoveFromCart(ctx context.Context, userID, productID int64) error

	// CreateOrder marks the products inactive, drops them from the user's
	// cart and opens one transaction per tailor, atomically.
	CreateOrder(ctx context.Context, userID int64, productIDs []int64, status models.TransactionStatus) ([]models.Transaction, error)
}

// CouponRepository defines data access for owned coupons and payments
type CouponRepository interface {
	ListCoupons(ctx context.Context, userID int64) ([]models.Coupon, error)

	// ExchangeCoupon spends promo.PointsCost points for one use of promo.
	ExchangeCoupon(ctx context.Context, userID int64, promo models.Promo) (int64, models.Coupon, error)

	// Charge debits amount from the user's balance and, when promoCode is set,
	// consumes one use of it. Both happen or neither does.
	Charge(ctx context.Context, userID int64, amount models.Money, promoCode string) error
}

// RequestRepository defines data access for custom requests and transactions
type RequestRepository interface {
	// CreateRequest stores req and a transaction holding it. Returns the request ID.
	CreateRequest(ctx context.Context, req models.Request, status models.TransactionStatus, total models.Money) (int64, error)
	GetRequest(ctx context.Context, id int64) (*models.Request, error)
	SaveMeasurement(ctx context.Context, requestID int64, category models.Category, values map[string]any) error

	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	ListUserTransactions(ctx context.Context, userID int64, kind TransactionKind) ([]models.Transaction, error)
	ListTailorTransactions(ctx context.Context, tailorID int64, kind TransactionKind) ([]models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id int64, status models.TransactionStatus) (*models.Transaction, error)

	// CompleteTransaction finishes a transaction, credits payout to the
	// tailor and points to the user.
	CompleteTransaction(ctx context.Context, id int64, payout models.Money, points int64) (*models.Transaction, error)
}

// Store is the full persistence surface of the API
type Store interface {
	UserRepository
	TailorRepository
	ProductRepository
	CouponRepository
	RequestRepository
}
