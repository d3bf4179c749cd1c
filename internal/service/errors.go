package service

import "errors"

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrForbidden            = errors.New("not allowed to act on this resource")
	ErrInvalidAmount        = errors.New("amount must not be negative")
	ErrInvalidTopUp         = errors.New("top-up amount must be positive")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidCoupon        = errors.New("coupon code is not valid")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrMissingDescription   = errors.New("please provide details for your tailoring request")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrEmptyOrder           = errors.New("order must contain at least one item")
	ErrInvalidProduct       = errors.New("invalid product")
)
