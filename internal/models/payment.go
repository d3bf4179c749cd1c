package models

// PaymentMethodTailorPay debits the client's marketplace balance
const PaymentMethodTailorPay = "TailorPay"

// PaymentRequest is the body of POST /payment
type PaymentRequest struct {
	UserID        int64  `json:"UserID"`
	TotalAmount   Money  `json:"TotalAmount"`
	PromoCode     string `json:"PromoCode,omitempty"`
	PaymentMethod string `json:"PaymentMethod"`
}

// PaymentResponse acknowledges a successful charge
type PaymentResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PaymentID string `json:"paymentId"`
}

// PricingInfo is published by GET /pricing so clients quote with the server's fees
type PricingInfo struct {
	ShippingFee        Money `json:"shippingFee"`
	PlatformFeePercent int   `json:"platformFeePercent"`
	PointsDivisor      int64 `json:"pointsDivisor"`
}
