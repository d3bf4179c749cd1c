package models

// Coupon is a promo code owned by a user. Quantity counts remaining uses.
type Coupon struct {
	Code           string `json:"code"`
	DiscountAmount Money  `json:"discount"`
	Quantity       int    `json:"quantity"`
}

// CouponList is the body of GET /coupons/code
type CouponList struct {
	Coupons []Coupon `json:"coupons"`
}

// ExchangeCouponRequest spends points on one use of a promo code
type ExchangeCouponRequest struct {
	UserID int64  `json:"UserID"`
	Code   string `json:"Code"`
}

// ExchangeCouponResponse reports the remaining points and the updated coupon
type ExchangeCouponResponse struct {
	Points int64  `json:"points"`
	Coupon Coupon `json:"coupon"`
}

// Promo defines a code that can be bought with points
type Promo struct {
	Code       string `json:"code"`
	Discount   Money  `json:"discount"`
	PointsCost int64  `json:"pointsCost"`
}
