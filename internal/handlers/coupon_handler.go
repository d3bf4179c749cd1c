package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/service"
)

// PromoValidator is the interface for promo code validation
type PromoValidator interface {
	IsValid(ctx context.Context, code string) bool
	GetStats() map[string]interface{}
}

// CouponHandler handles HTTP requests for coupons and promos
type CouponHandler struct {
	coupons   *service.CouponService
	validator PromoValidator
	log       *zap.Logger
}

// NewCouponHandler creates a new CouponHandler
func NewCouponHandler(coupons *service.CouponService, validator PromoValidator, log *zap.Logger) *CouponHandler {
	return &CouponHandler{
		coupons:   coupons,
		validator: validator,
		log:       log,
	}
}

// ListCoupons handles GET /coupons/code?userId=
func (h *CouponHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || userID <= 0 {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.log)
		return
	}
	if !requireUser(w, r, userID, h.log) {
		return
	}

	list, err := h.coupons.ListCoupons(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "list coupons", h.log)
		return
	}
	WriteJSON(w, http.StatusOK, list, h.log)
}

// Exchange handles POST /coupons/exchange
func (h *CouponHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req models.ExchangeCouponRequest
	if !decodeJSON(w, r, &req, h.log) || !requireUser(w, r, req.UserID, h.log) {
		return
	}

	resp, err := h.coupons.Exchange(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "exchange coupon", h.log)
		return
	}
	h.log.Info("coupon exchanged", zap.Int64("user_id", req.UserID), zap.String("code", req.Code))
	WriteJSON(w, http.StatusOK, resp, h.log)
}

// Promos handles GET /coupons/promos
func (h *CouponHandler) Promos(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.coupons.Promos(), h.log)
}

// ValidatePromo handles GET /coupons/validate/{code}
func (h *CouponHandler) ValidatePromo(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if h.validator.IsValid(r.Context(), code) {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"valid":  true,
			"coupon": code,
		}, h.log)
		return
	}
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"valid":   false,
		"coupon":  code,
		"message": "Coupon not found or invalid",
	}, h.log)
}

// GetStats handles GET /coupons/stats
func (h *CouponHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.validator.GetStats(), h.log)
}
