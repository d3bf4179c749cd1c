package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/service"
)

// PaymentHandler handles balance payments
type PaymentHandler struct {
	payments *service.PaymentService
	log      *zap.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *service.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, log: log}
}

// Pay handles POST /payment
func (h *PaymentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentRequest
	if !decodeJSON(w, r, &req, h.log) || !requireUser(w, r, req.UserID, h.log) {
		return
	}

	resp, err := h.payments.Pay(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "payment", h.log)
		return
	}

	h.log.Info("payment processed",
		zap.Int64("user_id", req.UserID),
		zap.String("amount", req.TotalAmount.String()),
		zap.String("promo_code", req.PromoCode),
		zap.String("payment_id", resp.PaymentID),
	)
	WriteJSON(w, http.StatusOK, resp, h.log)
}
