package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/middleware"
	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
	"github.com/Lixing-Zhang/tailortech/internal/service"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst, writing a 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, log *zap.Logger) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		log.Debug("failed to decode request body", zap.String("path", r.URL.Path), zap.Error(err))
		WriteError(w, http.StatusBadRequest, "Invalid request body", log)
		return false
	}
	return true
}

// pathID parses a positive int64 URL parameter
func pathID(w http.ResponseWriter, r *http.Request, name string, log *zap.Logger) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", log)
		return 0, false
	}
	return id, true
}

func principal(r *http.Request) service.Principal {
	p, _ := middleware.PrincipalFromContext(r.Context())
	return p
}

// requireUser allows the call only for the client whose ID is userID
func requireUser(w http.ResponseWriter, r *http.Request, userID int64, log *zap.Logger) bool {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || p.Role != models.RoleUser || p.ID != userID {
		WriteError(w, http.StatusForbidden, "Forbidden", log)
		return false
	}
	return true
}

type errorMapping struct {
	err     error
	status  int
	message string
}

// order matters: wrapped service errors are matched before their causes
var errorMappings = []errorMapping{
	{repository.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{repository.ErrTailorNotFound, http.StatusNotFound, "Tailor not found"},
	{repository.ErrProductNotFound, http.StatusNotFound, "Product not found"},
	{repository.ErrRequestNotFound, http.StatusNotFound, "Request not found"},
	{repository.ErrTransactionNotFound, http.StatusNotFound, "Transaction not found"},
	{repository.ErrInsufficientBalance, http.StatusBadRequest, "Insufficient balance"},
	{repository.ErrInsufficientPoints, http.StatusBadRequest, "Insufficient points"},
	{repository.ErrCouponNotOwned, http.StatusBadRequest, "Coupon not found"},
	{repository.ErrCouponExhausted, http.StatusBadRequest, "Coupon has no uses left"},
	{repository.ErrAlreadyFinished, http.StatusBadRequest, "Transaction already finished"},
	{repository.ErrInvalidTransition, http.StatusBadRequest, "Invalid status transition"},
	{repository.ErrProductUnavailable, http.StatusConflict, "Product is no longer available"},
	{repository.ErrMeasurementExists, http.StatusConflict, "Measurement already recorded"},
	{repository.ErrDuplicateEmail, http.StatusConflict, "Email already registered"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "Unauthorized: invalid or expired token"},
	{service.ErrForbidden, http.StatusForbidden, "Forbidden"},
}

var validationErrors = []error{
	service.ErrInvalidAmount,
	service.ErrInvalidTopUp,
	service.ErrInvalidPaymentMethod,
	service.ErrInvalidCoupon,
	service.ErrInvalidCategory,
	service.ErrInvalidRequest,
	service.ErrMissingDescription,
	service.ErrInvalidStatus,
	service.ErrEmptyOrder,
	service.ErrInvalidProduct,
}

// writeServiceError maps service and repository errors to HTTP responses
func writeServiceError(w http.ResponseWriter, err error, op string, log *zap.Logger) {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			log.Info(op+" rejected", zap.Error(err))
			WriteError(w, http.StatusBadRequest, err.Error(), log)
			return
		}
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			log.Info(op+" failed", zap.Error(err))
			WriteError(w, m.status, m.message, log)
			return
		}
	}

	log.Error(op+" failed", zap.Error(err))
	WriteError(w, http.StatusInternalServerError, "Internal server error", log)
}
