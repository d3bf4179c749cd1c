package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/service"
)

// UserHandler handles client profile endpoints
type UserHandler struct {
	users *service.UserService
	log   *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// GetUser handles GET /users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.log)
	if !ok || !requireUser(w, r, id, h.log) {
		return
	}

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get user", h.log)
		return
	}
	WriteJSON(w, http.StatusOK, user, h.log)
}

// UpdateProfile handles POST /users/update
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdate
	if !decodeJSON(w, r, &req, h.log) || !requireUser(w, r, req.ID, h.log) {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "update profile", h.log)
		return
	}
	WriteJSON(w, http.StatusOK, user, h.log)
}

// TopUp handles POST /users/topup/{id}
func (h *UserHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.log)
	if !ok || !requireUser(w, r, id, h.log) {
		return
	}
	var req models.TopUpRequest
	if !decodeJSON(w, r, &req, h.log) {
		return
	}

	user, err := h.users.TopUp(r.Context(), id, req.Amount)
	if err != nil {
		writeServiceError(w, err, "top up", h.log)
		return
	}
	h.log.Info("balance topped up", zap.Int64("user_id", id), zap.String("amount", req.Amount.String()))
	WriteJSON(w, http.StatusOK, user, h.log)
}
