package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/service"
)

// AuthHandler handles login and session endpoints
type AuthHandler struct {
	auth *service.AuthService
	log  *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

// LoginUser handles POST /login/user
func (h *AuthHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, models.RoleUser)
}

// LoginTailor handles POST /login/tailor
func (h *AuthHandler) LoginTailor(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, models.RoleTailor)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, role models.Role) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req, h.log) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "Email and password are required", h.log)
		return
	}

	resp, err := h.auth.Login(r.Context(), role, req)
	if err != nil {
		writeServiceError(w, err, "login", h.log)
		return
	}

	h.log.Info("login succeeded", zap.String("role", role.String()), zap.String("email", req.Email))
	WriteJSON(w, http.StatusOK, resp, h.log)
}

// Validate handles GET /validate, returning the profile behind the token
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	resp, err := h.auth.Session(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, err, "validate session", h.log)
		return
	}
	WriteJSON(w, http.StatusOK, resp, h.log)
}

// Logout handles GET /logout. Tokens are stateless; the client drops its copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	WriteMessage(w, http.StatusOK, "Logged out", h.log)
}
