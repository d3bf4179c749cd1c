package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/service"
)

// RequestHandler handles custom tailoring requests and measurements
type RequestHandler struct {
	requests *service.RequestService
	log      *zap.Logger
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(requests *service.RequestService, log *zap.Logger) *RequestHandler {
	return &RequestHandler{requests: requests, log: log}
}

// Create handles POST /requests/create
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequestRequest
	if !decodeJSON(w, r, &req, h.log) || !requireUser(w, r, req.UserID, h.log) {
		return
	}

	id, err := h.requests.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "create request", h.log)
		return
	}

	h.log.Info("request created",
		zap.Int64("request_id", id),
		zap.Int64("user_id", req.UserID),
		zap.Int64("tailor_id", req.TailorID),
		zap.Int("request_type", req.RequestType),
	)
	WriteJSON(w, http.StatusCreated, models.CreatedResponse{ID: id}, h.log)
}

// GetRequest handles GET /requests/{id}
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.log)
	if !ok {
		return
	}

	req, err := h.requests.GetRequest(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, err, "get request", h.log)
		return
	}
	WriteJSON(w, http.StatusOK, req, h.log)
}

// SaveMeasurement handles POST /measurements/{category}, where category is
// the sub-resource name such as "tops" or "totebags"
func (h *RequestHandler) SaveMeasurement(w http.ResponseWriter, r *http.Request) {
	category, err := models.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "Unknown measurement category", h.log)
		return
	}

	var body map[string]any
	if !decodeJSON(w, r, &body, h.log) {
		return
	}

	if err := h.requests.SaveMeasurement(r.Context(), principal(r), category, body); err != nil {
		writeServiceError(w, err, "save measurement", h.log)
		return
	}
	WriteMessage(w, http.StatusCreated, "Measurement saved", h.log)
}
