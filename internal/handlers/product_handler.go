package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/service"
)

// CatalogHandler handles tailor and product listing requests
type CatalogHandler struct {
	service *service.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service *service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger,
	}
}

// ListTailors handles GET /tailors/get-all?query=&speciality=
func (h *CatalogHandler) ListTailors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	tailors, err := h.service.SearchTailors(r.Context(), q.Get("query"), q.Get("speciality"))
	if err != nil {
		writeServiceError(w, err, "list tailors", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, tailors, h.logger)
}

// GetTailor handles GET /tailors/{id}
// - 200: successful operation
// - 400: Invalid ID supplied
// - 404: Tailor not found
func (h *CatalogHandler) GetTailor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	tailor, err := h.service.GetTailor(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get tailor", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, tailor, h.logger)
}

// ListProducts handles GET /products/get-all?query=
// Only products still for sale are returned.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeServiceError(w, err, "list products", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, products, h.logger)
}
