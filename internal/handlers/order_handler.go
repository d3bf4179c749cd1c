package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/service"
)

// OrderHandler handles product orders and carts
type OrderHandler struct {
	orderService *service.OrderService
	log          *zap.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

// CreateOrder handles POST /orders/create
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if !decodeJSON(w, r, &req, h.log) || !requireUser(w, r, req.UserID, h.log) {
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "create order", h.log)
		return
	}

	WriteJSON(w, http.StatusCreated, order, h.log)
	h.log.Info("order created successfully",
		zap.Int64("user_id", req.UserID),
		zap.Int("items_count", len(req.ProductIDs)),
		zap.Int64s("transaction_ids", order.TransactionIDs),
	)
}

// AddToCart handles POST /carts/add-to-cart
func (h *OrderHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var item models.CartItem
	if !decodeJSON(w, r, &item, h.log) || !requireUser(w, r, item.UserID, h.log) {
		return
	}

	if err := h.orderService.AddToCart(r.Context(), item); err != nil {
		writeServiceError(w, err, "add to cart", h.log)
		return
	}
	WriteMessage(w, http.StatusOK, "Product added to cart", h.log)
}

// GetCart handles GET /carts/get-cart/{id}
func (h *OrderHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.log)
	if !ok || !requireUser(w, r, id, h.log) {
		return
	}

	cart, err := h.orderService.GetCart(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get cart", h.log)
		return
	}
	WriteJSON(w, http.StatusOK, cart, h.log)
}

// RemoveFromCart handles DELETE /carts/remove
func (h *OrderHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var item models.CartItem
	if !decodeJSON(w, r, &item, h.log) || !requireUser(w, r, item.UserID, h.log) {
		return
	}

	if err := h.orderService.RemoveFromCart(r.Context(), item); err != nil {
		writeServiceError(w, err, "remove from cart", h.log)
		return
	}
	WriteMessage(w, http.StatusOK, "Product removed from cart", h.log)
}
