package service

import (
	"context"
	"errors"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

// OrderService handles product orders and carts
type OrderService struct {
	products repository.ProductRepository
}

// NewOrderService creates a new order service
func NewOrderService(products repository.ProductRepository) *OrderService {
	return &OrderService{products: products}
}

// CreateOrder buys the listed products, opening one transaction per tailor
func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	// Validate request
	if len(req.ProductIDs) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, id := range req.ProductIDs {
		if id <= 0 {
			return nil, ErrInvalidProduct
		}
	}
	if req.TotalPrice.IsNegative() {
		return nil, ErrInvalidAmount
	}

	status := req.Status
	if status == "" {
		status = models.StatusPending
	}
	if status != models.StatusPending {
		return nil, ErrInvalidStatus
	}

	txns, err := s.products.CreateOrder(ctx, req.UserID, req.ProductIDs, status)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrInvalidProduct
		}
		return nil, err
	}

	resp := &models.CreateOrderResponse{TransactionIDs: make([]int64, len(txns))}
	for i, t := range txns {
		resp.TransactionIDs[i] = t.ID
	}
	return resp, nil
}

// AddToCart puts a product in the user's cart
func (s *OrderService) AddToCart(ctx context.Context, item models.CartItem) error {
	if item.ProductID <= 0 {
		return ErrInvalidProduct
	}
	return s.products.AddToCart(ctx, item.UserID, item.ProductID)
}

// GetCart returns the products in a user's cart
func (s *OrderService) GetCart(ctx context.Context, userID int64) (*models.CartResponse, error) {
	products, err := s.products.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.CartResponse{Products: products}, nil
}

// RemoveFromCart takes a product out of the user's cart
func (s *OrderService) RemoveFromCart(ctx context.Context, item models.CartItem) error {
	return s.products.RemoveFromCart(ctx, item.UserID, item.ProductID)
}
