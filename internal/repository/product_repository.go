package repository

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

// ListProducts returns all products ordered by ID
func (s *InMemoryStore) ListProducts(_ context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// GetProduct returns a product by its ID
func (s *InMemoryStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

// AddToCart appends productID to the user's cart. Adding twice is a no-op.
func (s *InMemoryStore) AddToCart(_ context.Context, userID, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return ErrUserNotFound
	}
	p, ok := s.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	if !p.IsActive {
		return ErrProductUnavailable
	}
	for _, id := range s.carts[userID] {
		if id == productID {
			return nil
		}
	}
	s.carts[userID] = append(s.carts[userID], productID)
	return nil
}

// GetCart returns the products in the user's cart in insertion order
func (s *InMemoryStore) GetCart(_ context.Context, userID int64) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, ErrUserNotFound
	}
	ids := s.carts[userID]
	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

// RemoveFromCart drops productID from the user's cart
func (s *InMemoryStore) RemoveFromCart(_ context.Context, userID, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeFromCartLocked(userID, productID)
	return nil
}

func (s *InMemoryStore) removeFromCartLocked(userID, productID int64) {
	ids := s.carts[userID]
	kept := ids[:0]
	for _, id := range ids {
		if id != productID {
			kept = append(kept, id)
		}
	}
	s.carts[userID] = kept
}

// CreateOrder implements ProductRepository
func (s *InMemoryStore) CreateOrder(_ context.Context, userID int64, productIDs []int64, status models.TransactionStatus) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, ErrUserNotFound
	}

	// validate everything before mutating
	byTailor := make(map[int64][]models.Product)
	var tailorOrder []int64
	seen := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		p, ok := s.products[id]
		if !ok {
			return nil, ErrProductNotFound
		}
		if !p.IsActive {
			return nil, ErrProductUnavailable
		}
		if _, ok := byTailor[p.TailorID]; !ok {
			tailorOrder = append(tailorOrder, p.TailorID)
		}
		byTailor[p.TailorID] = append(byTailor[p.TailorID], p)
	}

	created := make([]models.Transaction, 0, len(tailorOrder))
	for _, tailorID := range tailorOrder {
		products := byTailor[tailorID]
		rec := &transactionRecord{
			Transaction: models.Transaction{
				ID:              s.nextTransactionID,
				TransactionDate: s.now().UTC(),
				UserID:          userID,
				TailorID:        tailorID,
				Status:          status,
				TotalPrice:      decimal.Zero,
			},
		}
		s.nextTransactionID++

		for _, p := range products {
			p.IsActive = false
			s.products[p.ID] = p
			s.removeFromCartLocked(userID, p.ID)
			rec.productIDs = append(rec.productIDs, p.ID)
			rec.TotalPrice = rec.TotalPrice.Add(p.Price)
		}

		s.transactions[rec.ID] = rec
		created = append(created, s.assembleLocked(rec))
	}

	return created, nil
}
