package repository

import (
	"context"
	"sort"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

// CreateRequest implements RequestRepository
func (s *InMemoryStore) CreateRequest(_ context.Context, req models.Request, status models.TransactionStatus, total models.Money) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[req.UserID]; !ok {
		return 0, ErrUserNotFound
	}
	if _, ok := s.tailors[req.TailorID]; !ok {
		return 0, ErrTailorNotFound
	}

	req.ID = s.nextRequestID
	req.Measurement = nil
	s.nextRequestID++
	s.requests[req.ID] = req

	rec := &transactionRecord{
		Transaction: models.Transaction{
			ID:              s.nextTransactionID,
			TransactionDate: s.now().UTC(),
			UserID:          req.UserID,
			TailorID:        req.TailorID,
			Status:          status,
			TotalPrice:      total,
		},
		requestIDs: []int64{req.ID},
	}
	s.nextTransactionID++
	s.transactions[rec.ID] = rec

	return req.ID, nil
}

// GetRequest returns a request with its measurement, if recorded
func (s *InMemoryStore) GetRequest(_ context.Context, id int64) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requestLocked(id)
	if !ok {
		return nil, ErrRequestNotFound
	}
	return &req, nil
}

func (s *InMemoryStore) requestLocked(id int64) (models.Request, bool) {
	req, ok := s.requests[id]
	if !ok {
		return models.Request{}, false
	}
	if m, ok := s.measurements[id]; ok {
		req.Measurement = copyValues(m)
	}
	return req, true
}

// SaveMeasurement records the measurement of a request once
func (s *InMemoryStore) SaveMeasurement(_ context.Context, requestID int64, category models.Category, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok {
		return ErrRequestNotFound
	}
	if req.Category != category {
		return ErrCategoryMismatch
	}
	if _, exists := s.measurements[requestID]; exists {
		return ErrMeasurementExists
	}
	s.measurements[requestID] = copyValues(values)
	return nil
}

func copyValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// GetTransaction returns a transaction with its products and requests
func (s *InMemoryStore) GetTransaction(_ context.Context, id int64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	t := s.assembleLocked(rec)
	return &t, nil
}

// ListUserTransactions returns the user's transactions of kind, newest first
func (s *InMemoryStore) ListUserTransactions(_ context.Context, userID int64, kind TransactionKind) ([]models.Transaction, error) {
	return s.listTransactions(kind, func(rec *transactionRecord) bool { return rec.UserID == userID }), nil
}

// ListTailorTransactions returns the tailor's transactions of kind, newest first
func (s *InMemoryStore) ListTailorTransactions(_ context.Context, tailorID int64, kind TransactionKind) ([]models.Transaction, error) {
	return s.listTransactions(kind, func(rec *transactionRecord) bool { return rec.TailorID == tailorID }), nil
}

func (s *InMemoryStore) listTransactions(kind TransactionKind, match func(*transactionRecord) bool) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Transaction, 0)
	for _, rec := range s.transactions {
		if !match(rec) || rec.kind() != kind {
			continue
		}
		out = append(out, s.assembleLocked(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// UpdateTransactionStatus moves a transaction along the status lifecycle
func (s *InMemoryStore) UpdateTransactionStatus(_ context.Context, id int64, status models.TransactionStatus) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	if !rec.Status.CanTransition(status) {
		return nil, ErrInvalidTransition
	}
	rec.Status = status
	t := s.assembleLocked(rec)
	return &t, nil
}

// CompleteTransaction implements RequestRepository
func (s *InMemoryStore) CompleteTransaction(_ context.Context, id int64, payout models.Money, points int64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	switch rec.Status {
	case models.StatusFinished:
		return nil, ErrAlreadyFinished
	case models.StatusRejected:
		return nil, ErrInvalidTransition
	}

	tailor, ok := s.tailors[rec.TailorID]
	if !ok {
		return nil, ErrTailorNotFound
	}
	user, ok := s.users[rec.UserID]
	if !ok {
		return nil, ErrUserNotFound
	}

	tailor.Money = tailor.Money.Add(payout)
	s.tailors[tailor.ID] = tailor
	user.Points += points
	s.users[user.ID] = user
	rec.Status = models.StatusFinished

	t := s.assembleLocked(rec)
	return &t, nil
}

func (r *transactionRecord) kind() TransactionKind {
	if len(r.requestIDs) > 0 {
		return KindRequest
	}
	return KindOrder
}

func (s *InMemoryStore) assembleLocked(rec *transactionRecord) models.Transaction {
	t := rec.Transaction
	t.Products = make([]models.Product, 0, len(rec.productIDs))
	for _, id := range rec.productIDs {
		if p, ok := s.products[id]; ok {
			t.Products = append(t.Products, p)
		}
	}
	t.Requests = make([]models.Request, 0, len(rec.requestIDs))
	for _, id := range rec.requestIDs {
		if req, ok := s.requestLocked(id); ok {
			t.Requests = append(t.Requests, req)
		}
	}
	return t
}
