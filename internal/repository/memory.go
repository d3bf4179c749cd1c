package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

// InMemoryStore implements Store with mutex-guarded maps.
// Values are copied in and out so callers never share state with the store.
type InMemoryStore struct {
	mu sync.Mutex

	users    map[int64]models.User
	tailors  map[int64]models.Tailor
	products map[int64]models.Product
	coupons  map[int64]map[string]models.Coupon
	carts    map[int64][]int64

	requests     map[int64]models.Request
	measurements map[int64]map[string]any
	transactions map[int64]*transactionRecord

	nextRequestID     int64
	nextTransactionID int64

	now func() time.Time
}

type transactionRecord struct {
	models.Transaction
	productIDs []int64
	requestIDs []int64
}

// NewInMemoryStore creates a store holding seed
func NewInMemoryStore(seed Seed) *InMemoryStore {
	s := &InMemoryStore{
		users:             make(map[int64]models.User, len(seed.Users)),
		tailors:           make(map[int64]models.Tailor, len(seed.Tailors)),
		products:          make(map[int64]models.Product, len(seed.Products)),
		coupons:           make(map[int64]map[string]models.Coupon),
		carts:             make(map[int64][]int64),
		requests:          make(map[int64]models.Request),
		measurements:      make(map[int64]map[string]any),
		transactions:      make(map[int64]*transactionRecord),
		nextRequestID:     1,
		nextTransactionID: 1,
		now:               time.Now,
	}

	for _, u := range seed.Users {
		s.users[u.ID] = u
	}
	for _, t := range seed.Tailors {
		t.Specialities = append([]models.Speciality(nil), t.Specialities...)
		s.tailors[t.ID] = t
	}
	for _, p := range seed.Products {
		s.products[p.ID] = p
	}
	for userID, owned := range seed.Coupons {
		m := make(map[string]models.Coupon, len(owned))
		for _, c := range owned {
			m[c.Code] = c
		}
		s.coupons[userID] = m
	}

	return s
}

// NewSeededInMemoryStore creates a store with the demo data
func NewSeededInMemoryStore() *InMemoryStore {
	return NewInMemoryStore(DefaultSeed())
}

// GetUser returns a user by ID
func (s *InMemoryStore) GetUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// GetUserByEmail matches email case-insensitively
func (s *InMemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// UpdateProfile overwrites the non-empty contact fields of a user
func (s *InMemoryStore) UpdateProfile(_ context.Context, update models.ProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[update.ID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if update.Name != "" {
		u.Name = update.Name
	}
	if update.PhoneNumber != "" {
		u.PhoneNumber = update.PhoneNumber
	}
	if update.Address != "" {
		u.Address = update.Address
	}
	s.users[u.ID] = u
	return &u, nil
}

// TopUp adds amount to a user's balance
func (s *InMemoryStore) TopUp(_ context.Context, userID int64, amount models.Money) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Money = u.Money.Add(amount)
	s.users[userID] = u
	return &u, nil
}

// GetTailor returns a tailor by ID
func (s *InMemoryStore) GetTailor(_ context.Context, id int64) (*models.Tailor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tailors[id]
	if !ok {
		return nil, ErrTailorNotFound
	}
	return copyTailor(t), nil
}

// GetTailorByEmail matches email case-insensitively
func (s *InMemoryStore) GetTailorByEmail(_ context.Context, email string) (*models.Tailor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tailors {
		if strings.EqualFold(t.Email, email) {
			return copyTailor(t), nil
		}
	}
	return nil, ErrTailorNotFound
}

// ListTailors returns all tailors ordered by ID
func (s *InMemoryStore) ListTailors(_ context.Context) ([]models.Tailor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tailors := make([]models.Tailor, 0, len(s.tailors))
	for _, t := range s.tailors {
		tailors = append(tailors, *copyTailor(t))
	}
	sort.Slice(tailors, func(i, j int) bool { return tailors[i].ID < tailors[j].ID })
	return tailors, nil
}

func copyTailor(t models.Tailor) *models.Tailor {
	t.Specialities = append([]models.Speciality(nil), t.Specialities...)
	return &t
}
