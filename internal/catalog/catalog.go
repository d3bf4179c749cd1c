// Package catalog answers tailor and product queries for the client application.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

// API is the part of the marketplace client the catalog reads from
type API interface {
	ListTailors(ctx context.Context, query, speciality string) ([]models.Tailor, error)
	GetTailor(ctx context.Context, tailorID int64) (*models.Tailor, error)
	ListProducts(ctx context.Context, query string) ([]models.Product, error)
	UserRequests(ctx context.Context, userID int64) ([]models.Transaction, error)
	UserOrders(ctx context.Context, userID int64) ([]models.Transaction, error)
}

// Query filters a listing. A zero Speciality matches every category.
type Query struct {
	Text       string
	Speciality models.Category
}

// Service reads the catalog through the API
type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

// SearchTailors lists tailors matching q
func (s *Service) SearchTailors(ctx context.Context, q Query) ([]models.Tailor, error) {
	var speciality string
	if q.Speciality != 0 {
		if !q.Speciality.Valid() {
			return nil, fmt.Errorf("search tailors: %w", models.ErrUnknownCategory)
		}
		speciality = q.Speciality.String()
	}

	tailors, err := s.api.ListTailors(ctx, strings.TrimSpace(q.Text), speciality)
	if err != nil {
		return nil, fmt.Errorf("search tailors: %w", err)
	}
	return tailors, nil
}

// Tailor returns one tailor with its specialities
func (s *Service) Tailor(ctx context.Context, id int64) (*models.Tailor, error) {
	t, err := s.api.GetTailor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get tailor %d: %w", id, err)
	}
	return t, nil
}

// ListProducts lists products matching q.Text. Speciality is ignored.
func (s *Service) ListProducts(ctx context.Context, q Query) ([]models.Product, error) {
	products, err := s.api.ListProducts(ctx, strings.TrimSpace(q.Text))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Specialities returns a copy of the tailor's offers
func Specialities(t models.Tailor) []models.Speciality {
	out := make([]models.Speciality, len(t.Specialities))
	copy(out, t.Specialities)
	return out
}

// SpecialityFor returns the tailor's offer for c
func SpecialityFor(t models.Tailor, c models.Category) (models.Speciality, bool) {
	return t.SpecialityFor(c)
}
