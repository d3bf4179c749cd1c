package service

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

// CatalogService answers tailor and product queries
type CatalogService struct {
	tailors  repository.TailorRepository
	products repository.ProductRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(tailors repository.TailorRepository, products repository.ProductRepository) *CatalogService {
	return &CatalogService{tailors: tailors, products: products}
}

func contains(haystack, needle string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(haystack), fold.String(needle))
}

// SearchTailors returns tailors whose name or address matches query and who
// offer speciality. Empty arguments match everything.
func (s *CatalogService) SearchTailors(ctx context.Context, query, speciality string) ([]models.Tailor, error) {
	var (
		category    models.Category
		filterByCat bool
	)
	if strings.TrimSpace(speciality) != "" {
		c, err := models.ParseCategory(speciality)
		if err != nil {
			return nil, ErrInvalidCategory
		}
		category, filterByCat = c, true
	}

	tailors, err := s.tailors.ListTailors(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	out := make([]models.Tailor, 0, len(tailors))
	for _, t := range tailors {
		if query != "" && !contains(t.Name, query) && !contains(t.Address, query) {
			continue
		}
		if filterByCat {
			if _, ok := t.SpecialityFor(category); !ok {
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}

// GetTailor returns a tailor by ID
func (s *CatalogService) GetTailor(ctx context.Context, id int64) (*models.Tailor, error) {
	return s.tailors.GetTailor(ctx, id)
}

// ListProducts returns active products whose name or description matches query
func (s *CatalogService) ListProducts(ctx context.Context, query string) ([]models.Product, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if !p.IsActive {
			continue
		}
		if query != "" && !contains(p.Name, query) && !contains(p.Description, query) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
