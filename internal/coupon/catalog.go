package coupon

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

// Catalog holds the promo codes clients can buy with points
type Catalog struct {
	promos map[string]models.Promo
	mu     sync.RWMutex
}

// promoFile is the on-disk YAML layout of a promo catalog
type promoFile struct {
	Promos []struct {
		Code       string `yaml:"code"`
		Discount   int64  `yaml:"discount"`
		PointsCost int64  `yaml:"points_cost"`
	} `yaml:"promos"`
}

// fileLoadResult holds the result of loading a single file
type fileLoadResult struct {
	index  int
	promos []models.Promo
	err    error
}

// Builtin returns the default promo definitions.
func Builtin() []models.Promo {
	return []models.Promo{
		{Code: "TECH15", Discount: decimal.NewFromInt(150), PointsCost: 100},
		{Code: "TECH35", Discount: decimal.NewFromInt(350), PointsCost: 200},
		{Code: "TECH75", Discount: decimal.NewFromInt(750), PointsCost: 500},
	}
}

// NewCatalog creates a catalog holding promos
func NewCatalog(promos ...models.Promo) *Catalog {
	c := &Catalog{promos: make(map[string]models.Promo, len(promos))}
	for _, p := range promos {
		c.promos[p.Code] = p
	}
	return c
}

// NewBuiltinCatalog creates a catalog with the default promos
func NewBuiltinCatalog() *Catalog {
	return NewCatalog(Builtin()...)
}

// LoadFromFiles reads YAML promo files concurrently and replaces the
// catalog's contents. Later files override earlier ones on duplicate codes.
// Returns error if any file fails to load.
func (c *Catalog) LoadFromFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no files provided")
	}

	resultChan := make(chan fileLoadResult, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(index int, filePath string) {
			defer wg.Done()

			promos, err := loadFromFile(ctx, filePath)
			resultChan <- fileLoadResult{index: index, promos: promos, err: err}
		}(i, path)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results maintaining order
	results := make([]fileLoadResult, len(paths))
	for result := range resultChan {
		results[result.index] = result
	}

	for i, result := range results {
		if result.err != nil {
			return fmt.Errorf("failed to load file %d: %w", i+1, result.err)
		}
	}

	promos := make(map[string]models.Promo)
	for _, result := range results {
		for _, p := range result.promos {
			promos[p.Code] = p
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.promos = promos

	return nil
}

func loadFromFile(ctx context.Context, path string) ([]models.Promo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return parsePromos(data)
}

// parsePromos decodes and validates a YAML promo catalog
func parsePromos(data []byte) ([]models.Promo, error) {
	var file promoFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse promo file: %w", err)
	}

	promos := make([]models.Promo, 0, len(file.Promos))
	for i, p := range file.Promos {
		code := strings.TrimSpace(p.Code)
		if code == "" {
			return nil, fmt.Errorf("promo %d: code is required", i+1)
		}
		if p.Discount <= 0 {
			return nil, fmt.Errorf("promo %s: discount must be positive", code)
		}
		if p.PointsCost < 0 {
			return nil, fmt.Errorf("promo %s: points cost must not be negative", code)
		}
		promos = append(promos, models.Promo{
			Code:       code,
			Discount:   decimal.NewFromInt(p.Discount),
			PointsCost: p.PointsCost,
		})
	}

	return promos, nil
}

// IsValid checks if a promo code exists in the catalog. Codes are exact-match.
func (c *Catalog) IsValid(ctx context.Context, code string) bool {
	_, ok := c.Lookup(ctx, code)
	return ok
}

// Lookup returns the promo definition for code.
func (c *Catalog) Lookup(_ context.Context, code string) (models.Promo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.promos[code]
	return p, ok
}

// All returns every promo ordered by points cost, then code.
func (c *Catalog) All() []models.Promo {
	c.mu.RLock()
	promos := make([]models.Promo, 0, len(c.promos))
	for _, p := range c.promos {
		promos = append(promos, p)
	}
	c.mu.RUnlock()

	sort.Slice(promos, func(i, j int) bool {
		if promos[i].PointsCost != promos[j].PointsCost {
			return promos[i].PointsCost < promos[j].PointsCost
		}
		return promos[i].Code < promos[j].Code
	})
	return promos
}

// GetStats returns statistics about loaded promos
func (c *Catalog) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"total_promos": len(c.promos),
	}
}
