package coupon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuiltinCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewBuiltinCatalog()

	tests := []struct {
		code     string
		discount int64
		points   int64
	}{
		{"TECH15", 150, 100},
		{"TECH35", 350, 200},
		{"TECH75", 750, 500},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			p, ok := c.Lookup(ctx, tt.code)
			require.True(t, ok)
			assert.True(t, p.Discount.Equal(decimal.NewFromInt(tt.discount)))
			assert.Equal(t, tt.points, p.PointsCost)
			assert.True(t, c.IsValid(ctx, tt.code))
		})
	}

	assert.False(t, c.IsValid(ctx, "tech15"))
	assert.False(t, c.IsValid(ctx, ""))
}

func TestCatalog_All_Ordered(t *testing.T) {
	all := NewBuiltinCatalog().All()
	require.Len(t, all, 3)
	assert.Equal(t, "TECH15", all[0].Code)
	assert.Equal(t, "TECH75", all[2].Code)
}

func TestCatalog_LoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	file1 := writeFile(t, dir, "base.yaml", `
promos:
  - code: SPRING10
    discount: 10
    points_cost: 20
  - code: TECH15
    discount: 150
    points_cost: 100
`)
	file2 := writeFile(t, dir, "override.yaml", `
promos:
  - code: TECH15
    discount: 200
    points_cost: 120
`)

	c := NewBuiltinCatalog()
	require.NoError(t, c.LoadFromFiles(context.Background(), []string{file1, file2}))

	ctx := context.Background()
	assert.True(t, c.IsValid(ctx, "SPRING10"))
	assert.False(t, c.IsValid(ctx, "TECH75"), "loading replaces the builtin set")

	p, ok := c.Lookup(ctx, "TECH15")
	require.True(t, ok)
	assert.True(t, p.Discount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, int64(120), p.PointsCost)

	assert.Equal(t, 2, c.GetStats()["total_promos"])
}

func TestCatalog_LoadFromFiles_Errors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", "promos:\n  - code: A\n    discount: 5\n    points_cost: 1\n")

	tests := []struct {
		name  string
		paths []string
	}{
		{"no files", nil},
		{"missing file", []string{good, filepath.Join(dir, "nope.yaml")}},
		{"zero discount", []string{writeFile(t, dir, "zero.yaml", "promos:\n  - code: Z\n    discount: 0\n")}},
		{"blank code", []string{writeFile(t, dir, "blank.yaml", "promos:\n  - code: ' '\n    discount: 5\n")}},
		{"bad yaml", []string{writeFile(t, dir, "bad.yaml", "promos: [")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewBuiltinCatalog()
			assert.Error(t, c.LoadFromFiles(context.Background(), tt.paths))
			assert.True(t, c.IsValid(context.Background(), "TECH15"), "failed load keeps previous contents")
		})
	}
}
