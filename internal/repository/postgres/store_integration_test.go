//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Lixing-Zhang/tailortech/internal/database"
	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "tailortech",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/tailortech?sslmode=disable", host, port.Port())
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.PingContext(ctx))

	require.NoError(t, database.Migrate(db))

	store := NewStore(db)
	require.NoError(t, store.Seed(ctx, repository.DefaultSeed()))
	return store
}

func TestStore_Integration(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	t.Run("tailors carry specialities", func(t *testing.T) {
		tailors, err := store.ListTailors(ctx)
		require.NoError(t, err)
		require.Len(t, tailors, 3)
		sp, ok := tailors[0].SpecialityFor(models.CategoryTop)
		require.True(t, ok)
		assert.True(t, sp.Price.Equal(decimal.NewFromInt(100)))
	})

	t.Run("charge consumes coupon once", func(t *testing.T) {
		require.NoError(t, store.Charge(ctx, 1, decimal.NewFromInt(10), "TECH15"))
		assert.ErrorIs(t, store.Charge(ctx, 1, decimal.NewFromInt(10), "TECH15"), repository.ErrCouponNotOwned)

		u, err := store.GetUser(ctx, 1)
		require.NoError(t, err)
		assert.True(t, u.Money.Equal(decimal.NewFromInt(1990)), "money = %s", u.Money)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		err := store.Charge(ctx, 2, decimal.NewFromInt(51), "")
		assert.ErrorIs(t, err, repository.ErrInsufficientBalance)
	})

	t.Run("concurrent charges never overdraw", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = store.Charge(ctx, 2, decimal.NewFromInt(10), "")
			}()
		}
		wg.Wait()

		u, err := store.GetUser(ctx, 2)
		require.NoError(t, err)
		assert.False(t, u.Money.IsNegative())
	})

	t.Run("request lifecycle", func(t *testing.T) {
		reqID, err := store.CreateRequest(ctx, models.Request{
			UserID: 1, TailorID: 1, Name: "Shirt", Description: "Linen", Price: decimal.NewFromInt(100), Category: models.CategoryTop,
		}, models.StatusPending, decimal.NewFromInt(110))
		require.NoError(t, err)

		require.NoError(t, store.SaveMeasurement(ctx, reqID, models.CategoryTop, map[string]any{"neck": "38", "collar": true}))
		assert.ErrorIs(t, store.SaveMeasurement(ctx, reqID, models.CategoryTop, map[string]any{}), repository.ErrMeasurementExists)

		txns, err := store.ListUserTransactions(ctx, 1, repository.KindRequest)
		require.NoError(t, err)
		require.NotEmpty(t, txns)
		txn := txns[0]
		require.Len(t, txn.Requests, 1)
		assert.Equal(t, "38", txn.Requests[0].Measurement["neck"])

		done, err := store.CompleteTransaction(ctx, txn.ID, decimal.NewFromInt(95), 6)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFinished, done.Status)

		_, err = store.CompleteTransaction(ctx, txn.ID, decimal.NewFromInt(95), 6)
		assert.ErrorIs(t, err, repository.ErrAlreadyFinished)
	})

	t.Run("unknown tailor", func(t *testing.T) {
		_, err := store.CreateRequest(ctx, models.Request{
			UserID: 1, TailorID: 999, Name: "x", Price: decimal.NewFromInt(1), Category: models.CategoryTop,
		}, models.StatusPending, decimal.NewFromInt(11))
		assert.ErrorIs(t, err, repository.ErrTailorNotFound)
	})

	t.Run("order splits per tailor", func(t *testing.T) {
		require.NoError(t, store.AddToCart(ctx, 1, 1))
		require.NoError(t, store.AddToCart(ctx, 1, 3))

		txns, err := store.CreateOrder(ctx, 1, []int64{1, 3}, models.StatusPending)
		require.NoError(t, err)
		assert.Len(t, txns, 2)

		cart, err := store.GetCart(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, cart)

		_, err = store.CreateOrder(ctx, 1, []int64{1}, models.StatusPending)
		assert.ErrorIs(t, err, repository.ErrProductUnavailable)
	})
}
