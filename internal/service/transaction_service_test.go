package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

var (
	client1 = Principal{Role: models.RoleUser, ID: 1}
	tailor1 = Principal{Role: models.RoleTailor, ID: 1}
)

func TestPayout_TailorAmount(t *testing.T) {
	tests := []struct {
		gross int64
		want  int64
	}{
		{gross: 100, want: 95},
		{gross: 101, want: 96},
		{gross: 450, want: 428},
		{gross: 1200, want: 1140},
		{gross: 0, want: 0},
	}

	for _, tt := range tests {
		got := DefaultPayout.TailorAmount(decimal.NewFromInt(tt.gross))
		assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "gross %d: got %s", tt.gross, got)
	}
}

func TestPayout_Settle(t *testing.T) {
	txn := models.Transaction{
		Products: []models.Product{{Price: decimal.NewFromInt(450)}},
		Requests: []models.Request{{Price: decimal.NewFromInt(100)}, {Price: decimal.NewFromInt(29)}},
	}

	amount, points := DefaultPayout.Settle(txn)
	// 579 * 0.95 = 550.05
	assert.True(t, amount.Equal(decimal.NewFromInt(551)), "amount = %s", amount)
	assert.Equal(t, int64(6+1), points)
}

func newRequestTransaction(t *testing.T, store *repository.InMemoryStore, category models.Category) models.Transaction {
	t.Helper()
	ctx := context.Background()

	_, err := NewRequestService(store, store).Create(ctx, models.CreateRequestRequest{
		UserID: 1, TailorID: 1, Desc: "made to measure", RequestType: category.Code(), TotalPrice: decimal.NewFromInt(110),
	})
	require.NoError(t, err)

	txns, err := store.ListUserTransactions(ctx, 1, repository.KindRequest)
	require.NoError(t, err)
	require.NotEmpty(t, txns)
	return txns[0]
}

func TestTransactionService_ConfirmReceived(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSeededInMemoryStore()
	svc := NewTransactionService(store, DefaultPayout)
	txn := newRequestTransaction(t, store, models.CategoryTop)

	done, err := svc.ConfirmReceived(ctx, client1, repository.KindRequest, models.ConfirmReceivedRequest{TransactionID: txn.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, done.Status)

	tailor, err := store.GetTailor(ctx, 1)
	require.NoError(t, err)
	assert.True(t, tailor.Money.Equal(decimal.NewFromInt(95)), "tailor money = %s", tailor.Money)

	user, err := store.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(250+6), user.Points)

	_, err = svc.ConfirmReceived(ctx, client1, repository.KindRequest, models.ConfirmReceivedRequest{TransactionID: txn.ID})
	assert.ErrorIs(t, err, repository.ErrAlreadyFinished)
}

func TestTransactionService_ConfirmReceivedGuards(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSeededInMemoryStore()
	svc := NewTransactionService(store, DefaultPayout)
	txn := newRequestTransaction(t, store, models.CategorySuit)
	req := models.ConfirmReceivedRequest{TransactionID: txn.ID}

	_, err := svc.ConfirmReceived(ctx, Principal{Role: models.RoleUser, ID: 2}, repository.KindRequest, req)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ConfirmReceived(ctx, tailor1, repository.KindRequest, req)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ConfirmReceived(ctx, client1, repository.KindOrder, req)
	assert.ErrorIs(t, err, repository.ErrTransactionNotFound)

	_, err = svc.ConfirmReceived(ctx, client1, repository.KindRequest, models.ConfirmReceivedRequest{TransactionID: 999})
	assert.ErrorIs(t, err, repository.ErrTransactionNotFound)
}

func TestTransactionService_OrderPayoutEarnsNoPoints(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSeededInMemoryStore()
	svc := NewTransactionService(store, DefaultPayout)

	resp, err := NewOrderService(store).CreateOrder(ctx, models.CreateOrderRequest{UserID: 1, ProductIDs: []int64{1}})
	require.NoError(t, err)

	_, err = svc.ConfirmReceived(ctx, client1, repository.KindOrder, models.ConfirmReceivedRequest{TransactionID: resp.TransactionIDs[0]})
	require.NoError(t, err)

	tailor, _ := store.GetTailor(ctx, 1)
	assert.True(t, tailor.Money.Equal(decimal.NewFromInt(428)), "tailor money = %s", tailor.Money)
	user, _ := store.GetUser(ctx, 1)
	assert.Equal(t, int64(250), user.Points)
}

func TestTransactionService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSeededInMemoryStore()
	svc := NewTransactionService(store, DefaultPayout)
	txn := newRequestTransaction(t, store, models.CategoryTop)

	update := func(actor Principal, status models.TransactionStatus) error {
		_, err := svc.UpdateStatus(ctx, actor, repository.KindRequest, models.UpdateStatusRequest{TransactionID: txn.ID, NewStatus: status})
		return err
	}

	assert.ErrorIs(t, update(client1, models.StatusAccepted), ErrForbidden)
	assert.ErrorIs(t, update(Principal{Role: models.RoleTailor, ID: 2}, models.StatusAccepted), ErrForbidden)
	assert.ErrorIs(t, update(tailor1, models.StatusFinished), ErrInvalidStatus)
	assert.ErrorIs(t, update(tailor1, "Lost"), ErrInvalidStatus)
	assert.ErrorIs(t, update(tailor1, models.StatusShipped), repository.ErrInvalidTransition)

	for _, s := range []models.TransactionStatus{models.StatusAccepted, models.StatusInProgress, models.StatusShipped} {
		require.NoError(t, update(tailor1, s), s)
	}

	got, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, got.Status)
}

func TestTransactionService_List(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSeededInMemoryStore()
	svc := NewTransactionService(store, DefaultPayout)
	newRequestTransaction(t, store, models.CategoryTop)

	txns, err := svc.ListForUser(ctx, client1, 1, repository.KindRequest)
	require.NoError(t, err)
	assert.Len(t, txns, 1)

	txns, err = svc.ListForTailor(ctx, tailor1, 1, repository.KindRequest)
	require.NoError(t, err)
	assert.Len(t, txns, 1)

	_, err = svc.ListForUser(ctx, client1, 2, repository.KindRequest)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ListForTailor(ctx, client1, 1, repository.KindOrder)
	assert.ErrorIs(t, err, ErrForbidden)
}
