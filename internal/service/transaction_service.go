package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

// Payout rules applied when a client confirms receipt
type Payout struct {
	PlatformFeePercent int
	PointsDivisor      int64
}

// DefaultPayout keeps 5% of each transaction and awards a point per 15 spent on requests
var DefaultPayout = Payout{PlatformFeePercent: 5, PointsDivisor: 15}

// TailorAmount is what the tailor receives for gross, rounded up.
func (p Payout) TailorAmount(gross models.Money) models.Money {
	keep := decimal.NewFromInt(int64(100 - p.PlatformFeePercent))
	return gross.Mul(keep).Div(decimal.NewFromInt(100)).Ceil()
}

// Settle computes the tailor payout and the client's points for t.
// Requests are valued at their base price; only requests earn points.
func (p Payout) Settle(t models.Transaction) (models.Money, int64) {
	gross := decimal.Zero
	var points int64
	for _, prod := range t.Products {
		gross = gross.Add(prod.Price)
	}
	for _, req := range t.Requests {
		gross = gross.Add(req.Price)
		if p.PointsDivisor > 0 {
			points += req.Price.IntPart() / p.PointsDivisor
		}
	}
	return p.TailorAmount(gross), points
}

// TransactionService lists transactions and moves them through their lifecycle
type TransactionService struct {
	repo   repository.RequestRepository
	payout Payout
}

// NewTransactionService creates a new transaction service
func NewTransactionService(repo repository.RequestRepository, payout Payout) *TransactionService {
	return &TransactionService{repo: repo, payout: payout}
}

// ListForUser returns the user's transactions of kind
func (s *TransactionService) ListForUser(ctx context.Context, actor Principal, userID int64, kind repository.TransactionKind) ([]models.Transaction, error) {
	if actor.Role != models.RoleUser || actor.ID != userID {
		return nil, ErrForbidden
	}
	return s.repo.ListUserTransactions(ctx, userID, kind)
}

// ListForTailor returns the tailor's transactions of kind
func (s *TransactionService) ListForTailor(ctx context.Context, actor Principal, tailorID int64, kind repository.TransactionKind) ([]models.Transaction, error) {
	if actor.Role != models.RoleTailor || actor.ID != tailorID {
		return nil, ErrForbidden
	}
	return s.repo.ListTailorTransactions(ctx, tailorID, kind)
}

func (s *TransactionService) load(ctx context.Context, id int64, kind repository.TransactionKind) (*models.Transaction, error) {
	t, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	isRequest := t.IsRequest()
	if (kind == repository.KindRequest) != isRequest {
		return nil, repository.ErrTransactionNotFound
	}
	return t, nil
}

// UpdateStatus lets the transaction's tailor move it forward. Finished is
// reserved for the client's confirmation.
func (s *TransactionService) UpdateStatus(ctx context.Context, actor Principal, kind repository.TransactionKind, req models.UpdateStatusRequest) (*models.Transaction, error) {
	if !req.NewStatus.Valid() || req.NewStatus == models.StatusFinished || req.NewStatus == models.StatusPending {
		return nil, ErrInvalidStatus
	}

	t, err := s.load(ctx, req.TransactionID, kind)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleTailor || actor.ID != t.TailorID {
		return nil, ErrForbidden
	}
	return s.repo.UpdateTransactionStatus(ctx, t.ID, req.NewStatus)
}

// ConfirmReceived finishes a transaction for its client, paying the tailor
// and awarding points.
func (s *TransactionService) ConfirmReceived(ctx context.Context, actor Principal, kind repository.TransactionKind, req models.ConfirmReceivedRequest) (*models.Transaction, error) {
	t, err := s.load(ctx, req.TransactionID, kind)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleUser || actor.ID != t.UserID {
		return nil, ErrForbidden
	}
	if t.Status == models.StatusFinished {
		return nil, repository.ErrAlreadyFinished
	}

	payout, points := s.payout.Settle(*t)
	return s.repo.CompleteTransaction(ctx, t.ID, payout, points)
}
