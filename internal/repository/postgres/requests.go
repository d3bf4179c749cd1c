package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Lixing-Zhang/tailortech/internal/database"
	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

// CreateRequest implements repository.RequestRepository
func (s *Store) CreateRequest(ctx context.Context, req models.Request, status models.TransactionStatus, total models.Money) (int64, error) {
	var requestID int64
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO requests (tailor_id, user_id, name, description, price, category)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			req.TailorID, req.UserID, req.Name, req.Description, req.Price, req.Category.Code()).Scan(&requestID); err != nil {
			return mapForeignKey(fmt.Errorf("insert request: %w", err))
		}

		var txnID int64
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO transactions (user_id, tailor_id, kind, status, total_price)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			req.UserID, req.TailorID, int(repository.KindRequest), string(status), total).Scan(&txnID); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_requests (transaction_id, request_id) VALUES ($1, $2)`, txnID, requestID); err != nil {
			return fmt.Errorf("link request: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return requestID, nil
}

// mapForeignKey turns a missing user or tailor reference into a not-found error
func mapForeignKey(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "requests_user_id_fkey":
			return repository.ErrUserNotFound
		case "requests_tailor_id_fkey":
			return repository.ErrTailorNotFound
		}
	}
	return err
}

const requestColumns = `r.id, r.tailor_id, r.user_id, r.name, r.description, r.price, r.category, m.fields`

func scanRequest(row rowScanner) (models.Request, error) {
	var (
		req    models.Request
		code   int
		fields []byte
	)
	if err := row.Scan(&req.ID, &req.TailorID, &req.UserID, &req.Name, &req.Description, &req.Price, &code, &fields); err != nil {
		return models.Request{}, err
	}

	c, err := models.CategoryFromCode(code)
	if err != nil {
		return models.Request{}, err
	}
	req.Category = c

	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &req.Measurement); err != nil {
			return models.Request{}, fmt.Errorf("decode measurement: %w", err)
		}
	}
	return req, nil
}

// GetRequest returns a request with its measurement, if recorded
func (s *Store) GetRequest(ctx context.Context, id int64) (*models.Request, error) {
	req, err := scanRequest(s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM requests r LEFT JOIN measurements m ON m.request_id = r.id
		WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrRequestNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return &req, nil
}

// SaveMeasurement records the measurement of a request once
func (s *Store) SaveMeasurement(ctx context.Context, requestID int64, category models.Category, values map[string]any) error {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Category != category {
		return repository.ErrCategoryMismatch
	}

	fields, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode measurement: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO measurements (request_id, category, fields) VALUES ($1, $2, $3)`, requestID, category.Code(), fields)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return repository.ErrMeasurementExists
		}
		return fmt.Errorf("insert measurement: %w", err)
	}
	return nil
}

const transactionColumns = `id, transaction_date, user_id, tailor_id, status, total_price`

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var (
		t      models.Transaction
		status string
	)
	err := row.Scan(&t.ID, &t.TransactionDate, &t.UserID, &t.TailorID, &status, &t.TotalPrice)
	t.Status = models.TransactionStatus(status)
	return t, err
}

// GetTransaction returns a transaction with its products and requests
func (s *Store) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if err := s.attach(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListUserTransactions returns the user's transactions of kind, newest first
func (s *Store) ListUserTransactions(ctx context.Context, userID int64, kind repository.TransactionKind) ([]models.Transaction, error) {
	return s.listTransactions(ctx, `user_id = $1`, userID, kind)
}

// ListTailorTransactions returns the tailor's transactions of kind, newest first
func (s *Store) ListTailorTransactions(ctx context.Context, tailorID int64, kind repository.TransactionKind) ([]models.Transaction, error) {
	return s.listTransactions(ctx, `tailor_id = $1`, tailorID, kind)
}

func (s *Store) listTransactions(ctx context.Context, where string, id int64, kind repository.TransactionKind) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+where+` AND kind = $2 ORDER BY id DESC`, id, int(kind))
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	txns := make([]models.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	rows.Close()

	for i := range txns {
		if err := s.attach(ctx, &txns[i]); err != nil {
			return nil, err
		}
	}
	return txns, nil
}

// attach loads the products and requests of t
func (s *Store) attach(ctx context.Context, t *models.Transaction) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.tailor_id, p.name, p.description, p.price, p.size, p.img_url, p.is_active
		FROM transaction_products tp JOIN products p ON p.id = tp.product_id
		WHERE tp.transaction_id = $1 ORDER BY p.id`, t.ID)
	if err != nil {
		return fmt.Errorf("query transaction products: %w", err)
	}
	if t.Products, err = collectProducts(rows); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM transaction_requests tr
		JOIN requests r ON r.id = tr.request_id
		LEFT JOIN measurements m ON m.request_id = r.id
		WHERE tr.transaction_id = $1 ORDER BY r.id`, t.ID)
	if err != nil {
		return fmt.Errorf("query transaction requests: %w", err)
	}
	defer rows.Close()

	t.Requests = make([]models.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return fmt.Errorf("scan request: %w", err)
		}
		t.Requests = append(t.Requests, req)
	}
	return rows.Err()
}

// UpdateTransactionStatus moves a transaction along the status lifecycle
func (s *Store) UpdateTransactionStatus(ctx context.Context, id int64, status models.TransactionStatus) (*models.Transaction, error) {
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var current string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM transactions WHERE id = $1 FOR UPDATE`, id).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrTransactionNotFound
			}
			return fmt.Errorf("lock transaction: %w", err)
		}
		if !models.TransactionStatus(current).CanTransition(status) {
			return repository.ErrInvalidTransition
		}
		_, err := tx.ExecContext(ctx, `UPDATE transactions SET status = $2 WHERE id = $1`, id, string(status))
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, id)
}

// CompleteTransaction implements repository.RequestRepository
func (s *Store) CompleteTransaction(ctx context.Context, id int64, payout models.Money, points int64) (*models.Transaction, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			status           string
			userID, tailorID int64
		)
		err := tx.QueryRowContext(ctx,
			`SELECT status, user_id, tailor_id FROM transactions WHERE id = $1 FOR UPDATE`, id).Scan(&status, &userID, &tailorID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrTransactionNotFound
			}
			return fmt.Errorf("lock transaction: %w", err)
		}

		switch models.TransactionStatus(status) {
		case models.StatusFinished:
			return repository.ErrAlreadyFinished
		case models.StatusRejected:
			return repository.ErrInvalidTransition
		}

		if _, err := tx.ExecContext(ctx, `UPDATE tailors SET money = money + $2 WHERE id = $1`, tailorID, payout); err != nil {
			return fmt.Errorf("credit tailor: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET points = points + $2 WHERE id = $1`, userID, points); err != nil {
			return fmt.Errorf("award points: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET status = $2 WHERE id = $1`, id, string(models.StatusFinished)); err != nil {
			return fmt.Errorf("finish transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, id)
}
