// Package postgres implements repository.Store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Lixing-Zhang/tailortech/internal/database"
	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

// Store is a Postgres-backed repository.Store
type Store struct {
	db *sql.DB
}

var _ repository.Store = (*Store)(nil)

// NewStore wraps an open connection pool
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, name, email, phone_number, address, password_hash, money, points`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.Address, &u.PasswordHash, &u.Money, &u.Points); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// GetUser returns a user by ID
func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserByEmail matches email case-insensitively
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// UpdateProfile overwrites the non-empty contact fields of a user
func (s *Store) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		UPDATE users SET
			name = COALESCE(NULLIF($2, ''), name),
			phone_number = COALESCE(NULLIF($3, ''), phone_number),
			address = COALESCE(NULLIF($4, ''), address)
		WHERE id = $1
		RETURNING `+userColumns,
		update.ID, update.Name, update.PhoneNumber, update.Address))
}

// TopUp adds amount to a user's balance
func (s *Store) TopUp(ctx context.Context, userID int64, amount models.Money) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`UPDATE users SET money = money + $2 WHERE id = $1 RETURNING `+userColumns, userID, amount))
}

const tailorColumns = `id, name, email, address, img_url, password_hash, money, rating`

func (s *Store) queryTailor(ctx context.Context, where string, arg any) (*models.Tailor, error) {
	var t models.Tailor
	err := s.db.QueryRowContext(ctx, `SELECT `+tailorColumns+` FROM tailors WHERE `+where, arg).
		Scan(&t.ID, &t.Name, &t.Email, &t.Address, &t.ImgURL, &t.PasswordHash, &t.Money, &t.Rating)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrTailorNotFound
		}
		return nil, fmt.Errorf("scan tailor: %w", err)
	}

	specs, err := s.specialities(ctx, []int64{t.ID})
	if err != nil {
		return nil, err
	}
	t.Specialities = specs[t.ID]
	return &t, nil
}

// GetTailor returns a tailor by ID
func (s *Store) GetTailor(ctx context.Context, id int64) (*models.Tailor, error) {
	return s.queryTailor(ctx, `id = $1`, id)
}

// GetTailorByEmail matches email case-insensitively
func (s *Store) GetTailorByEmail(ctx context.Context, email string) (*models.Tailor, error) {
	return s.queryTailor(ctx, `lower(email) = lower($1)`, email)
}

// ListTailors returns all tailors ordered by ID
func (s *Store) ListTailors(ctx context.Context) ([]models.Tailor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tailorColumns+` FROM tailors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query tailors: %w", err)
	}
	defer rows.Close()

	var tailors []models.Tailor
	var ids []int64
	for rows.Next() {
		var t models.Tailor
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.Address, &t.ImgURL, &t.PasswordHash, &t.Money, &t.Rating); err != nil {
			return nil, fmt.Errorf("scan tailor: %w", err)
		}
		tailors = append(tailors, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tailors: %w", err)
	}

	specs, err := s.specialities(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tailors {
		tailors[i].Specialities = specs[tailors[i].ID]
	}
	return tailors, nil
}

func (s *Store) specialities(ctx context.Context, tailorIDs []int64) (map[int64][]models.Speciality, error) {
	out := make(map[int64][]models.Speciality, len(tailorIDs))
	if len(tailorIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tailor_id, category, price FROM specialities WHERE tailor_id = ANY($1) ORDER BY tailor_id, category`,
		int64Array(tailorIDs))
	if err != nil {
		return nil, fmt.Errorf("query specialities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tailorID int64
			code     int
			sp       models.Speciality
		)
		if err := rows.Scan(&tailorID, &code, &sp.Price); err != nil {
			return nil, fmt.Errorf("scan speciality: %w", err)
		}
		if sp.Category, err = models.CategoryFromCode(code); err != nil {
			return nil, err
		}
		out[tailorID] = append(out[tailorID], sp)
	}
	return out, rows.Err()
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return database.WithRetry(ctx, s.db, database.SerializableTxOptions(), fn)
}

func int64Array(ids []int64) any {
	return pq.Array(ids)
}
