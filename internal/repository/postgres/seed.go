package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Lixing-Zhang/tailortech/internal/database"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

// Seed inserts seed rows keeping their IDs, then advances the ID sequences.
// Rows that already exist are left untouched.
func (s *Store) Seed(ctx context.Context, seed repository.Seed) error {
	return database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		for _, u := range seed.Users {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO users (id, name, email, phone_number, address, password_hash, money, points)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT DO NOTHING`,
				u.ID, u.Name, u.Email, u.PhoneNumber, u.Address, u.PasswordHash, u.Money, u.Points); err != nil {
				return fmt.Errorf("seed user %d: %w", u.ID, err)
			}
		}

		for _, t := range seed.Tailors {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO tailors (id, name, email, address, img_url, password_hash, money, rating)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT DO NOTHING`,
				t.ID, t.Name, t.Email, t.Address, t.ImgURL, t.PasswordHash, t.Money, t.Rating); err != nil {
				return fmt.Errorf("seed tailor %d: %w", t.ID, err)
			}
			for _, sp := range t.Specialities {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO specialities (tailor_id, category, price) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
					t.ID, sp.Category.Code(), sp.Price); err != nil {
					return fmt.Errorf("seed speciality: %w", err)
				}
			}
		}

		for _, p := range seed.Products {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO products (id, tailor_id, name, description, price, size, img_url, is_active)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT DO NOTHING`,
				p.ID, p.TailorID, p.Name, p.Description, p.Price, p.Size, p.ImgURL, p.IsActive); err != nil {
				return fmt.Errorf("seed product %d: %w", p.ID, err)
			}
		}

		for userID, coupons := range seed.Coupons {
			for _, c := range coupons {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO user_coupons (user_id, code, discount, quantity) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
					userID, c.Code, c.DiscountAmount, c.Quantity); err != nil {
					return fmt.Errorf("seed coupon: %w", err)
				}
			}
		}

		for _, table := range []string{"users", "tailors", "products"} {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(
				`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), GREATEST((SELECT COALESCE(MAX(id), 0) FROM %[1]s), 1))`, table)); err != nil {
				return fmt.Errorf("advance %s sequence: %w", table, err)
			}
		}
		return nil
	})
}
