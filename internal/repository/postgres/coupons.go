package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

// ListCoupons returns the user's coupons with uses left, ordered by code
func (s *Store) ListCoupons(ctx context.Context, userID int64) ([]models.Coupon, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, discount, quantity FROM user_coupons WHERE user_id = $1 AND quantity > 0 ORDER BY code`, userID)
	if err != nil {
		return nil, fmt.Errorf("query coupons: %w", err)
	}
	defer rows.Close()

	coupons := make([]models.Coupon, 0)
	for rows.Next() {
		var c models.Coupon
		if err := rows.Scan(&c.Code, &c.DiscountAmount, &c.Quantity); err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

// ExchangeCoupon implements repository.CouponRepository
func (s *Store) ExchangeCoupon(ctx context.Context, userID int64, promo models.Promo) (int64, models.Coupon, error) {
	var (
		points int64
		coupon models.Coupon
	)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT points FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&points); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrUserNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}
		if points < promo.PointsCost {
			return repository.ErrInsufficientPoints
		}

		if err := tx.QueryRowContext(ctx,
			`UPDATE users SET points = points - $2 WHERE id = $1 RETURNING points`, userID, promo.PointsCost).Scan(&points); err != nil {
			return fmt.Errorf("spend points: %w", err)
		}

		return tx.QueryRowContext(ctx, `
			INSERT INTO user_coupons (user_id, code, discount, quantity) VALUES ($1, $2, $3, 1)
			ON CONFLICT (user_id, code) DO UPDATE SET quantity = user_coupons.quantity + 1, discount = EXCLUDED.discount
			RETURNING code, discount, quantity`,
			userID, promo.Code, promo.Discount).Scan(&coupon.Code, &coupon.DiscountAmount, &coupon.Quantity)
	})
	if err != nil {
		return points, models.Coupon{}, err
	}
	return points, coupon, nil
}

// Charge implements repository.CouponRepository
func (s *Store) Charge(ctx context.Context, userID int64, amount models.Money, promoCode string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var balance models.Money
		if err := tx.QueryRowContext(ctx, `SELECT money FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrUserNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}
		if balance.LessThan(amount) {
			return repository.ErrInsufficientBalance
		}

		if promoCode != "" {
			var quantity int
			err := tx.QueryRowContext(ctx,
				`SELECT quantity FROM user_coupons WHERE user_id = $1 AND code = $2 FOR UPDATE`, userID, promoCode).Scan(&quantity)
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrCouponNotOwned
			}
			if err != nil {
				return fmt.Errorf("lock coupon: %w", err)
			}
			if quantity <= 0 {
				return repository.ErrCouponExhausted
			}

			if quantity == 1 {
				_, err = tx.ExecContext(ctx, `DELETE FROM user_coupons WHERE user_id = $1 AND code = $2`, userID, promoCode)
			} else {
				_, err = tx.ExecContext(ctx, `UPDATE user_coupons SET quantity = quantity - 1 WHERE user_id = $1 AND code = $2`, userID, promoCode)
			}
			if err != nil {
				return fmt.Errorf("consume coupon: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE users SET money = money - $2 WHERE id = $1`, userID, amount); err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}
		return nil
	})
}
