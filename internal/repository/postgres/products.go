package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

const productColumns = `id, tailor_id, name, description, price, size, img_url, is_active`

func scanProduct(row rowScanner) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.TailorID, &p.Name, &p.Description, &p.Price, &p.Size, &p.ImgURL, &p.IsActive)
	return p, err
}

func collectProducts(rows *sql.Rows) ([]models.Product, error) {
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListProducts returns all products ordered by ID
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return collectProducts(rows)
}

// GetProduct returns a product by its ID
func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// AddToCart inserts the product into the user's cart; repeats are ignored
func (s *Store) AddToCart(ctx context.Context, userID, productID int64) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return repository.ErrProductUnavailable
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cart_items (user_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, productID)
	if err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	return nil
}

// GetCart returns the products in the user's cart in insertion order
func (s *Store) GetCart(ctx context.Context, userID int64) ([]models.Product, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.tailor_id, p.name, p.description, p.price, p.size, p.img_url, p.is_active
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.added_at, p.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	return collectProducts(rows)
}

// RemoveFromCart drops productID from the user's cart
func (s *Store) RemoveFromCart(ctx context.Context, userID, productID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID); err != nil {
		return fmt.Errorf("remove from cart: %w", err)
	}
	return nil
}

// CreateOrder implements repository.ProductRepository
func (s *Store) CreateOrder(ctx context.Context, userID int64, productIDs []int64, status models.TransactionStatus) ([]models.Transaction, error) {
	var ids []int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ids = nil

		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !exists {
			return repository.ErrUserNotFound
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, int64Array(productIDs))
		if err != nil {
			return fmt.Errorf("lock products: %w", err)
		}
		products, err := collectProducts(rows)
		if err != nil {
			return err
		}

		found := make(map[int64]models.Product, len(products))
		for _, p := range products {
			found[p.ID] = p
		}

		byTailor := make(map[int64][]models.Product)
		var tailorOrder []int64
		seen := make(map[int64]bool, len(productIDs))
		for _, id := range productIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			p, ok := found[id]
			if !ok {
				return repository.ErrProductNotFound
			}
			if !p.IsActive {
				return repository.ErrProductUnavailable
			}
			if _, ok := byTailor[p.TailorID]; !ok {
				tailorOrder = append(tailorOrder, p.TailorID)
			}
			byTailor[p.TailorID] = append(byTailor[p.TailorID], p)
		}

		for _, tailorID := range tailorOrder {
			total := decimal.Zero
			for _, p := range byTailor[tailorID] {
				total = total.Add(p.Price)
			}

			var txnID int64
			if err := tx.QueryRowContext(ctx, `
				INSERT INTO transactions (user_id, tailor_id, kind, status, total_price)
				VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				userID, tailorID, int(repository.KindOrder), string(status), total).Scan(&txnID); err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}

			for _, p := range byTailor[tailorID] {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO transaction_products (transaction_id, product_id) VALUES ($1, $2)`, txnID, p.ID); err != nil {
					return fmt.Errorf("link product: %w", err)
				}
				if _, err := tx.ExecContext(ctx, `UPDATE products SET is_active = FALSE WHERE id = $1`, p.ID); err != nil {
					return fmt.Errorf("deactivate product: %w", err)
				}
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, p.ID); err != nil {
					return fmt.Errorf("clear cart item: %w", err)
				}
			}
			ids = append(ids, txnID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	txns := make([]models.Transaction, 0, len(ids))
	for _, id := range ids {
		t, err := s.GetTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	return txns, nil
}
