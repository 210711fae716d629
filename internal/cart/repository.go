package cart

import (
	"context"
	"database/sql"
	"fmt"

	"essenza-be/internal/logger"
	"essenza-be/internal/product"

	"go.uber.org/zap"
)

// persistedBackend keeps authenticated carts in Postgres. Each user owns at
// most one cart row (carts.user_id is UNIQUE).
type persistedBackend struct {
	db *sql.DB
}

func NewPersistedBackend(db *sql.DB) Backend {
	return &persistedBackend{db: db}
}

func (r *persistedBackend) Lines(ctx context.Context, id Identity) ([]Line, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Lines"),
		zap.Uint("user_id", id.UserID),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT cl.product_id, p.name, cl.quantity, p.price
		FROM cart_lines cl
		JOIN carts c ON c.id = cl.cart_id
		JOIN products p ON p.id = cl.product_id
		WHERE c.user_id = $1
		ORDER BY cl.product_id
	`, id.UserID)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Quantity, &l.UnitPrice); err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *persistedBackend) Quantity(ctx context.Context, id Identity, productID uint) (int, bool, error) {
	var qty int
	err := r.db.QueryRowContext(ctx, `
		SELECT cl.quantity
		FROM cart_lines cl
		JOIN carts c ON c.id = cl.cart_id
		WHERE c.user_id = $1 AND cl.product_id = $2
	`, id.UserID, productID).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return qty, true, nil
}

func (r *persistedBackend) Set(ctx context.Context, id Identity, p *product.Product, qty int) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Set"),
		zap.Uint("user_id", id.UserID),
		zap.Uint("product_id", p.ID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lookup-or-create keeps a single cart per user under concurrent adds.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, id.UserID); err != nil {
		log.Error("failed to create cart", zap.Error(err))
		return fmt.Errorf("create cart: %w", err)
	}

	var cartID uint
	if err := tx.QueryRowContext(ctx, `SELECT id FROM carts WHERE user_id = $1`, id.UserID).Scan(&cartID); err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cart_lines (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
	`, cartID, p.ID, qty); err != nil {
		log.Error("failed to upsert cart line", zap.Error(err))
		return fmt.Errorf("upsert cart line: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info("cart line saved", zap.Int("quantity", qty))
	return nil
}

func (r *persistedBackend) Delete(ctx context.Context, id Identity, productID uint) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM cart_lines
		WHERE product_id = $2
		  AND cart_id = (SELECT id FROM carts WHERE user_id = $1)
	`, id.UserID, productID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	// The last line takes the cart with it.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM carts c
		WHERE c.user_id = $1
		  AND NOT EXISTS (SELECT 1 FROM cart_lines cl WHERE cl.cart_id = c.id)
	`, id.UserID); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

func (r *persistedBackend) Clear(ctx context.Context, id Identity) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, id.UserID)
	return err
}
