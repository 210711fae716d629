package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"essenza-be/internal/logger"

	"go.uber.org/zap"
)

// Execer is satisfied by both *sql.DB and *sql.Tx, so a reservation can join
// the caller's transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Ledger owns the per-product available quantity.
type Ledger interface {
	// Reserve decrements stock by qty only if at least qty is available.
	Reserve(ctx context.Context, q Execer, productID uint, qty int) error
	// SetStock overwrites the counter. Administrative path, no reservation semantics.
	SetStock(ctx context.Context, productID uint, stock int) error
}

type ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) Ledger {
	return &ledger{db: db}
}

func (l *ledger) Reserve(ctx context.Context, q Execer, productID uint, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "inventory"),
		zap.String("method", "Reserve"),
		zap.Uint("product_id", productID),
		zap.Int("quantity", qty),
	)

	res, err := q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $1
		WHERE id = $2 AND stock >= $1
	`, qty, productID)
	if err != nil {
		log.Error("failed to reserve stock", zap.Error(err))
		return fmt.Errorf("reserve stock for product %d: %w", productID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve stock for product %d: %w", productID, err)
	}
	if affected == 0 {
		log.Warn("insufficient stock")
		return fmt.Errorf("product %d: %w", productID, ErrInsufficientStock)
	}

	log.Debug("stock reserved")
	return nil
}

func (l *ledger) SetStock(ctx context.Context, productID uint, stock int) error {
	res, err := l.db.ExecContext(ctx, `UPDATE products SET stock = $1 WHERE id = $2`, stock, productID)
	if err != nil {
		return fmt.Errorf("set stock for product %d: %w", productID, err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrProductNotFound
	}

	logger.FromCtx(ctx).Info("stock set by admin",
		zap.Uint("product_id", productID),
		zap.Int("stock", stock),
	)
	return nil
}
