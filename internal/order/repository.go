package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"essenza-be/internal/inventory"
	"essenza-be/internal/logger"
	"essenza-be/internal/utils"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	orderColumns = `o.id, o.user_id, o.email, o.address, o.placed_at, o.status, o.tracking_code, o.payment_ref`

	pgUniqueViolation    = "23505"
	paymentRefConstraint = "orders_payment_ref_key"

	// A taken tracking code yields no row; a duplicate payment_ref still raises 23505.
	insertOrderSQL = `
		INSERT INTO orders (user_id, email, address, status, tracking_code, payment_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tracking_code) DO NOTHING
		RETURNING id, placed_at`
)

type Repository interface {
	// GetByPaymentRef returns nil, nil when no order exists for ref.
	GetByPaymentRef(ctx context.Context, ref string) (*Order, error)
	// CreateOrderTx persists o and its lines, reserves stock for every line
	// and deletes cartOwner's persisted cart, all in one transaction.
	// cartOwner 0 means there is no persisted cart to delete.
	CreateOrderTx(ctx context.Context, o *Order, cartOwner uint) error
	History(ctx context.Context, userID uint, email string) ([]Order, error)
	List(ctx context.Context, status *Status) ([]Order, error)
	FindByTracking(ctx context.Context, code, email string) (*Order, error)
	GetByTrackingCode(ctx context.Context, code string) (*Order, error)
	UpdateStatus(ctx context.Context, id uint, status Status) error
	SalesByProduct(ctx context.Context) ([]ProductSales, error)
	// SalesByUser leaves out guest orders.
	SalesByUser(ctx context.Context) ([]UserSales, error)
}

type repository struct {
	db      *sql.DB
	ledger  inventory.Ledger
	newCode func() (string, error)
}

func NewRepository(db *sql.DB, ledger inventory.Ledger) Repository {
	return &repository{
		db:     db,
		ledger: ledger,
		newCode: func() (string, error) {
			return utils.GenerateTrackingCode(nil)
		},
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner, o *Order) error {
	var userID sql.NullInt64
	if err := s.Scan(&o.ID, &userID, &o.Email, &o.Address, &o.PlacedAt, &o.Status, &o.TrackingCode, &o.PaymentRef); err != nil {
		return err
	}
	if userID.Valid {
		id := uint(userID.Int64)
		o.UserID = &id
	}
	return nil
}

func (r *repository) GetByPaymentRef(ctx context.Context, ref string) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.payment_ref = $1`, ref)
}

func (r *repository) GetByTrackingCode(ctx context.Context, code string) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.tracking_code = $1`, code)
}

func (r *repository) FindByTracking(ctx context.Context, code, email string) (*Order, error) {
	return r.getOne(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.tracking_code = $1 AND LOWER(o.email) = LOWER($2)`,
		code, email,
	)
}

func (r *repository) getOne(ctx context.Context, query string, args ...any) (*Order, error) {
	var o Order
	if err := scanOrder(r.db.QueryRowContext(ctx, query, args...), &o); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	orders := []Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *repository) CreateOrderTx(ctx context.Context, o *Order, cartOwner uint) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderTx"),
		zap.String("payment_ref", o.PaymentRef),
		zap.Int("line_count", len(o.Lines)),
	)

	log.Debug("starting order transaction")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			} else {
				log.Debug("transaction rolled back")
			}
		}
	}()

	if err := r.insertOrder(ctx, tx, o); err != nil {
		if !errors.Is(err, errDuplicatePayment) {
			log.Error("failed to insert order", zap.Error(err))
		}
		return err
	}

	for i := range o.Lines {
		l := &o.Lines[i]

		err := tx.QueryRowContext(ctx, `
			INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, o.ID, l.ProductID, l.Quantity, l.UnitPrice).Scan(&l.ID)
		if err != nil {
			log.Error("failed to insert order line",
				zap.Uint("product_id", l.ProductID),
				zap.Error(err),
			)
			return err
		}

		if err := r.ledger.Reserve(ctx, tx, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}

	if cartOwner != 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, cartOwner); err != nil {
			log.Error("failed to delete cart", zap.Error(err))
			return fmt.Errorf("delete cart: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order transaction", zap.Error(err))
		return err
	}

	committed = true
	log.Info("order created",
		zap.Uint("order_id", o.ID),
		zap.String("tracking_code", o.TrackingCode),
	)
	return nil
}

// insertOrder inserts o under a fresh tracking code, drawing again whenever the
// code is already taken, including by a concurrent transaction. There is no
// retry bound; with 36^8 codes a collision streak is not a practical concern.
func (r *repository) insertOrder(ctx context.Context, tx *sql.Tx, o *Order) error {
	for {
		code, err := r.newCode()
		if err != nil {
			return fmt.Errorf("generate tracking code: %w", err)
		}

		err = tx.QueryRowContext(ctx, insertOrderSQL,
			o.UserID, o.Email, o.Address, o.Status, code, o.PaymentRef,
		).Scan(&o.ID, &o.PlacedAt)
		if errors.Is(err, sql.ErrNoRows) {
			logger.FromCtx(ctx).Debug("tracking code taken, regenerating", zap.String("tracking_code", code))
			continue
		}
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation && pqErr.Constraint == paymentRefConstraint {
				logger.FromCtx(ctx).Info("order already created by a concurrent confirmation")
				return errDuplicatePayment
			}
			return err
		}

		o.TrackingCode = code
		return nil
	}
}

func (r *repository) History(ctx context.Context, userID uint, email string) ([]Order, error) {
	return r.list(ctx, "History", `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.user_id = $1 OR o.email = $2
		ORDER BY o.placed_at DESC, o.id DESC
	`, userID, email)
}

func (r *repository) List(ctx context.Context, status *Status) ([]Order, error) {
	if status != nil {
		return r.list(ctx, "List", `
			SELECT `+orderColumns+`
			FROM orders o
			WHERE o.status = $1
			ORDER BY o.placed_at DESC, o.id DESC
		`, *status)
	}
	return r.list(ctx, "List", `
		SELECT `+orderColumns+`
		FROM orders o
		ORDER BY o.placed_at DESC, o.id DESC
	`)
}

func (r *repository) list(ctx context.Context, method, query string, args ...any) ([]Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", method),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	seen := make(map[uint]bool)
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}
		if seen[o.ID] {
			continue
		}
		seen[o.ID] = true
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachLines(ctx, orders); err != nil {
		log.Error("failed to load order lines", zap.Error(err))
		return nil, err
	}
	return orders, nil
}

func (r *repository) attachLines(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[uint]int, len(orders))
	for i, o := range orders {
		ids[i] = int64(o.ID)
		index[o.ID] = i
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ol.id, ol.order_id, ol.product_id, COALESCE(p.name, ''), ol.quantity, ol.unit_price
		FROM order_lines ol
		LEFT JOIN products p ON p.id = ol.product_id
		WHERE ol.order_id = ANY($1)
		ORDER BY ol.order_id, ol.id
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l       Line
			orderID uint
		)
		if err := rows.Scan(&l.ID, &orderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice); err != nil {
			return err
		}
		if i, ok := index[orderID]; ok {
			orders[i].Lines = append(orders[i].Lines, l)
		}
	}
	return rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id uint, status Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) SalesByProduct(ctx context.Context) ([]ProductSales, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "SalesByProduct"),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT ol.product_id, COALESCE(p.name, ''), SUM(ol.quantity), SUM(ol.quantity * ol.unit_price) AS revenue
		FROM order_lines ol
		LEFT JOIN products p ON p.id = ol.product_id
		GROUP BY ol.product_id, p.name
		ORDER BY revenue DESC, ol.product_id
	`)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []ProductSales{}
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Sold, &ps.Revenue); err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (r *repository) SalesByUser(ctx context.Context) ([]UserSales, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "SalesByUser"),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.email, COUNT(DISTINCT o.id), SUM(ol.quantity * ol.unit_price) AS spent
		FROM orders o
		JOIN users u ON u.id = o.user_id
		JOIN order_lines ol ON ol.order_id = o.id
		GROUP BY u.id, u.email
		ORDER BY spent DESC, u.id
	`)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []UserSales{}
	for rows.Next() {
		var us UserSales
		if err := rows.Scan(&us.UserID, &us.Email, &us.Orders, &us.Spent); err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}
		out = append(out, us)
	}
	return out, rows.Err()
}
