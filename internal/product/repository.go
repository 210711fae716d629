package product

import (
	"context"
	"database/sql"
	"time"

	"essenza-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const productColumns = `p.id, p.name, p.description, p.category, p.brand, p.price, p.stock, p.is_active`

type Repository interface {
	GetByID(ctx context.Context, id uint) (*Product, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]*Product, error)
	List(ctx context.Context, search string) ([]Product, error)
	SearchActive(ctx context.Context, search string) ([]Product, error)
	TopSelling(ctx context.Context, since time.Time, limit int) ([]Ranked, error)
	ListActiveByStock(ctx context.Context, limit int) ([]Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner, p *Product, extra ...any) error {
	dest := []any{&p.ID, &p.Name, &p.Description, &p.Category, &p.Brand, &p.Price, &p.Stock, &p.IsActive}
	return s.Scan(append(dest, extra...)...)
}

// GetByID returns nil, nil when the product does not exist.
func (r *repository) GetByID(ctx context.Context, id uint) (*Product, error) {
	var p Product
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id)
	if err := scanProduct(row, &p); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns the products that still exist, keyed by id.
func (r *repository) GetByIDs(ctx context.Context, ids []uint) (map[uint]*Product, error) {
	out := make(map[uint]*Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products p WHERE p.id = ANY($1)`,
		pq.Array(raw),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		out[p.ID] = &p
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, search string) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p`
	var args []any
	if search != "" {
		query += ` WHERE p.name ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY p.name`

	return r.queryProducts(ctx, "List", query, args...)
}

func (r *repository) SearchActive(ctx context.Context, search string) ([]Product, error) {
	return r.queryProducts(ctx, "SearchActive",
		`SELECT `+productColumns+` FROM products p WHERE p.is_active AND p.name ILIKE $1 ORDER BY p.name`,
		"%"+search+"%",
	)
}

func (r *repository) ListActiveByStock(ctx context.Context, limit int) ([]Product, error) {
	return r.queryProducts(ctx, "ListActiveByStock",
		`SELECT `+productColumns+` FROM products p WHERE p.is_active ORDER BY p.stock DESC LIMIT $1`,
		limit,
	)
}

func (r *repository) TopSelling(ctx context.Context, since time.Time, limit int) ([]Ranked, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "TopSelling"),
		zap.Time("since", since),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`, SUM(ol.quantity) AS sold
		FROM products p
		JOIN order_lines ol ON ol.product_id = p.id
		JOIN orders o ON o.id = ol.order_id
		WHERE p.is_active AND o.placed_at >= $1
		GROUP BY p.id
		HAVING SUM(ol.quantity) > 0
		ORDER BY sold DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []Ranked
	for rows.Next() {
		var rp Ranked
		if err := scanProduct(rows, &rp.Product, &rp.Sold); err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

func (r *repository) queryProducts(ctx context.Context, method, query string, args ...any) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("layer", "repository"),
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
