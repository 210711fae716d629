package product

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"essenza-be/internal/inventory"
	"essenza-be/internal/logger"

	"go.uber.org/zap"
)

const dashboardSize = 10

type Service interface {
	// Dashboard returns name matches for a search, otherwise the best sellers.
	Dashboard(ctx context.Context, search string) ([]Ranked, error)
	// GetActive returns a catalog product; inactive or unknown ids are ErrProductNotFound.
	GetActive(ctx context.Context, id uint) (*Product, error)
	StockList(ctx context.Context, search string) ([]Product, error)
	// SetStock applies an admin stock edit. Unparseable or negative input is ignored.
	SetStock(ctx context.Context, productID uint, raw string) error
}

type service struct {
	repo   Repository
	ledger inventory.Ledger
	now    func() time.Time
}

func NewService(repo Repository, ledger inventory.Ledger) Service {
	return &service{repo: repo, ledger: ledger, now: time.Now}
}

func (s *service) Dashboard(ctx context.Context, search string) ([]Ranked, error) {
	search = strings.TrimSpace(search)
	if search != "" {
		products, err := s.repo.SearchActive(ctx, search)
		if err != nil {
			return nil, err
		}
		return unranked(products), nil
	}

	now := s.now()
	for _, since := range []time.Time{now.AddDate(0, 0, -30), now.AddDate(0, 0, -365)} {
		top, err := s.repo.TopSelling(ctx, since, dashboardSize)
		if err != nil {
			return nil, err
		}
		if len(top) > 0 {
			return top, nil
		}
	}

	products, err := s.repo.ListActiveByStock(ctx, dashboardSize)
	if err != nil {
		return nil, err
	}
	return unranked(products), nil
}

func (s *service) GetActive(ctx context.Context, id uint) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load product",
			zap.String("layer", "service"),
			zap.String("method", "GetActive"),
			zap.Uint("product_id", id),
			zap.Error(err),
		)
		return nil, err
	}
	if p == nil || !p.IsActive {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *service) StockList(ctx context.Context, search string) ([]Product, error) {
	return s.repo.List(ctx, strings.TrimSpace(search))
}

func (s *service) SetStock(ctx context.Context, productID uint, raw string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "SetStock"),
		zap.Uint("product_id", productID),
	)

	raw = strings.TrimSpace(raw)
	stock := 0
	if raw != "" {
		// products.stock is a Postgres INTEGER.
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 0 {
			log.Info("ignoring invalid stock value", zap.String("value", raw))
			return nil
		}
		stock = int(n)
	}

	if err := s.ledger.SetStock(ctx, productID, stock); err != nil {
		if errors.Is(err, inventory.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}

func unranked(products []Product) []Ranked {
	out := make([]Ranked, 0, len(products))
	for _, p := range products {
		out = append(out, Ranked{Product: p})
	}
	return out
}
