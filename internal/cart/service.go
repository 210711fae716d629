package cart

import (
	"context"

	"essenza-be/internal/logger"
	"essenza-be/internal/product"

	"go.uber.org/zap"
)

// Service resolves and edits carts for both identity kinds.
type Service interface {
	// Resolve is a pure read of the current cart contents.
	Resolve(ctx context.Context, id Identity) (Snapshot, error)
	Add(ctx context.Context, id Identity, productID uint, qty int) error
	// Update sets a line quantity. A quantity of zero or less removes the line.
	Update(ctx context.Context, id Identity, productID uint, qty int) error
	Remove(ctx context.Context, id Identity, productID uint) error
	Clear(ctx context.Context, id Identity) error
}

type service struct {
	persisted Backend
	session   Backend
	products  product.Repository
}

func NewService(persisted, session Backend, products product.Repository) Service {
	return &service{persisted: persisted, session: session, products: products}
}

func (s *service) backend(id Identity) (Backend, error) {
	if !id.valid() {
		return nil, ErrNoIdentity
	}
	if id.Authenticated() {
		return s.persisted, nil
	}
	return s.session, nil
}

func (s *service) Resolve(ctx context.Context, id Identity) (Snapshot, error) {
	b, err := s.backend(id)
	if err != nil {
		return Snapshot{}, err
	}

	lines, err := b.Lines(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Lines: lines}, nil
}

func (s *service) Add(ctx context.Context, id Identity, productID uint, qty int) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddToCart"),
		zap.Uint("product_id", productID),
	)

	b, err := s.backend(id)
	if err != nil {
		return err
	}

	p, err := s.lookup(ctx, productID)
	if err != nil {
		return err
	}
	if p.Stock <= 0 {
		return ErrOutOfStock
	}

	if qty < 1 {
		qty = 1
	}

	current, _, err := b.Quantity(ctx, id, productID)
	if err != nil {
		return err
	}

	// Compared against the headroom so current+qty cannot overflow.
	final := p.Stock
	if qty < p.Stock-current {
		final = current + qty
	}
	if err := b.Set(ctx, id, p, final); err != nil {
		log.Error("failed to add to cart", zap.Error(err))
		return err
	}

	log.Info("added to cart", zap.Int("quantity", final))
	return nil
}

func (s *service) Update(ctx context.Context, id Identity, productID uint, qty int) error {
	if qty <= 0 {
		return s.Remove(ctx, id, productID)
	}

	b, err := s.backend(id)
	if err != nil {
		return err
	}

	_, exists, err := b.Quantity(ctx, id, productID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCartItemNotFound
	}

	p, err := s.lookup(ctx, productID)
	if err != nil {
		return err
	}

	final := min(qty, p.Stock)
	if final <= 0 {
		return s.Remove(ctx, id, productID)
	}
	return b.Set(ctx, id, p, final)
}

func (s *service) Remove(ctx context.Context, id Identity, productID uint) error {
	b, err := s.backend(id)
	if err != nil {
		return err
	}

	removed, err := b.Delete(ctx, id, productID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrCartItemNotFound
	}
	return nil
}

func (s *service) Clear(ctx context.Context, id Identity) error {
	b, err := s.backend(id)
	if err != nil {
		return err
	}
	return b.Clear(ctx, id)
}

func (s *service) lookup(ctx context.Context, productID uint) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsActive {
		return nil, ErrProductNotFound
	}
	return p, nil
}
