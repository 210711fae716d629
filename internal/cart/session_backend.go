package cart

import (
	"context"
	"sort"
	"strconv"

	"essenza-be/internal/logger"
	"essenza-be/internal/product"
	"essenza-be/internal/session"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// sessionBackend keeps anonymous carts in the session store. Prices are the
// ones captured when a product was first added.
type sessionBackend struct {
	store    session.Store
	products product.Repository
}

func NewSessionBackend(store session.Store, products product.Repository) Backend {
	return &sessionBackend{store: store, products: products}
}

func productKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (b *sessionBackend) Lines(ctx context.Context, id Identity) ([]Line, error) {
	data, err := b.store.GetCart(ctx, id.SessionID)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(data))
	for key := range data {
		pid, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(pid))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	found, err := b.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(ids))
	for _, pid := range ids {
		p, ok := found[pid]
		if !ok {
			// Product deleted since it was added.
			continue
		}

		entry := data[productKey(pid)]
		if entry.Quantity <= 0 {
			continue
		}
		price, err := decimal.NewFromString(entry.Price)
		if err != nil {
			logger.FromCtx(ctx).Warn("unreadable session price, using catalog price",
				zap.String("layer", "session_backend"),
				zap.Uint("product_id", pid),
			)
			price = p.Price
		}

		lines = append(lines, Line{
			ProductID: pid,
			Name:      p.Name,
			Quantity:  entry.Quantity,
			UnitPrice: price,
		})
	}
	return lines, nil
}

func (b *sessionBackend) Quantity(ctx context.Context, id Identity, productID uint) (int, bool, error) {
	data, err := b.store.GetCart(ctx, id.SessionID)
	if err != nil {
		return 0, false, err
	}
	entry, ok := data[productKey(productID)]
	return entry.Quantity, ok, nil
}

func (b *sessionBackend) Set(ctx context.Context, id Identity, p *product.Product, qty int) error {
	data, err := b.store.GetCart(ctx, id.SessionID)
	if err != nil {
		return err
	}
	if data == nil {
		data = session.CartData{}
	}

	key := productKey(p.ID)
	entry, ok := data[key]
	if !ok {
		entry.Price = p.Price.StringFixed(2)
	}
	entry.Quantity = qty
	data[key] = entry

	return b.store.PutCart(ctx, id.SessionID, data)
}

func (b *sessionBackend) Delete(ctx context.Context, id Identity, productID uint) (bool, error) {
	data, err := b.store.GetCart(ctx, id.SessionID)
	if err != nil {
		return false, err
	}

	key := productKey(productID)
	if _, ok := data[key]; !ok {
		return false, nil
	}
	delete(data, key)

	if len(data) == 0 {
		return true, b.store.DeleteCart(ctx, id.SessionID)
	}
	return true, b.store.PutCart(ctx, id.SessionID, data)
}

func (b *sessionBackend) Clear(ctx context.Context, id Identity) error {
	return b.store.DeleteCart(ctx, id.SessionID)
}
