package cart

import (
	"context"

	"essenza-be/internal/product"
)

// Backend stores cart lines for one kind of identity. Business rules such as
// stock capping live in the service, not here.
type Backend interface {
	Lines(ctx context.Context, id Identity) ([]Line, error)
	// Quantity reports the current quantity of a line and whether it exists.
	Quantity(ctx context.Context, id Identity, productID uint) (int, bool, error)
	Set(ctx context.Context, id Identity, p *product.Product, qty int) error
	// Delete reports whether a line was removed.
	Delete(ctx context.Context, id Identity, productID uint) (bool, error)
	Clear(ctx context.Context, id Identity) error
}
