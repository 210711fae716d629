package cart

import (
	"context"
	"math"
	"testing"

	"essenza-be/internal/product"
	"essenza-be/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	carts map[string]session.CartData
}

func newMemStore() *memStore {
	return &memStore{carts: map[string]session.CartData{}}
}

func (s *memStore) GetCart(_ context.Context, sid string) (session.CartData, error) {
	out := session.CartData{}
	for k, v := range s.carts[sid] {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) PutCart(_ context.Context, sid string, data session.CartData) error {
	s.carts[sid] = data
	return nil
}

func (s *memStore) DeleteCart(_ context.Context, sid string) error {
	delete(s.carts, sid)
	return nil
}

func TestSessionBackend_Lines(t *testing.T) {
	ctx := context.Background()
	id := Identity{SessionID: "s"}

	store := newMemStore()
	store.carts["s"] = session.CartData{
		"2": {Quantity: 1, Price: "5.00"},
		"1": {Quantity: 2, Price: "10.00"},
		"9": {Quantity: 1, Price: "3.00"},
	}

	products := new(MockProductRepository)
	products.On("GetByIDs", ctx, []uint{1, 2, 9}).Return(map[uint]*product.Product{
		1: {ID: 1, Name: "Lipstick", Price: decimal.RequireFromString("12.00")},
		2: {ID: 2, Name: "Serum", Price: decimal.RequireFromString("5.00")},
	}, nil)

	b := NewSessionBackend(store, products)

	lines, err := b.Lines(ctx, id)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, uint(1), lines[0].ProductID)
	assert.Equal(t, uint(2), lines[1].ProductID)
	// captured price, not the current catalog price
	assert.Equal(t, "10.00", lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "25.00", Snapshot{Lines: lines}.Total().StringFixed(2))
}

func TestSessionBackend_Lines_Empty(t *testing.T) {
	products := new(MockProductRepository)
	b := NewSessionBackend(newMemStore(), products)

	lines, err := b.Lines(context.Background(), Identity{SessionID: "none"})
	assert.NoError(t, err)
	assert.Empty(t, lines)
	products.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
}

func TestSessionBackend_SetKeepsFirstPrice(t *testing.T) {
	ctx := context.Background()
	id := Identity{SessionID: "s"}
	store := newMemStore()
	b := NewSessionBackend(store, new(MockProductRepository))

	p := &product.Product{ID: 4, Price: decimal.RequireFromString("8")}
	require.NoError(t, b.Set(ctx, id, p, 1))

	p.Price = decimal.RequireFromString("9.99")
	require.NoError(t, b.Set(ctx, id, p, 3))

	assert.Equal(t, session.Entry{Quantity: 3, Price: "8.00"}, store.carts["s"]["4"])
}

func TestSessionBackend_Delete(t *testing.T) {
	ctx := context.Background()
	id := Identity{SessionID: "s"}
	store := newMemStore()
	store.carts["s"] = session.CartData{"1": {Quantity: 1, Price: "1"}, "2": {Quantity: 1, Price: "1"}}
	b := NewSessionBackend(store, new(MockProductRepository))

	removed, err := b.Delete(ctx, id, 1)
	assert.NoError(t, err)
	assert.True(t, removed)
	assert.Len(t, store.carts["s"], 1)

	removed, err = b.Delete(ctx, id, 1)
	assert.NoError(t, err)
	assert.False(t, removed)

	removed, err = b.Delete(ctx, id, 2)
	assert.NoError(t, err)
	assert.True(t, removed)
	assert.NotContains(t, store.carts, "s")
}

func TestSessionBackend_LinesSkipsNonPositive(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.carts["s"] = session.CartData{
		"1": {Quantity: 2, Price: "10.00"},
		"2": {Quantity: -3, Price: "5.00"},
		"3": {Quantity: 0, Price: "5.00"},
	}

	products := new(MockProductRepository)
	products.On("GetByIDs", ctx, []uint{1, 2, 3}).Return(map[uint]*product.Product{
		1: {ID: 1, Name: "Lipstick"},
		2: {ID: 2, Name: "Serum"},
		3: {ID: 3, Name: "Mask"},
	}, nil)

	lines, err := NewSessionBackend(store, products).Lines(ctx, Identity{SessionID: "s"})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, uint(1), lines[0].ProductID)
}

func TestService_AddHugeQuantityToSessionCart(t *testing.T) {
	ctx := context.Background()
	id := Identity{SessionID: "s"}
	store := newMemStore()

	products := new(MockProductRepository)
	products.On("GetByID", ctx, uint(1)).Return(activeProduct(1, 5), nil)

	svc := NewService(new(MockBackend), NewSessionBackend(store, products), products)

	require.NoError(t, svc.Add(ctx, id, 1, 1))
	require.NoError(t, svc.Add(ctx, id, 1, math.MaxInt))

	assert.Equal(t, 5, store.carts["s"]["1"].Quantity)
}
