package cart

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"essenza-be/internal/product"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Lines(ctx context.Context, id Identity) ([]Line, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Line), args.Error(1)
}

func (m *MockBackend) Quantity(ctx context.Context, id Identity, productID uint) (int, bool, error) {
	args := m.Called(ctx, id, productID)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockBackend) Set(ctx context.Context, id Identity, p *product.Product, qty int) error {
	return m.Called(ctx, id, p, qty).Error(0)
}

func (m *MockBackend) Delete(ctx context.Context, id Identity, productID uint) (bool, error) {
	args := m.Called(ctx, id, productID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend) Clear(ctx context.Context, id Identity) error {
	return m.Called(ctx, id).Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uint) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]*product.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uint]*product.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, search string) ([]product.Product, error) {
	args := m.Called(ctx, search)
	return args.Get(0).([]product.Product), args.Error(1)
}

func (m *MockProductRepository) SearchActive(ctx context.Context, search string) ([]product.Product, error) {
	args := m.Called(ctx, search)
	return args.Get(0).([]product.Product), args.Error(1)
}

func (m *MockProductRepository) TopSelling(ctx context.Context, since time.Time, limit int) ([]product.Ranked, error) {
	args := m.Called(ctx, since, limit)
	return args.Get(0).([]product.Ranked), args.Error(1)
}

func (m *MockProductRepository) ListActiveByStock(ctx context.Context, limit int) ([]product.Product, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]product.Product), args.Error(1)
}

func activeProduct(id uint, stock int) *product.Product {
	return &product.Product{ID: id, Name: "P", Price: decimal.NewFromInt(10), Stock: stock, IsActive: true}
}

func newTestService() (*service, *MockBackend, *MockBackend, *MockProductRepository) {
	persisted := new(MockBackend)
	sess := new(MockBackend)
	products := new(MockProductRepository)
	return &service{persisted: persisted, session: sess, products: products}, persisted, sess, products
}

func TestService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("PersistedForUser", func(t *testing.T) {
		svc, persisted, sess, _ := newTestService()
		id := Identity{UserID: 1, SessionID: "s"}
		persisted.On("Lines", ctx, id).Return([]Line{{ProductID: 1, Quantity: 1}}, nil)

		snap, err := svc.Resolve(ctx, id)
		require.NoError(t, err)
		assert.Len(t, snap.Lines, 1)
		sess.AssertNotCalled(t, "Lines", mock.Anything, mock.Anything)
	})

	t.Run("SessionForGuest", func(t *testing.T) {
		svc, _, sess, _ := newTestService()
		id := Identity{SessionID: "s"}
		sess.On("Lines", ctx, id).Return(nil, nil)

		snap, err := svc.Resolve(ctx, id)
		require.NoError(t, err)
		assert.True(t, snap.Empty())
	})

	t.Run("NoIdentity", func(t *testing.T) {
		svc, _, _, _ := newTestService()
		_, err := svc.Resolve(ctx, Identity{})
		assert.ErrorIs(t, err, ErrNoIdentity)
	})
}

func TestService_Add(t *testing.T) {
	ctx := context.Background()
	id := Identity{UserID: 1}

	t.Run("Success", func(t *testing.T) {
		svc, persisted, _, products := newTestService()
		p := activeProduct(3, 10)
		products.On("GetByID", ctx, uint(3)).Return(p, nil)
		persisted.On("Quantity", ctx, id, uint(3)).Return(2, true, nil)
		persisted.On("Set", ctx, id, p, 5).Return(nil)

		assert.NoError(t, svc.Add(ctx, id, 3, 3))
		persisted.AssertExpectations(t)
	})

	t.Run("CapsAtStock", func(t *testing.T) {
		svc, persisted, _, products := newTestService()
		p := activeProduct(3, 4)
		products.On("GetByID", ctx, uint(3)).Return(p, nil)
		persisted.On("Quantity", ctx, id, uint(3)).Return(3, true, nil)
		persisted.On("Set", ctx, id, p, 4).Return(nil)

		assert.NoError(t, svc.Add(ctx, id, 3, 5))
		persisted.AssertExpectations(t)
	})

	t.Run("HugeQuantityCapsAtStock", func(t *testing.T) {
		svc, persisted, _, products := newTestService()
		p := activeProduct(3, 5)
		products.On("GetByID", ctx, uint(3)).Return(p, nil)
		persisted.On("Quantity", ctx, id, uint(3)).Return(1, true, nil)
		persisted.On("Set", ctx, id, p, 5).Return(nil)

		assert.NoError(t, svc.Add(ctx, id, 3, math.MaxInt))
		persisted.AssertExpectations(t)
	})

	t.Run("StockShrankBelowCart", func(t *testing.T) {
		svc, persisted, _, products := newTestService()
		p := activeProduct(3, 2)
		products.On("GetByID", ctx, uint(3)).Return(p, nil)
		persisted.On("Quantity", ctx, id, uint(3)).Return(4, true, nil)
		persisted.On("Set", ctx, id, p, 2).Return(nil)

		assert.NoError(t, svc.Add(ctx, id, 3, 1))
		persisted.AssertExpectations(t)
	})

	t.Run("QuantityBelowOneMeansOne", func(t *testing.T) {
		svc, persisted, _, products := newTestService()
		p := activeProduct(3, 4)
		products.On("GetByID", ctx, uint(3)).Return(p, nil)
		persisted.On("Quantity", ctx, id, uint(3)).Return(0, false, nil)
		persisted.On("Set", ctx, id, p, 1).Return(nil)

		assert.NoError(t, svc.Add(ctx, id, 3, -2))
		persisted.AssertExpectations(t)
	})

	t.Run("OutOfStock", func(t *testing.T) {
		svc, persisted, _, products := newTestService()
		products.On("GetByID", ctx, uint(3)).Return(activeProduct(3, 0), nil)

		assert.ErrorIs(t, svc.Add(ctx, id, 3, 1), ErrOutOfStock)
		persisted.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ProductNotFound", func(t *testing.T) {
		svc, _, _, products := newTestService()
		products.On("GetByID", ctx, uint(3)).Return(nil, nil)

		assert.ErrorIs(t, svc.Add(ctx, id, 3, 1), ErrProductNotFound)
	})

	t.Run("InactiveProduct", func(t *testing.T) {
		svc, _, _, products := newTestService()
		p := activeProduct(3, 5)
		p.IsActive = false
		products.On("GetByID", ctx, uint(3)).Return(p, nil)

		assert.ErrorIs(t, svc.Add(ctx, id, 3, 1), ErrProductNotFound)
	})

	t.Run("BackendError", func(t *testing.T) {
		svc, persisted, _, products := newTestService()
		p := activeProduct(3, 5)
		products.On("GetByID", ctx, uint(3)).Return(p, nil)
		persisted.On("Quantity", ctx, id, uint(3)).Return(0, false, nil)
		persisted.On("Set", ctx, id, p, 1).Return(errors.New("db error"))

		assert.Error(t, svc.Add(ctx, id, 3, 1))
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	id := Identity{SessionID: "s"}

	t.Run("Success", func(t *testing.T) {
		svc, _, sess, products := newTestService()
		p := activeProduct(3, 10)
		sess.On("Quantity", ctx, id, uint(3)).Return(1, true, nil)
		products.On("GetByID", ctx, uint(3)).Return(p, nil)
		sess.On("Set", ctx, id, p, 6).Return(nil)

		assert.NoError(t, svc.Update(ctx, id, 3, 6))
		sess.AssertExpectations(t)
	})

	t.Run("CapsAtStock", func(t *testing.T) {
		svc, _, sess, products := newTestService()
		p := activeProduct(3, 2)
		sess.On("Quantity", ctx, id, uint(3)).Return(1, true, nil)
		products.On("GetByID", ctx, uint(3)).Return(p, nil)
		sess.On("Set", ctx, id, p, 2).Return(nil)

		assert.NoError(t, svc.Update(ctx, id, 3, 9))
	})

	t.Run("ZeroRemoves", func(t *testing.T) {
		svc, _, sess, _ := newTestService()
		sess.On("Delete", ctx, id, uint(3)).Return(true, nil)

		assert.NoError(t, svc.Update(ctx, id, 3, 0))
		sess.AssertExpectations(t)
	})

	t.Run("MissingLine", func(t *testing.T) {
		svc, _, sess, _ := newTestService()
		sess.On("Quantity", ctx, id, uint(3)).Return(0, false, nil)

		assert.ErrorIs(t, svc.Update(ctx, id, 3, 2), ErrCartItemNotFound)
	})
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()
	id := Identity{UserID: 1}

	t.Run("Success", func(t *testing.T) {
		svc, persisted, _, _ := newTestService()
		persisted.On("Delete", ctx, id, uint(3)).Return(true, nil)
		assert.NoError(t, svc.Remove(ctx, id, 3))
	})

	t.Run("Missing", func(t *testing.T) {
		svc, persisted, _, _ := newTestService()
		persisted.On("Delete", ctx, id, uint(3)).Return(false, nil)
		assert.ErrorIs(t, svc.Remove(ctx, id, 3), ErrCartItemNotFound)
	})
}

func TestService_Clear(t *testing.T) {
	ctx := context.Background()
	svc, _, sess, _ := newTestService()
	id := Identity{SessionID: "s"}
	sess.On("Clear", ctx, id).Return(nil)

	assert.NoError(t, svc.Clear(ctx, id))
	sess.AssertExpectations(t)
}
