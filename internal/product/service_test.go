package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"essenza-be/internal/inventory"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByID(ctx context.Context, id uint) (*Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Product), args.Error(1)
}

func (m *MockRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]*Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uint]*Product), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, search string) ([]Product, error) {
	args := m.Called(ctx, search)
	return args.Get(0).([]Product), args.Error(1)
}

func (m *MockRepository) SearchActive(ctx context.Context, search string) ([]Product, error) {
	args := m.Called(ctx, search)
	return args.Get(0).([]Product), args.Error(1)
}

func (m *MockRepository) TopSelling(ctx context.Context, since time.Time, limit int) ([]Ranked, error) {
	args := m.Called(ctx, since, limit)
	return args.Get(0).([]Ranked), args.Error(1)
}

func (m *MockRepository) ListActiveByStock(ctx context.Context, limit int) ([]Product, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]Product), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Reserve(ctx context.Context, q inventory.Execer, productID uint, qty int) error {
	return m.Called(ctx, q, productID, qty).Error(0)
}

func (m *MockLedger) SetStock(ctx context.Context, productID uint, stock int) error {
	return m.Called(ctx, productID, stock).Error(0)
}

func newTestService(repo *MockRepository, ledger *MockLedger, now time.Time) *service {
	return &service{repo: repo, ledger: ledger, now: func() time.Time { return now }}
}

func TestService_Dashboard(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	monthAgo := now.AddDate(0, 0, -30)
	yearAgo := now.AddDate(0, 0, -365)

	t.Run("Search", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil, now)

		repo.On("SearchActive", ctx, "rouge").Return([]Product{{ID: 1, Name: "Rouge"}}, nil)

		res, err := svc.Dashboard(ctx, "  rouge ")
		assert.NoError(t, err)
		assert.Len(t, res, 1)
		assert.Equal(t, 0, res[0].Sold)
		repo.AssertNotCalled(t, "TopSelling", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("LastMonth", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil, now)

		top := []Ranked{{Product: Product{ID: 1}, Sold: 5}}
		repo.On("TopSelling", ctx, monthAgo, dashboardSize).Return(top, nil)

		res, err := svc.Dashboard(ctx, "")
		assert.NoError(t, err)
		assert.Equal(t, top, res)
	})

	t.Run("FallbackToYear", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil, now)

		top := []Ranked{{Product: Product{ID: 2}, Sold: 1}}
		repo.On("TopSelling", ctx, monthAgo, dashboardSize).Return([]Ranked(nil), nil)
		repo.On("TopSelling", ctx, yearAgo, dashboardSize).Return(top, nil)

		res, err := svc.Dashboard(ctx, "")
		assert.NoError(t, err)
		assert.Equal(t, top, res)
	})

	t.Run("FallbackToStock", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil, now)

		repo.On("TopSelling", ctx, mock.Anything, dashboardSize).Return([]Ranked(nil), nil)
		repo.On("ListActiveByStock", ctx, dashboardSize).Return([]Product{{ID: 3}, {ID: 4}}, nil)

		res, err := svc.Dashboard(ctx, "")
		assert.NoError(t, err)
		assert.Len(t, res, 2)
		repo.AssertNumberOfCalls(t, "TopSelling", 2)
	})

	t.Run("Error", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil, now)

		repo.On("TopSelling", ctx, monthAgo, dashboardSize).Return([]Ranked(nil), errors.New("db"))

		_, err := svc.Dashboard(ctx, "")
		assert.Error(t, err)
	})
}

func TestService_SetStock(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		ledger := new(MockLedger)
		svc := newTestService(nil, ledger, time.Now())

		ledger.On("SetStock", ctx, uint(1), 12).Return(nil)

		assert.NoError(t, svc.SetStock(ctx, 1, " 12 "))
		ledger.AssertExpectations(t)
	})

	t.Run("EmptyMeansZero", func(t *testing.T) {
		ledger := new(MockLedger)
		svc := newTestService(nil, ledger, time.Now())

		ledger.On("SetStock", ctx, uint(1), 0).Return(nil)

		assert.NoError(t, svc.SetStock(ctx, 1, ""))
	})

	t.Run("InvalidInputIsNoop", func(t *testing.T) {
		ledger := new(MockLedger)
		svc := newTestService(nil, ledger, time.Now())

		assert.NoError(t, svc.SetStock(ctx, 1, "abc"))
		assert.NoError(t, svc.SetStock(ctx, 1, "-4"))
		ledger.AssertNotCalled(t, "SetStock", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("OutOfIntegerRangeIsNoop", func(t *testing.T) {
		ledger := new(MockLedger)
		svc := newTestService(nil, ledger, time.Now())

		assert.NoError(t, svc.SetStock(ctx, 1, "3000000000"))
		ledger.AssertNotCalled(t, "SetStock", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MaxInteger", func(t *testing.T) {
		ledger := new(MockLedger)
		svc := newTestService(nil, ledger, time.Now())

		ledger.On("SetStock", ctx, uint(1), 2147483647).Return(nil)

		assert.NoError(t, svc.SetStock(ctx, 1, "2147483647"))
		ledger.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		ledger := new(MockLedger)
		svc := newTestService(nil, ledger, time.Now())

		ledger.On("SetStock", ctx, uint(9), 1).Return(inventory.ErrProductNotFound)

		assert.ErrorIs(t, svc.SetStock(ctx, 9, "1"), ErrProductNotFound)
	})
}

func TestService_GetActive(t *testing.T) {
	ctx := context.Background()

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := &service{repo: NewRepository(db), now: time.Now}
	byID := `SELECT .* FROM products p WHERE p.id = \$1`

	t.Run("Active", func(t *testing.T) {
		sqlMock.ExpectQuery(byID).
			WithArgs(uint(1)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(1, "Lipstick", "Red", "makeup", "Acme", "12.50", 4, true))

		p, err := svc.GetActive(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Lipstick", p.Name)
	})

	t.Run("Inactive", func(t *testing.T) {
		sqlMock.ExpectQuery(byID).
			WithArgs(uint(2)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(2, "Old serum", "", "treatment", "Acme", "9.00", 3, false))

		_, err := svc.GetActive(ctx, 2)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("Unknown", func(t *testing.T) {
		sqlMock.ExpectQuery(byID).
			WithArgs(uint(3)).
			WillReturnRows(sqlmock.NewRows(productCols))

		_, err := svc.GetActive(ctx, 3)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("DBError", func(t *testing.T) {
		sqlMock.ExpectQuery(byID).
			WithArgs(uint(4)).
			WillReturnError(errors.New("db down"))

		_, err := svc.GetActive(ctx, 4)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrProductNotFound)
	})

	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
