package user

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	email := "john@example.com"
	password := "hashed_password"

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users \(email, password, role\) VALUES \(\$1, \$2, \$3\) RETURNING id, email, password, role, created_at`).
			WithArgs(email, password, "customer").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "role", "created_at"}).
				AddRow(1, email, password, "customer", time.Now()))

		u, err := repo.Create(ctx, email, password, RoleCustomer)
		assert.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, uint(1), u.ID)
		assert.Equal(t, RoleCustomer, u.Role)
	})

	t.Run("Duplicate", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

		_, err := repo.Create(ctx, email, password, RoleCustomer)
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(errors.New("db error"))

		_, err := repo.Create(ctx, email, password, RoleCustomer)
		assert.Error(t, err)
	})
}

func TestRepository_FindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	email := "john@example.com"

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "email", "password", "role", "created_at"}).
			AddRow(1, email, "hashed", "customer", time.Now())

		mock.ExpectQuery(`SELECT id, email, password, role, created_at FROM users WHERE email = \$1`).
			WithArgs(email).
			WillReturnRows(rows)

		u, err := repo.FindByEmail(ctx, email)
		assert.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, email, u.Email)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM users`).
			WithArgs(email).
			WillReturnError(sql.ErrNoRows)

		u, err := repo.FindByEmail(ctx, email)
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.Nil(t, u)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM users`).
			WithArgs(email).
			WillReturnError(errors.New("connection refused"))

		_, err := repo.FindByEmail(ctx, email)
		assert.Error(t, err)
	})
}
