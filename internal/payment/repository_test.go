package payment

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_SavePaymentWebhook(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	provider := ProviderStripe
	eventID := "evt_1"
	eventType := "checkout.session.completed"
	extID := "cs_test_1"
	payload := []byte(`{}`)
	valid := true

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payment_webhooks`).
			WithArgs(provider, eventType, eventID, extID, valid, payload).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

		id, isDup, err := repo.SavePaymentWebhook(ctx, provider, eventID, eventType, extID, payload, valid)
		assert.NoError(t, err)
		assert.False(t, isDup)
		assert.Equal(t, int64(10), id)
	})

	t.Run("Duplicate", func(t *testing.T) {
		// ON CONFLICT DO NOTHING returns no rows
		mock.ExpectQuery(`INSERT INTO payment_webhooks`).
			WithArgs(provider, eventType, eventID, extID, valid, payload).
			WillReturnError(sql.ErrNoRows)

		id, isDup, err := repo.SavePaymentWebhook(ctx, provider, eventID, eventType, extID, payload, valid)
		assert.NoError(t, err)
		assert.True(t, isDup)
		assert.Equal(t, int64(0), id)
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payment_webhooks`).
			WillReturnError(errors.New("db error"))

		_, _, err := repo.SavePaymentWebhook(ctx, provider, eventID, eventType, extID, payload, valid)
		assert.Error(t, err)
	})
}

func TestRepository_WebhookUpdates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	id := int64(1)

	t.Run("MarkProcessed", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payment_webhooks SET processed_at = now\(\), process_error = NULL WHERE id = \$1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkWebhookProcessed(ctx, id)
		assert.NoError(t, err)
	})

	t.Run("MarkProcessed_Error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payment_webhooks SET processed_at`).
			WithArgs(id).
			WillReturnError(errors.New("db error"))

		err := repo.MarkWebhookProcessed(ctx, id)
		assert.Error(t, err)
	})

	t.Run("MarkFailed", func(t *testing.T) {
		reason := "error"
		mock.ExpectExec(`UPDATE payment_webhooks SET process_error = \$2 WHERE id = \$1`).
			WithArgs(id, reason).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkWebhookFailed(ctx, id, reason)
		assert.NoError(t, err)
	})

	t.Run("MarkFailed_TruncatesReason", func(t *testing.T) {
		long := strings.Repeat("x", maxReasonLen+50)
		mock.ExpectExec(`UPDATE payment_webhooks SET process_error`).
			WithArgs(id, long[:maxReasonLen]).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkWebhookFailed(ctx, id, long))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_GetWebhook(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	cols := []string{"id", "provider", "event_id", "event_type", "external_id", "payload",
		"signature_valid", "processed_at", "process_error"}

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`SELECT .* FROM payment_webhooks WHERE id = \$1`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(3, ProviderStripe, "evt_1", "checkout.session.completed", "cs_1", []byte(`{"a":1}`), true, now, nil))

		ev, err := repo.GetWebhook(context.Background(), 3)
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.Equal(t, "evt_1", ev.EventID)
		assert.JSONEq(t, `{"a":1}`, string(ev.Payload))
		assert.NotNil(t, ev.ProcessedAt)
		assert.Nil(t, ev.ProcessError)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM payment_webhooks`).
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(cols))

		ev, err := repo.GetWebhook(context.Background(), 4)
		assert.NoError(t, err)
		assert.Nil(t, ev)
	})
}

func TestRepository_FindWebhook(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	cols := []string{"id", "provider", "event_id", "event_type", "external_id", "payload",
		"signature_valid", "processed_at", "process_error"}

	t.Run("Unprocessed", func(t *testing.T) {
		reason := "provider timeout"
		mock.ExpectQuery(`SELECT .* FROM payment_webhooks WHERE provider = \$1 AND event_id = \$2`).
			WithArgs(ProviderStripe, "evt_9").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(9, ProviderStripe, "evt_9", "checkout.session.completed", "cs_9", []byte(`{}`), true, nil, reason))

		ev, err := repo.FindWebhook(context.Background(), ProviderStripe, "evt_9")
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.Equal(t, int64(9), ev.ID)
		assert.Nil(t, ev.ProcessedAt)
		require.NotNil(t, ev.ProcessError)
		assert.Equal(t, reason, *ev.ProcessError)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM payment_webhooks`).
			WillReturnError(errors.New("db error"))

		_, err := repo.FindWebhook(context.Background(), ProviderStripe, "evt_9")
		assert.Error(t, err)
	})
}
