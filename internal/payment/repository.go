package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"essenza-be/internal/logger"

	"go.uber.org/zap"
)

// Repository logs inbound provider webhooks. The (provider, event_id) unique
// key makes replays detectable.
type Repository interface {
	SavePaymentWebhook(
		ctx context.Context,
		provider string,
		eventID string,
		eventType string,
		externalID string,
		payload json.RawMessage,
		signatureValid bool,
	) (webhookID int64, isDuplicate bool, err error)

	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
	GetWebhook(ctx context.Context, webhookID int64) (*WebhookEvent, error)
	// FindWebhook looks an event up by its provider key; nil, nil when absent.
	FindWebhook(ctx context.Context, provider, eventID string) (*WebhookEvent, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const insertWebhookSQL = `
	INSERT INTO payment_webhooks (provider, event_type, event_id, external_id, signature_valid, payload)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (provider, event_id) DO NOTHING
	RETURNING id`

// maxReasonLen bounds process_error; provider bodies can end up in wrapped errors.
const maxReasonLen = 500

func (r *repository) SavePaymentWebhook(
	ctx context.Context,
	provider string,
	eventID string,
	eventType string,
	externalID string,
	payload json.RawMessage,
	signatureValid bool,
) (int64, bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "SavePaymentWebhook"),
		zap.String("provider", provider),
		zap.String("event_id", eventID),
	)

	var id int64
	err := r.db.QueryRowContext(ctx, insertWebhookSQL,
		provider, eventType, eventID, externalID, signatureValid, []byte(payload),
	).Scan(&id)

	// ON CONFLICT DO NOTHING returns no row for a replayed event.
	if errors.Is(err, sql.ErrNoRows) {
		log.Info("duplicate webhook event")
		return 0, true, nil
	}
	if err != nil {
		log.Error("failed to save webhook", zap.Error(err))
		return 0, false, fmt.Errorf("save webhook %s/%s: %w", provider, eventID, err)
	}

	return id, false, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payment_webhooks SET processed_at = now(), process_error = NULL WHERE id = $1`,
		webhookID,
	)
	if err != nil {
		return fmt.Errorf("mark webhook %d processed: %w", webhookID, err)
	}
	return nil
}

func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	if len(reason) > maxReasonLen {
		reason = reason[:maxReasonLen]
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE payment_webhooks SET process_error = $2 WHERE id = $1`,
		webhookID, reason,
	)
	if err != nil {
		return fmt.Errorf("mark webhook %d failed: %w", webhookID, err)
	}
	return nil
}

const webhookColumns = `id, provider, event_id, event_type, external_id, payload,
	       signature_valid, processed_at, process_error`

func (r *repository) GetWebhook(ctx context.Context, webhookID int64) (*WebhookEvent, error) {
	return r.getWebhook(ctx, `SELECT `+webhookColumns+` FROM payment_webhooks WHERE id = $1`, webhookID)
}

func (r *repository) FindWebhook(ctx context.Context, provider, eventID string) (*WebhookEvent, error) {
	return r.getWebhook(ctx,
		`SELECT `+webhookColumns+` FROM payment_webhooks WHERE provider = $1 AND event_id = $2`,
		provider, eventID,
	)
}

func (r *repository) getWebhook(ctx context.Context, q string, args ...any) (*WebhookEvent, error) {
	var (
		ev      WebhookEvent
		payload []byte
	)
	err := r.db.QueryRowContext(ctx, q, args...).Scan(
		&ev.ID, &ev.Provider, &ev.EventID, &ev.EventType, &ev.ExternalID, &payload,
		&ev.SignatureValid, &ev.ProcessedAt, &ev.ProcessError,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ev.Payload = payload
	return &ev, nil
}
