package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"essenza-be/internal/logger"
	"essenza-be/internal/order"
	"essenza-be/internal/payment"

	"go.uber.org/zap"
)

const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"

	maxBodyBytes = 64 << 10
)

// Event is the subset of a Stripe event envelope the handler reads.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			PaymentStatus string `json:"payment_status"`
		} `json:"object"`
	} `json:"data"`
}

// Fulfiller is the part of the order service a confirmed payment drives.
type Fulfiller interface {
	Fulfill(ctx context.Context, paymentRef string) (*order.Order, error)
}

type Handler struct {
	orders    Fulfiller
	payments  payment.Repository
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewWebhookHandler(orders Fulfiller, payments payment.Repository, secret string) *Handler {
	return &Handler{
		orders:    orders,
		payments:  payments,
		secret:    secret,
		tolerance: payment.DefaultSignatureTolerance,
		now:       time.Now,
	}
}

// PaymentWebhookHandler receives provider events. Only a non-2xx response
// makes the provider retry, so permanent business failures are acknowledged.
func (h *Handler) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "webhook"),
		zap.String("provider", payment.ProviderStripe),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := payment.VerifySignature(body, r.Header.Get("Stripe-Signature"), h.secret, h.tolerance, h.now()); err != nil {
		log.Warn("webhook signature rejected", zap.Error(err))
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil || ev.ID == "" {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	log = log.With(
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type),
		zap.String("payment_ref", ev.Data.Object.ID),
	)

	webhookID, duplicate, err := h.payments.SavePaymentWebhook(
		ctx, payment.ProviderStripe, ev.ID, ev.Type, ev.Data.Object.ID, body, true,
	)
	if err != nil {
		log.Error("failed to log webhook", zap.Error(err))
		http.Error(w, "failed to record webhook", http.StatusInternalServerError)
		return
	}

	if duplicate {
		prev, err := h.payments.FindWebhook(ctx, payment.ProviderStripe, ev.ID)
		if err != nil {
			log.Error("failed to load logged webhook", zap.Error(err))
			http.Error(w, "failed to record webhook", http.StatusInternalServerError)
			return
		}
		if prev == nil || prev.ProcessedAt != nil {
			log.Info("duplicate webhook ignored")
			w.WriteHeader(http.StatusOK)
			return
		}
		log.Info("retrying unprocessed webhook")
		webhookID = prev.ID
	}

	switch ev.Type {
	case EventCheckoutCompleted, EventAsyncPaymentSucceeded:
	default:
		h.markProcessed(ctx, log, webhookID)
		w.WriteHeader(http.StatusOK)
		return
	}

	o, err := h.orders.Fulfill(ctx, ev.Data.Object.ID)
	if err != nil {
		h.markFailed(ctx, log, webhookID, err)

		if permanent(err) {
			// Delayed payment methods complete later through the async event.
			log.Warn("payment not fulfilled", zap.Error(err))
			w.WriteHeader(http.StatusOK)
			return
		}
		log.Error("fulfillment failed", zap.Error(err))
		http.Error(w, "failed to fulfill order", http.StatusInternalServerError)
		return
	}

	h.markProcessed(ctx, log, webhookID)
	log.Info("payment fulfilled", zap.String("tracking_code", o.TrackingCode))

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func permanent(err error) bool {
	return errors.Is(err, order.ErrPaymentNotConfirmed) ||
		errors.Is(err, order.ErrInsufficientStock) ||
		errors.Is(err, order.ErrEmptyCart) ||
		errors.Is(err, order.ErrInvalidPaymentReference)
}

func (h *Handler) markProcessed(ctx context.Context, log *zap.Logger, id int64) {
	if err := h.payments.MarkWebhookProcessed(ctx, id); err != nil {
		log.Error("failed to mark webhook processed", zap.Error(err))
	}
}

func (h *Handler) markFailed(ctx context.Context, log *zap.Logger, id int64, cause error) {
	if err := h.payments.MarkWebhookFailed(ctx, id, cause.Error()); err != nil {
		log.Error("failed to mark webhook failed", zap.Error(err))
	}
}
