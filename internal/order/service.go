package order

import (
	"context"
	"errors"
	"strings"

	"essenza-be/internal/cart"
	"essenza-be/internal/logger"
	"essenza-be/internal/notify"
	"essenza-be/internal/payment"
	"essenza-be/internal/user"
	"essenza-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	// Checkout opens a provider payment session for the current cart and
	// returns the URL to redirect the buyer to.
	Checkout(ctx context.Context, id cart.Identity, role, email string) (string, error)
	// Fulfill turns a confirmed payment into an order. Repeated calls with the
	// same reference return the same order.
	Fulfill(ctx context.Context, paymentRef string) (*Order, error)
	History(ctx context.Context, userID uint, email string) ([]Order, error)
	AdminList(ctx context.Context, rawStatus string) ([]Order, error)
	Track(ctx context.Context, code, email string) (*Order, error)
	GetByTrackingCode(ctx context.Context, code string) (*Order, error)
	// SetStatus applies an admin status change. Unknown status names are ignored.
	SetStatus(ctx context.Context, code, rawStatus string) (*Order, error)
	// SalesReport builds the admin report named by rawType; unknown names
	// give the full sales history.
	SalesReport(ctx context.Context, rawType string) (*SalesReport, error)
}

// IdentityProvider resolves a payer email to a registered user.
type IdentityProvider interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
}

// Dispatcher hands notifications to background workers without blocking.
type Dispatcher interface {
	Dispatch(msg notify.Message) bool
}

type Config struct {
	DomainURL         string
	Currency          string
	ShippingCountries []string
}

type service struct {
	repo     Repository
	carts    cart.Service
	gateway  payment.Gateway
	users    IdentityProvider
	notifier Dispatcher
	cfg      Config
}

func NewService(
	repo Repository,
	carts cart.Service,
	gateway payment.Gateway,
	users IdentityProvider,
	notifier Dispatcher,
	cfg Config,
) Service {
	if cfg.Currency == "" {
		cfg.Currency = payment.CurrencyEUR
	}
	cfg.DomainURL = strings.TrimRight(cfg.DomainURL, "/")

	return &service{
		repo:     repo,
		carts:    carts,
		gateway:  gateway,
		users:    users,
		notifier: notifier,
		cfg:      cfg,
	}
}

func (s *service) Checkout(ctx context.Context, id cart.Identity, role, email string) (string, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Checkout"),
		zap.String("identity", id.Reference()),
	)

	if role == utils.RoleAdmin {
		return "", ErrAdminCheckout
	}

	snap, err := s.carts.Resolve(ctx, id)
	if err != nil {
		return "", err
	}
	if snap.Empty() {
		return "", ErrEmptyCart
	}

	items := make([]payment.LineItem, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		items = append(items, payment.LineItem{
			Name:       l.Name,
			UnitAmount: payment.ToMinorUnits(l.UnitPrice),
			Quantity:   l.Quantity,
		})
	}

	in := payment.CreateSessionInput{
		LineItems:         items,
		Currency:          s.cfg.Currency,
		SuccessURL:        s.cfg.DomainURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         s.cfg.DomainURL + "/checkout/cancelled",
		ClientReference:   id.Reference(),
		ShippingCountries: s.cfg.ShippingCountries,
	}
	if id.Authenticated() {
		in.CustomerEmail = email
	}

	sess, err := s.gateway.CreateSession(ctx, in)
	if err != nil {
		log.Error("failed to create payment session", zap.Error(err))
		return "", err
	}

	log.Info("payment session created",
		zap.String("session_id", sess.ID),
		zap.String("total", snap.Total().StringFixed(2)),
	)
	return sess.URL, nil
}

func (s *service) Fulfill(ctx context.Context, paymentRef string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Fulfill"),
		zap.String("payment_ref", paymentRef),
	)

	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return nil, ErrInvalidPaymentReference
	}

	// Idempotency: a payment produces at most one order.
	existing, err := s.repo.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Info("order already fulfilled", zap.String("tracking_code", existing.TrackingCode))
		return existing, nil
	}

	sess, err := s.gateway.RetrieveSession(ctx, paymentRef)
	if err != nil {
		log.Error("failed to retrieve payment session", zap.Error(err))
		return nil, err
	}
	if !sess.Paid() {
		log.Warn("payment not confirmed", zap.String("payment_status", sess.PaymentStatus))
		return nil, ErrPaymentNotConfirmed
	}

	identity, err := cart.ParseIdentity(sess.ClientReference)
	if err != nil {
		log.Error("payment session carries no cart identity", zap.String("reference", sess.ClientReference))
		return nil, ErrInvalidPaymentReference
	}

	// The cart is re-read now; any earlier snapshot may be stale.
	snap, err := s.carts.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}
	if snap.Empty() {
		log.Warn("cart empty at fulfillment")
		return nil, ErrEmptyCart
	}

	o := &Order{
		Email:      sess.CustomerEmail,
		Status:     StatusPreparing,
		PaymentRef: paymentRef,
		Lines:      make([]Line, 0, len(snap.Lines)),
	}
	if sess.Address != nil {
		o.Address = sess.Address.Format()
	}
	for _, l := range snap.Lines {
		o.Lines = append(o.Lines, Line{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}

	if o.Email != "" {
		u, err := s.users.FindByEmail(ctx, o.Email)
		switch {
		case err == nil && u != nil:
			o.UserID = &u.ID
		case err != nil && !errors.Is(err, user.ErrUserNotFound):
			log.Warn("user lookup failed, recording guest order", zap.Error(err))
		}
	}

	var cartOwner uint
	if identity.Authenticated() {
		cartOwner = identity.UserID
	}

	// Once the transaction starts the buyer disconnecting must not abort it.
	txCtx := context.WithoutCancel(ctx)
	if err := s.repo.CreateOrderTx(txCtx, o, cartOwner); err != nil {
		if errors.Is(err, errDuplicatePayment) {
			existing, err := s.repo.GetByPaymentRef(txCtx, paymentRef)
			if err != nil {
				return nil, err
			}
			if existing == nil {
				return nil, ErrOrderNotFound
			}
			return existing, nil
		}
		if errors.Is(err, ErrInsufficientStock) {
			log.Warn("fulfillment rejected", zap.Error(err))
		} else {
			log.Error("fulfillment failed", zap.Error(err))
		}
		return nil, err
	}

	if !identity.Authenticated() {
		if err := s.carts.Clear(txCtx, identity); err != nil {
			log.Warn("failed to clear session cart", zap.Error(err))
		}
	}

	s.notify(txCtx, o)

	log.Info("order fulfilled",
		zap.Uint("order_id", o.ID),
		zap.String("tracking_code", o.TrackingCode),
	)
	return o, nil
}

func (s *service) notify(ctx context.Context, o *Order) {
	msg := notify.Message{
		OrderID:      o.ID,
		TrackingCode: o.TrackingCode,
		Email:        o.Email,
		Address:      o.Address,
		Total:        o.Total().StringFixed(2),
		TrackingURL:  s.cfg.DomainURL + "/orders/track",
		PlacedAt:     o.PlacedAt,
	}
	if !s.notifier.Dispatch(msg) {
		logger.FromCtx(ctx).Warn("order confirmation not queued",
			zap.String("tracking_code", o.TrackingCode),
		)
	}
}

func (s *service) History(ctx context.Context, userID uint, email string) ([]Order, error) {
	return s.repo.History(ctx, userID, email)
}

func (s *service) AdminList(ctx context.Context, rawStatus string) ([]Order, error) {
	var filter *Status
	if st, ok := ParseStatus(rawStatus); ok {
		filter = &st
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Track(ctx context.Context, code, email string) (*Order, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	email = strings.TrimSpace(email)
	if code == "" || email == "" {
		return nil, ErrOrderNotFound
	}

	o, err := s.repo.FindByTracking(ctx, code, email)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) GetByTrackingCode(ctx context.Context, code string) (*Order, error) {
	o, err := s.repo.GetByTrackingCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) SetStatus(ctx context.Context, code, rawStatus string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "SetStatus"),
		zap.String("tracking_code", code),
	)

	o, err := s.GetByTrackingCode(ctx, code)
	if err != nil {
		return nil, err
	}

	next, ok := ParseStatus(rawStatus)
	if !ok {
		log.Info("ignoring unknown status", zap.String("status", rawStatus))
		return o, nil
	}
	if next == o.Status {
		return o, nil
	}
	if err := ValidateTransition(o.Status, next); err != nil {
		log.Warn("rejected status transition",
			zap.String("from", string(o.Status)),
			zap.String("to", string(next)),
		)
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, o.ID, next); err != nil {
		log.Error("failed to update status", zap.Error(err))
		return nil, err
	}

	log.Info("order status updated",
		zap.String("from", string(o.Status)),
		zap.String("to", string(next)),
	)
	o.Status = next
	return o, nil
}

func (s *service) SalesReport(ctx context.Context, rawType string) (*SalesReport, error) {
	report := &SalesReport{Type: ParseReportType(rawType)}

	var err error
	switch report.Type {
	case ReportByProduct:
		report.Products, err = s.repo.SalesByProduct(ctx)
	case ReportByUser:
		report.Users, err = s.repo.SalesByUser(ctx)
	default:
		report.Orders, err = s.repo.List(ctx, nil)
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to build sales report",
			zap.String("layer", "service"),
			zap.String("method", "SalesReport"),
			zap.String("report", string(report.Type)),
			zap.Error(err),
		)
		return nil, err
	}
	return report, nil
}
