package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"essenza-be/internal/cart"
	"essenza-be/internal/config"
	"essenza-be/internal/db"
	"essenza-be/internal/inventory"
	"essenza-be/internal/logger"
	"essenza-be/internal/middleware"
	"essenza-be/internal/notify"
	"essenza-be/internal/order"
	"essenza-be/internal/payment"
	"essenza-be/internal/payment/webhook"
	"essenza-be/internal/product"
	"essenza-be/internal/rest"
	"essenza-be/internal/session"
	"essenza-be/internal/user"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 20 * time.Second

var (
	initDBFunc      = db.InitDB
	initRedisFunc   = db.NewRedis
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

// server holds the wired application and what must be released on shutdown.
type server struct {
	router     http.Handler
	limiter    *middleware.Limiter
	dispatcher *notify.Dispatcher
	closers    []func() error
}

func newServer(cfg *config.Config, database *sql.DB, sessions session.Store) *server {
	ledger := inventory.NewLedger(database)

	productRepo := product.NewRepository(database)
	productSvc := product.NewService(productRepo, ledger)

	userRepo := user.NewRepository(database)
	tokens := user.NewTokens(cfg.JWTSecret, user.DefaultTokenTTL)
	userSvc := user.NewService(userRepo, tokens)

	cartSvc := cart.NewService(
		cart.NewPersistedBackend(database),
		cart.NewSessionBackend(sessions, productRepo),
		productRepo,
	)

	notifier, closers := buildNotifier(cfg)
	dispatcher := notify.NewDispatcher(notifier, cfg.NotifyWorkers, cfg.NotifyQueueSize)

	orderSvc := order.NewService(
		order.NewRepository(database, ledger),
		cartSvc,
		payment.NewStripeGateway(cfg.StripeSecretKey),
		userRepo,
		dispatcher,
		order.Config{
			DomainURL:         cfg.DomainURL,
			Currency:          payment.CurrencyEUR,
			ShippingCountries: cfg.ShippingCountries,
		},
	)

	webhookHandler := webhook.NewWebhookHandler(orderSvc, payment.NewRepository(database), cfg.StripeWebhookSecret)

	api := rest.NewHandler(rest.Deps{
		Users:         userSvc,
		Products:      productSvc,
		Carts:         cartSvc,
		Orders:        orderSvc,
		Stats:         dispatcher,
		TokenTTL:      user.DefaultTokenTTL,
		SecureCookies: secureCookies(cfg),
	})

	limiter := middleware.NewLimiter(cfg.InternalServiceKey)

	return &server{
		router:     setupRouter(cfg, api, tokens, limiter, webhookHandler.PaymentWebhookHandler),
		limiter:    limiter,
		dispatcher: dispatcher,
		closers:    closers,
	}
}

func secureCookies(cfg *config.Config) bool {
	return cfg.AppEnv == "production"
}

// buildNotifier fans confirmations out to every configured transport.
func buildNotifier(cfg *config.Config) (notify.Notifier, []func() error) {
	var (
		notifiers notify.Multi
		closers   []func() error
	)

	if cfg.SMTPHost != "" {
		notifiers = append(notifiers, notify.NewEmailNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}))
	}

	if len(cfg.KafkaBrokers) > 0 {
		kn := notify.NewKafkaNotifier(notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		notifiers = append(notifiers, kn)
		closers = append(closers, kn.Close)
	}

	if len(notifiers) == 0 {
		logger.L().Warn("no notification transport configured, confirmations are discarded")
		return notify.Noop{}, closers
	}
	return notifiers, closers
}

func setupRouter(
	cfg *config.Config,
	api *rest.Handler,
	tokens middleware.TokenParser,
	limiter *middleware.Limiter,
	webhookHandler http.HandlerFunc,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.StripSlashes)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(middleware.CORS(cfg.CORSOrigin))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Provider callbacks carry no browser session or user token.
	r.With(limiter.Middleware).Post("/webhook/payment", webhookHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(secureCookies(cfg)))
		r.Use(middleware.Auth(tokens))
		r.Use(limiter.Middleware)

		api.RegisterRoutes(r)
	})

	return r
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	database := initDBFunc(cfg)
	defer database.Close()

	rdb, err := initRedisFunc(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	app := newServer(cfg, database, session.NewRedisStore(rdb, session.DefaultTTL))

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server running", zap.String("addr", srv.Addr))
		defer stop()

		if err := startServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.limiter.Cleanup(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server failed to shut down gracefully: %w", err)
		}
		return nil
	})

	err = g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if derr := app.dispatcher.Close(drainCtx); derr != nil {
		log.Warn("notification queue not drained", zap.Error(derr))
	}
	for _, c := range app.closers {
		if cerr := c(); cerr != nil {
			log.Warn("failed to close resource", zap.Error(cerr))
		}
	}

	log.Info("server stopped", zap.Any("notifications", app.dispatcher.Stats()))
	return err
}
