package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"essenza-be/internal/cart"
	"essenza-be/internal/metrics"
	"essenza-be/internal/middleware"
	"essenza-be/internal/order"
	"essenza-be/internal/product"
	"essenza-be/internal/user"
	"essenza-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

const maxRequestBody = 1 << 20

// NotificationStats reports the confirmation dispatcher counters.
type NotificationStats interface {
	Stats() metrics.NotificationsSnapshot
}

type Deps struct {
	Users    user.Service
	Products product.Service
	Carts    cart.Service
	Orders   order.Service
	Stats    NotificationStats

	TokenTTL      time.Duration
	SecureCookies bool
}

type Handler struct {
	users    user.Service
	products product.Service
	carts    cart.Service
	orders   order.Service
	stats    NotificationStats

	tokenTTL time.Duration
	secure   bool
}

func NewHandler(d Deps) *Handler {
	if d.TokenTTL <= 0 {
		d.TokenTTL = user.DefaultTokenTTL
	}
	return &Handler{
		users:    d.Users,
		products: d.Products,
		carts:    d.Carts,
		orders:   d.Orders,
		stats:    d.Stats,
		tokenTTL: d.TokenTTL,
		secure:   d.SecureCookies,
	}
}

// apiFunc is a handler whose error is rendered by writeError.
type apiFunc func(w http.ResponseWriter, r *http.Request) error

func makeHandler(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/products", makeHandler(h.dashboard))
	r.Get("/products/{productID}", makeHandler(h.productDetail))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", makeHandler(h.register))
		r.Post("/login", makeHandler(h.login))
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", makeHandler(h.getCart))
		r.Post("/items", makeHandler(h.addItem))
		r.Patch("/items/{productID}", makeHandler(h.updateItem))
		r.Delete("/items/{productID}", makeHandler(h.removeItem))
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/", makeHandler(h.checkout))
		r.Get("/success", makeHandler(h.checkoutSuccess))
		r.Get("/cancelled", makeHandler(h.checkoutCancelled))
	})

	r.With(middleware.RequireAuth).Get("/orders", makeHandler(h.history))
	r.Post("/orders/track", makeHandler(h.track))

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)

		r.Get("/orders", makeHandler(h.adminOrders))
		r.Get("/orders/{code}", makeHandler(h.adminOrder))
		r.Patch("/orders/{code}/status", makeHandler(h.adminSetStatus))

		r.Get("/stock", makeHandler(h.stockList))
		r.Put("/stock/{productID}", makeHandler(h.setStock))

		r.Get("/reports", makeHandler(h.salesReport))
		r.Get("/reports/{type}", makeHandler(h.salesReport))

		r.Get("/metrics/notifications", makeHandler(h.notificationStats))
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v); err != nil {
		if err == io.EOF {
			return badRequest("request body is required")
		}
		return badRequest("invalid request payload")
	}
	return nil
}

// identityFrom picks the user cart for logged-in callers and the session
// cart otherwise.
func identityFrom(r *http.Request) cart.Identity {
	if uid, ok := utils.GetUserIDFromContext(r.Context()); ok {
		return cart.Identity{UserID: uid}
	}
	return cart.Identity{SessionID: utils.GetSessionIDFromContext(r.Context())}
}

func productIDParam(r *http.Request) (uint, error) {
	id, err := utils.ToUint(chi.URLParam(r, "productID"))
	if err != nil || id == 0 {
		return 0, badRequest("invalid product id")
	}
	return id, nil
}
