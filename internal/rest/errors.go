package rest

import (
	"errors"
	"net/http"

	"essenza-be/internal/cart"
	"essenza-be/internal/logger"
	"essenza-be/internal/order"
	"essenza-be/internal/product"
	"essenza-be/internal/user"
	"essenza-be/internal/utils"

	"go.uber.org/zap"
)

type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &httpError{status: http.StatusBadRequest, msg: msg}
}

var errorStatus = []struct {
	err    error
	status int
	msg    string
}{
	// -- auth --
	{user.ErrInvalidInput, http.StatusBadRequest, user.ErrInvalidInput.Error()},
	{user.ErrEmailExists, http.StatusConflict, user.ErrEmailExists.Error()},
	{user.ErrInvalidCredentials, http.StatusUnauthorized, user.ErrInvalidCredentials.Error()},

	// -- cart --
	{cart.ErrNoIdentity, http.StatusBadRequest, "no cart session"},
	{cart.ErrProductNotFound, http.StatusNotFound, "product not found"},
	{product.ErrProductNotFound, http.StatusNotFound, "product not found"},
	{cart.ErrOutOfStock, http.StatusConflict, "product is out of stock"},
	{cart.ErrCartItemNotFound, http.StatusNotFound, "item is not in the cart"},

	// -- checkout --
	{order.ErrAdminCheckout, http.StatusForbidden, "administrators cannot place orders"},
	{order.ErrEmptyCart, http.StatusBadRequest, "your cart is empty"},
	{order.ErrInsufficientStock, http.StatusConflict, "some items are no longer available in the requested quantity"},
	{order.ErrPaymentNotConfirmed, http.StatusPaymentRequired, "payment has not been confirmed"},
	{order.ErrInvalidPaymentReference, http.StatusBadRequest, "invalid payment reference"},

	// -- orders --
	{order.ErrOrderNotFound, http.StatusNotFound, "order not found"},
	{order.ErrInvalidStatusTransition, http.StatusConflict, "order status cannot move backwards"},
}

func classify(err error) (int, string) {
	var he *httpError
	if errors.As(err, &he) {
		return he.status, he.msg
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.msg
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)

	log := logger.FromCtx(r.Context()).With(
		zap.String("layer", "rest"),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
	)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Debug("request rejected", zap.Error(err))
	}

	utils.WriteJSONError(w, msg, status)
}
