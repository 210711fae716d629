package rest

import (
	"net/http"

	"essenza-be/internal/utils"
)

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	url, err := h.orders.Checkout(ctx, identityFrom(r), utils.GetUserRoleFromContext(ctx), utils.GetUserEmailFromContext(ctx))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, checkoutResponse{CheckoutURL: url})
	return nil
}

// checkoutSuccess is where the provider sends the buyer back. The webhook
// may have fulfilled the order already; Fulfill returns it either way.
func (h *Handler) checkoutSuccess(w http.ResponseWriter, r *http.Request) error {
	o, err := h.orders.Fulfill(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o, false))
	return nil
}

func (h *Handler) checkoutCancelled(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]string{"message": "checkout cancelled, your cart was kept"})
	return nil
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, _ := utils.GetUserIDFromContext(ctx)

	orders, err := h.orders.History(ctx, uid, utils.GetUserEmailFromContext(ctx))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newOrderList(orders, false))
	return nil
}

func (h *Handler) track(w http.ResponseWriter, r *http.Request) error {
	var req trackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	o, err := h.orders.Track(r.Context(), req.TrackingCode, req.Email)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o, false))
	return nil
}
