package rest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) adminOrders(w http.ResponseWriter, r *http.Request) error {
	orders, err := h.orders.AdminList(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newOrderList(orders, true))
	return nil
}

func (h *Handler) adminOrder(w http.ResponseWriter, r *http.Request) error {
	o, err := h.orders.GetByTrackingCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o, true))
	return nil
}

func (h *Handler) adminSetStatus(w http.ResponseWriter, r *http.Request) error {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	o, err := h.orders.SetStatus(r.Context(), chi.URLParam(r, "code"), req.Status)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o, true))
	return nil
}

func (h *Handler) stockList(w http.ResponseWriter, r *http.Request) error {
	products, err := h.products.StockList(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, products)
	return nil
}

type stockRequest struct {
	// Stock is taken verbatim; a number or a quoted string are both accepted.
	Stock json.RawMessage `json:"stock"`
}

func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) error {
	productID, err := productIDParam(r)
	if err != nil {
		return err
	}

	var req stockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	raw := strings.TrimSpace(string(req.Stock))
	var s string
	if err := json.Unmarshal(req.Stock, &s); err == nil {
		raw = s
	} else if raw == "null" {
		raw = ""
	}

	if err := h.products.SetStock(r.Context(), productID, raw); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) error {
	report, err := h.orders.SalesReport(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newReportResponse(report))
	return nil
}

func (h *Handler) notificationStats(w http.ResponseWriter, r *http.Request) error {
	if h.stats == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	writeJSON(w, http.StatusOK, h.stats.Stats())
	return nil
}
