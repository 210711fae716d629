package rest

import (
	"net/http"

	"essenza-be/internal/utils"
)

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) error {
	products, err := h.products.Dashboard(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, products)
	return nil
}

func (h *Handler) productDetail(w http.ResponseWriter, r *http.Request) error {
	productID, err := productIDParam(r)
	if err != nil {
		return err
	}

	p, err := h.products.GetActive(r.Context(), productID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, p)
	return nil
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) error {
	return h.writeCart(w, r, http.StatusOK)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) error {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.ProductID == 0 {
		return badRequest("product_id is required")
	}

	if err := h.carts.Add(r.Context(), identityFrom(r), req.ProductID, req.Quantity); err != nil {
		return err
	}
	return h.writeCart(w, r, http.StatusOK)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) error {
	productID, err := productIDParam(r)
	if err != nil {
		return err
	}

	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	if err := h.carts.Update(r.Context(), identityFrom(r), productID, req.Quantity); err != nil {
		return err
	}
	return h.writeCart(w, r, http.StatusOK)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) error {
	productID, err := productIDParam(r)
	if err != nil {
		return err
	}

	if err := h.carts.Remove(r.Context(), identityFrom(r), productID); err != nil {
		return err
	}
	return h.writeCart(w, r, http.StatusOK)
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, status int) error {
	snap, err := h.carts.Resolve(r.Context(), identityFrom(r))
	if err != nil {
		return err
	}
	writeJSON(w, status, newCartResponse(snap))
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	utils.WriteJSON(w, status, v)
}
