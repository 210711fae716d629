package rest

import (
	"net/http"

	"essenza-be/internal/auth"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) error {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	token, u, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	auth.SetAccessTokenCookie(w, token, h.tokenTTL, h.secure)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: u})
	return nil
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) error {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	token, u, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	auth.SetAccessTokenCookie(w, token, h.tokenTTL, h.secure)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: u})
	return nil
}
