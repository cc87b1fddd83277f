package httpapi

import (
	"context"
	"net/http"
	"time"

	"petcare-be/internal/cart"
	"petcare-be/internal/transport"
	"petcare-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	svc     cart.Service
	timeout time.Duration
}

func NewCartHandler(svc cart.Service, timeout time.Duration) *CartHandler {
	return &CartHandler{svc: svc, timeout: timeout}
}

type AddItemRequest struct {
	Type        cart.LineType     `json:"type"`
	ID          string            `json:"id"`
	Quantity    int               `json:"quantity"`
	ServiceData *cart.ServiceData `json:"service_data,omitempty"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	state, err := h.svc.Get(ctx, transport.CartOwnerFrom(r.Context()))
	if err != nil {
		writeCartError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, toCartResponse(state))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity < 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	state, err := h.svc.AddItem(ctx, transport.CartOwnerFrom(r.Context()), cart.AddItemInput{
		Type:        req.Type,
		ID:          req.ID,
		Quantity:    req.Quantity,
		ServiceData: req.ServiceData,
	})
	if err != nil {
		writeCartError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, toCartResponse(state))
}

// UpdateQuantity with a quantity of zero or less removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	state, err := h.svc.UpdateQuantity(ctx, transport.CartOwnerFrom(r.Context()), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		writeCartError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, toCartResponse(state))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	state, err := h.svc.RemoveItem(ctx, transport.CartOwnerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeCartError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, toCartResponse(state))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	state, err := h.svc.Clear(ctx, transport.CartOwnerFrom(r.Context()))
	if err != nil {
		writeCartError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, toCartResponse(state))
}

// Count backs the header badge.
func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	n, err := h.svc.ItemCount(ctx, transport.CartOwnerFrom(r.Context()))
	if err != nil {
		writeCartError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]int{"count": n})
}
