package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"petcare-be/internal/cart"
	"petcare-be/internal/logger"
	"petcare-be/internal/order"
	"petcare-be/internal/payment"
	"petcare-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type CheckoutHandler struct {
	carts   cart.Service
	orders  order.Service
	timeout time.Duration
}

func NewCheckoutHandler(carts cart.Service, orders order.Service, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{carts: carts, orders: orders, timeout: timeout}
}

// Submit checks out the signed-in user's cart. The order service detaches the
// writes from the request, so h.timeout only bounds loading the cart.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		writeOrderError(w, r, order.ErrAuthenticationRequired)
		return
	}

	var form order.DeliveryForm
	if err := decodeJSON(w, r, &form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key == "" {
		key = uuid.NewString()
	}

	owner := cart.UserOwner(userID)

	loadCtx, cancel := context.WithTimeout(r.Context(), h.timeout)
	state, err := h.carts.Get(loadCtx, owner)
	cancel()
	if err != nil {
		writeCartError(w, r, err)
		return
	}

	res, err := h.orders.Submit(r.Context(), order.SubmitRequest{
		CartOwner:      owner,
		Cart:           state,
		Delivery:       form,
		IdempotencyKey: key,
	})
	if err != nil {
		w.Header().Set(IdempotencyKeyHeader, key)
		writeOrderError(w, r, err)
		return
	}

	if res.AppointmentsFailed {
		logger.FromCtx(r.Context()).Warn("order placed without appointments",
			zap.String("order_number", res.Order.OrderNumber),
		)
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}

	total := cart.FormatMoney(res.Order.TotalAmount, res.Order.Currency)
	method := string(res.Order.PaymentMethod)

	w.Header().Set(IdempotencyKeyHeader, key)
	utils.WriteJSON(w, status, CheckoutResponse{
		OrderID:            res.Order.ID.String(),
		OrderNumber:        res.Order.OrderNumber,
		Status:             res.Order.Status,
		TotalAmount:        res.Order.TotalAmount,
		FormattedTotal:     total,
		ItemCount:          len(res.Items),
		AppointmentCount:   len(res.Appointments),
		AppointmentsFailed: res.AppointmentsFailed,
		Replayed:           res.Replayed,
		IdempotencyKey:     key,
		PaymentMethod:      method,
		PaymentSteps:       payment.Render(method, total, res.Order.OrderNumber),
	})
}

// AttemptStatus lets a client that lost the response poll its checkout.
func (h *CheckoutHandler) AttemptStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
		writeOrderError(w, r, order.ErrAuthenticationRequired)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	a, err := h.orders.AttemptStatus(ctx, chi.URLParam(r, "key"))
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, a)
}

func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, items, err := h.orders.GetOrder(ctx, chi.URLParam(r, "number"))
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, OrderResponse{
		Order:          o,
		FormattedTotal: cart.FormatMoney(o.TotalAmount, o.Currency),
		Items:          items,
	})
}
