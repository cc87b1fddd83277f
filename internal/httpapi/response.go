package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"petcare-be/internal/cart"
	"petcare-be/internal/logger"
	"petcare-be/internal/order"
	"petcare-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultCurrency    = "GTQ"
	maxRequestBodySize = 1 << 20
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

type CartLineResponse struct {
	Type              cart.LineType     `json:"type"`
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	ImageURL          string            `json:"image_url,omitempty"`
	Price             decimal.Decimal   `json:"price"`
	FormattedPrice    string            `json:"formatted_price"`
	Currency          string            `json:"currency"`
	Quantity          int               `json:"quantity"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	FormattedSubtotal string            `json:"formatted_subtotal"`
	ProviderID        string            `json:"provider_id"`
	ProviderName      string            `json:"provider_name"`
	HasDelivery       bool              `json:"has_delivery"`
	HasPickup         bool              `json:"has_pickup"`
	DeliveryFee       decimal.Decimal   `json:"delivery_fee"`
	ServiceData       *cart.ServiceData `json:"service_data,omitempty"`
}

type CartResponse struct {
	Items                []CartLineResponse `json:"items"`
	ItemCount            int                `json:"item_count"`
	Currency             string             `json:"currency"`
	Total                decimal.Decimal    `json:"total"`
	DeliveryFee          decimal.Decimal    `json:"delivery_fee"`
	GrandTotal           decimal.Decimal    `json:"grand_total"`
	FormattedTotal       string             `json:"formatted_total"`
	FormattedDeliveryFee string             `json:"formatted_delivery_fee"`
	FormattedGrandTotal  string             `json:"formatted_grand_total"`
}

func toCartResponse(s cart.State) CartResponse {
	currency := defaultCurrency
	if len(s.Items) > 0 {
		currency = s.Items[0].Item().Currency
	}

	items := make([]CartLineResponse, 0, len(s.Items))
	for _, l := range s.Items {
		li := l.Item()
		line := CartLineResponse{
			Type:              l.Type(),
			ID:                li.ID,
			Name:              li.Name,
			Description:       li.Description,
			ImageURL:          li.ImageURL,
			Price:             li.Price,
			FormattedPrice:    cart.FormatMoney(li.Price, li.Currency),
			Currency:          li.Currency,
			Quantity:          li.Quantity,
			Subtotal:          li.Subtotal(),
			FormattedSubtotal: cart.FormatMoney(li.Subtotal(), li.Currency),
			ProviderID:        li.ProviderID,
			ProviderName:      li.ProviderName,
			HasDelivery:       li.HasDelivery,
			HasPickup:         li.HasPickup,
			DeliveryFee:       li.DeliveryFee,
		}
		if sl, ok := l.(cart.ServiceLine); ok {
			booking := sl.Booking
			line.ServiceData = &booking
		}
		items = append(items, line)
	}

	return CartResponse{
		Items:                items,
		ItemCount:            s.ItemCount(),
		Currency:             currency,
		Total:                s.Total,
		DeliveryFee:          s.DeliveryFee,
		GrandTotal:           s.GrandTotal,
		FormattedTotal:       cart.FormatMoney(s.Total, currency),
		FormattedDeliveryFee: cart.FormatMoney(s.DeliveryFee, currency),
		FormattedGrandTotal:  cart.FormatMoney(s.GrandTotal, currency),
	}
}

type CheckoutResponse struct {
	OrderID            string          `json:"order_id"`
	OrderNumber        string          `json:"order_number"`
	Status             order.Status    `json:"status"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	FormattedTotal     string          `json:"formatted_total"`
	ItemCount          int             `json:"item_count"`
	AppointmentCount   int             `json:"appointment_count"`
	AppointmentsFailed bool            `json:"appointments_failed"`
	Replayed           bool            `json:"replayed"`
	IdempotencyKey     string          `json:"idempotency_key"`
	PaymentMethod      string          `json:"payment_method"`
	PaymentSteps       []string        `json:"payment_instructions"`
}

type OrderResponse struct {
	*order.Order
	FormattedTotal string            `json:"formatted_total"`
	Items          []order.OrderItem `json:"items"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	utils.WriteJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeCartError maps cart errors to HTTP statuses.
func writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrOwnerRequired),
		errors.Is(err, cart.ErrInvalidLineType),
		errors.Is(err, cart.ErrItemIDRequired),
		errors.Is(err, cart.ErrMissingServiceData),
		errors.Is(err, cart.ErrInvalidAppointment):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, cart.ErrOfferingNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, cart.ErrFailedLoad), errors.Is(err, cart.ErrFailedSave):
		logger.FromCtx(r.Context()).Error("cart storage unavailable", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "cart_unavailable", "Your cart is temporarily unavailable. Please try again.")
	default:
		logger.FromCtx(r.Context()).Error("unexpected cart error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// writeOrderError maps checkout errors to HTTP statuses. Remote write failures
// get a generic retry prompt; the cart is left as it was.
func writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *order.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Please complete the required fields.",
			Code:   "validation_error",
			Fields: verr.Fields,
		})
	case errors.Is(err, order.ErrAuthenticationRequired):
		respondError(w, http.StatusUnauthorized, "authentication_required", "Please sign in to complete your order.")
	case errors.Is(err, order.ErrSubmissionInProgress):
		respondError(w, http.StatusConflict, "submission_in_progress", "Your order is already being processed.")
	case errors.Is(err, order.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", "order not found")
	case errors.Is(err, order.ErrTimeout):
		respondError(w, http.StatusGatewayTimeout, "timeout", "The order service took too long to respond. Please try again.")
	case errors.Is(err, order.ErrOrderCreationFailed), errors.Is(err, order.ErrOrderItemsCreationFailed):
		respondError(w, http.StatusBadGateway, "order_failed", "We could not place your order. Please try again.")
	default:
		logger.FromCtx(r.Context()).Error("unexpected checkout error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
