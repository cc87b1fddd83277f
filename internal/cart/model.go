package cart

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type LineType string

const (
	LineTypeProduct LineType = "product"
	LineTypeService LineType = "service"
)

// LineItem holds the fields shared by every cart line. Price, provider name and
// fulfillment options are a snapshot taken when the line was added.
type LineItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Quantity     int             `json:"quantity"`
	ProviderID   string          `json:"provider_id"`
	ProviderName string          `json:"provider_name"`
	HasDelivery  bool            `json:"has_delivery"`
	HasPickup    bool            `json:"has_pickup"`
	DeliveryFee  decimal.Decimal `json:"delivery_fee"`
}

func (li LineItem) Item() LineItem { return li }

// Subtotal is price × quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ServiceData is the booking captured when a service is added to the cart.
type ServiceData struct {
	ServiceID       string `json:"service_id"`
	AppointmentDate string `json:"appointment_date"`
	TimeSlotID      string `json:"time_slot_id"`
	ClientName      string `json:"client_name"`
	ClientPhone     string `json:"client_phone"`
	ClientEmail     string `json:"client_email"`
	Notes           string `json:"notes,omitempty"`
}

// Line is either a ProductLine or a ServiceLine.
type Line interface {
	Item() LineItem
	Type() LineType
	withQuantity(q int) Line
}

type ProductLine struct {
	LineItem
}

func (ProductLine) Type() LineType { return LineTypeProduct }

func (l ProductLine) withQuantity(q int) Line {
	l.Quantity = q
	return l
}

type ServiceLine struct {
	LineItem
	Booking ServiceData
}

func (ServiceLine) Type() LineType { return LineTypeService }

func (l ServiceLine) withQuantity(q int) Line {
	l.Quantity = q
	return l
}

// State is the whole cart. Totals are derived from Items by the Reducer.
type State struct {
	Items       []Line
	Total       decimal.Decimal
	DeliveryFee decimal.Decimal
	GrandTotal  decimal.Decimal
}

// Empty returns a cart with no items and zero totals.
func Empty() State {
	return State{Items: []Line{}}
}

func (s State) Find(id string) (Line, bool) {
	for _, l := range s.Items {
		if l.Item().ID == id {
			return l, true
		}
	}
	return nil, false
}

func (s State) ServiceLines() []ServiceLine {
	var out []ServiceLine
	for _, l := range s.Items {
		if sl, ok := l.(ServiceLine); ok {
			out = append(out, sl)
		}
	}
	return out
}

// ItemCount is the sum of quantities, shown on the cart badge.
func (s State) ItemCount() int {
	n := 0
	for _, l := range s.Items {
		n += l.Item().Quantity
	}
	return n
}

// UserOwner and GuestOwner build the persistence key suffix of a cart.
func UserOwner(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func GuestOwner(cartID string) string {
	return "guest:" + strings.TrimSpace(cartID)
}
