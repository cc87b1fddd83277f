package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const StatusConfirmed Status = "confirmed"

type PaymentStatus string

// Payment is simulated: every persisted order is already paid.
const PaymentCompleted PaymentStatus = "completed"

type PaymentMethod string

const (
	PaymentCard     PaymentMethod = "card"
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentCash, PaymentTransfer:
		return true
	}
	return false
}

type AppointmentStatus string

const AppointmentPending AppointmentStatus = "pending"

type Order struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	OrderNumber     string          `db:"order_number" json:"order_number"`
	ClientID        uint            `db:"client_id" json:"client_id"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	DeliveryFee     decimal.Decimal `db:"delivery_fee" json:"delivery_fee"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Currency        string          `db:"currency" json:"currency"`
	Status          Status          `db:"status" json:"status"`
	PaymentMethod   PaymentMethod   `db:"payment_method" json:"payment_method"`
	PaymentStatus   PaymentStatus   `db:"payment_status" json:"payment_status"`
	DeliveryName    string          `db:"delivery_name" json:"delivery_name"`
	DeliveryPhone   string          `db:"delivery_phone" json:"delivery_phone"`
	DeliveryAddress string          `db:"delivery_address" json:"delivery_address"`
	DeliveryCity    string          `db:"delivery_city" json:"delivery_city"`
	DeliveryNotes   string          `db:"delivery_notes" json:"delivery_notes,omitempty"`
	IdempotencyKey  string          `db:"idempotency_key" json:"-"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

type OrderItem struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	OrderID     uuid.UUID       `db:"order_id" json:"order_id"`
	ItemType    string          `db:"item_type" json:"item_type"`
	ItemID      string          `db:"item_id" json:"item_id"`
	ProviderID  string          `db:"provider_id" json:"provider_id"`
	Name        string          `db:"name" json:"name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice  decimal.Decimal `db:"total_price" json:"total_price"`
	Currency    string          `db:"currency" json:"currency"`
	HasDelivery bool            `db:"has_delivery" json:"has_delivery"`
	HasPickup   bool            `db:"has_pickup" json:"has_pickup"`
	DeliveryFee decimal.Decimal `db:"delivery_fee" json:"delivery_fee"`
}

type ServiceAppointment struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	OrderID         uuid.UUID         `db:"order_id" json:"order_id"`
	OrderItemID     uuid.UUID         `db:"order_item_id" json:"order_item_id"`
	ClientID        uint              `db:"client_id" json:"client_id"`
	ProviderID      string            `db:"provider_id" json:"provider_id"`
	ServiceID       string            `db:"service_id" json:"service_id"`
	AppointmentDate string            `db:"appointment_date" json:"appointment_date"`
	TimeSlotID      string            `db:"time_slot_id" json:"time_slot_id"`
	ClientName      string            `db:"client_name" json:"client_name"`
	ClientPhone     string            `db:"client_phone" json:"client_phone"`
	ClientEmail     string            `db:"client_email" json:"client_email"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
	Status          AppointmentStatus `db:"status" json:"status"`
}

// DeliveryForm is what the client types on the checkout page.
type DeliveryForm struct {
	FullName      string        `json:"full_name"`
	Phone         string        `json:"phone"`
	Address       string        `json:"address"`
	City          string        `json:"city"`
	Notes         string        `json:"notes"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}
