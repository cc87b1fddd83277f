package catalog

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindProduct Kind = "product"
	KindService Kind = "service"
)

// Offering is a purchasable product or service with the fulfillment options of
// the provider that sells it.
type Offering struct {
	ID           string          `db:"id"`
	Kind         Kind            `db:"kind"`
	Name         string          `db:"name"`
	Description  sql.NullString  `db:"description"`
	ImageURL     sql.NullString  `db:"image_url"`
	Price        decimal.Decimal `db:"price"`
	Currency     string          `db:"currency"`
	ProviderID   string          `db:"provider_id"`
	ProviderName string          `db:"provider_name"`
	HasDelivery  bool            `db:"has_delivery"`
	HasPickup    bool            `db:"has_pickup"`
	DeliveryFee  decimal.Decimal `db:"delivery_fee"`
}
