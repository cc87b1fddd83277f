package order

import (
	"strings"

	"petcare-be/internal/cart"
)

// Normalize trims every field and defaults the payment method to card.
func (f DeliveryForm) Normalize() DeliveryForm {
	f.FullName = strings.TrimSpace(f.FullName)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
	f.City = strings.TrimSpace(f.City)
	f.Notes = strings.TrimSpace(f.Notes)
	if f.PaymentMethod == "" {
		f.PaymentMethod = PaymentCard
	}
	return f
}

// Validate checks the normalized form together with the cart being checked
// out. It returns nil when the submission may proceed.
func Validate(f DeliveryForm, state cart.State) *ValidationError {
	fields := map[string]string{}

	required := []struct{ name, value string }{
		{"full_name", f.FullName},
		{"phone", f.Phone},
		{"address", f.Address},
		{"city", f.City},
	}
	for _, r := range required {
		if r.value == "" {
			fields[r.name] = "is required"
		}
	}

	if !f.PaymentMethod.Valid() {
		fields["payment_method"] = "must be one of card, cash, transfer"
	}

	if len(state.Items) == 0 {
		fields["cart"] = "is empty"
	} else {
		currency := state.Items[0].Item().Currency
		for _, l := range state.Items[1:] {
			if l.Item().Currency != currency {
				fields["currency"] = "all items must share one currency"
				break
			}
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
