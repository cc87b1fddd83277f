package cart

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type lineRecord struct {
	Type LineType `json:"type"`
	LineItem
	ServiceData *ServiceData `json:"service_data,omitempty"`
}

type stateRecord struct {
	Items       []lineRecord    `json:"items"`
	Total       decimal.Decimal `json:"total"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
}

func (s State) MarshalJSON() ([]byte, error) {
	rec := stateRecord{
		Items:       make([]lineRecord, 0, len(s.Items)),
		Total:       s.Total,
		DeliveryFee: s.DeliveryFee,
		GrandTotal:  s.GrandTotal,
	}

	for _, l := range s.Items {
		lr := lineRecord{Type: l.Type(), LineItem: l.Item()}
		if sl, ok := l.(ServiceLine); ok {
			booking := sl.Booking
			lr.ServiceData = &booking
		}
		rec.Items = append(rec.Items, lr)
	}

	return json.Marshal(rec)
}

// UnmarshalJSON rejects documents that could not have been produced by the
// reducer: unknown line types, product lines with booking data, service lines
// without it, non-positive quantities and duplicate ids.
func (s *State) UnmarshalJSON(data []byte) error {
	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	items := make([]Line, 0, len(rec.Items))
	seen := make(map[string]bool, len(rec.Items))

	for i, lr := range rec.Items {
		if lr.ID == "" {
			return fmt.Errorf("item %d: missing id", i)
		}
		if seen[lr.ID] {
			return fmt.Errorf("item %d: duplicate id %q", i, lr.ID)
		}
		seen[lr.ID] = true

		if lr.Quantity < 1 {
			return fmt.Errorf("item %q: quantity %d", lr.ID, lr.Quantity)
		}

		switch lr.Type {
		case LineTypeProduct:
			if lr.ServiceData != nil {
				return fmt.Errorf("item %q: product line carries service_data", lr.ID)
			}
			items = append(items, ProductLine{LineItem: lr.LineItem})
		case LineTypeService:
			if lr.ServiceData == nil {
				return fmt.Errorf("item %q: service line without service_data", lr.ID)
			}
			items = append(items, ServiceLine{LineItem: lr.LineItem, Booking: *lr.ServiceData})
		default:
			return fmt.Errorf("item %q: unknown type %q", lr.ID, lr.Type)
		}
	}

	*s = State{
		Items:       items,
		Total:       rec.Total,
		DeliveryFee: rec.DeliveryFee,
		GrandTotal:  rec.GrandTotal,
	}
	return nil
}
