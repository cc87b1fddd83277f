package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Action is one of AddItem, RemoveItem, UpdateQuantity or ClearCart.
type Action interface {
	Name() string
}

type AddItem struct {
	Line Line
}

type RemoveItem struct {
	ID string
}

// UpdateQuantity with Quantity <= 0 removes the line.
type UpdateQuantity struct {
	ID       string
	Quantity int
}

type ClearCart struct{}

func (AddItem) Name() string        { return "add_item" }
func (RemoveItem) Name() string     { return "remove_item" }
func (UpdateQuantity) Name() string { return "update_quantity" }
func (ClearCart) Name() string      { return "clear_cart" }

type FeePolicy string

const (
	// FeePerLine charges the delivery fee of every delivery line, so two lines
	// from one provider pay its fee twice.
	FeePerLine FeePolicy = "per_line"
	// FeePerProvider charges each delivering provider once, at the highest fee
	// snapshot among its lines.
	FeePerProvider FeePolicy = "per_provider"
)

func ParseFeePolicy(s string) (FeePolicy, error) {
	switch p := FeePolicy(s); p {
	case FeePerLine, FeePerProvider:
		return p, nil
	case "":
		return FeePerProvider, nil
	default:
		return "", fmt.Errorf("unknown delivery fee policy %q", s)
	}
}

type Reducer struct {
	FeePolicy FeePolicy
}

// Apply returns the state after a. The input state is never modified and the
// totals are always recomputed from the resulting items.
func (r Reducer) Apply(s State, a Action) State {
	items := make([]Line, len(s.Items), len(s.Items)+1)
	copy(items, s.Items)

	switch act := a.(type) {
	case AddItem:
		if act.Line == nil {
			break
		}
		incoming := act.Line.Item().Quantity
		if incoming < 1 {
			incoming = 1
		}
		if i := indexOf(items, act.Line.Item().ID); i >= 0 {
			items[i] = items[i].withQuantity(items[i].Item().Quantity + incoming)
		} else {
			items = append(items, act.Line.withQuantity(incoming))
		}

	case RemoveItem:
		items = without(items, act.ID)

	case UpdateQuantity:
		i := indexOf(items, act.ID)
		switch {
		case i < 0:
		case act.Quantity <= 0:
			items = without(items, act.ID)
		default:
			items[i] = items[i].withQuantity(act.Quantity)
		}

	case ClearCart:
		items = []Line{}
	}

	return r.Recalculate(items)
}

// Recalculate builds a State from items with fresh totals.
func (r Reducer) Recalculate(items []Line) State {
	if items == nil {
		items = []Line{}
	}

	total := decimal.Zero
	for _, l := range items {
		total = total.Add(l.Item().Subtotal())
	}

	fee := r.deliveryFee(items)

	return State{
		Items:       items,
		Total:       total,
		DeliveryFee: fee,
		GrandTotal:  total.Add(fee),
	}
}

func (r Reducer) deliveryFee(items []Line) decimal.Decimal {
	fee := decimal.Zero

	if r.FeePolicy == FeePerLine {
		for _, l := range items {
			if li := l.Item(); li.HasDelivery {
				fee = fee.Add(li.DeliveryFee)
			}
		}
		return fee
	}

	perProvider := map[string]decimal.Decimal{}
	for _, l := range items {
		li := l.Item()
		if !li.HasDelivery {
			continue
		}
		if cur, ok := perProvider[li.ProviderID]; !ok || li.DeliveryFee.GreaterThan(cur) {
			perProvider[li.ProviderID] = li.DeliveryFee
		}
	}
	for _, f := range perProvider {
		fee = fee.Add(f)
	}
	return fee
}

func indexOf(items []Line, id string) int {
	for i, l := range items {
		if l.Item().ID == id {
			return i
		}
	}
	return -1
}

func without(items []Line, id string) []Line {
	out := make([]Line, 0, len(items))
	for _, l := range items {
		if l.Item().ID != id {
			out = append(out, l)
		}
	}
	return out
}
