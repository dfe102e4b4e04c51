package models

import "strings"

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// NormalizeOrderSide lowercases a provider's raw side vocabulary into the
// canonical form, consulting the provider table first.
func NormalizeOrderSide(raw string, table map[string]OrderSide) OrderSide {
	if side, ok := table[raw]; ok {
		return side
	}
	return OrderSide(strings.ToLower(raw))
}

// NormalizeOrderType lowercases a provider's raw order-type vocabulary into
// the canonical form, consulting the provider table first.
func NormalizeOrderType(raw string, table map[string]OrderType) OrderType {
	if typ, ok := table[raw]; ok {
		return typ
	}
	return OrderType(strings.ToLower(raw))
}

// Order is a point-in-time snapshot of an order's state. Re-querying the
// broker produces a new snapshot; an Order value is never mutated in place.
//
// AvgFillPrice is nil until the provider reports a fill price. nil means
// "not yet known": zero is a valid price and must not stand in for it.
type Order struct {
	ID               string
	Name             string
	Side             OrderSide
	Type             OrderType
	Status           OrderStatus
	ExecutedQuantity int
	AvgFillPrice     *float64
}

// Cost returns the filled notional value of the order. The second return
// is false while the average fill price is unknown; the cost is never
// computed as if the price were zero.
func (o Order) Cost() (float64, bool) {
	if o.AvgFillPrice == nil {
		return 0, false
	}
	return float64(o.ExecutedQuantity) * *o.AvgFillPrice, true
}
