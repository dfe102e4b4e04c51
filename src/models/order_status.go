package models

import "strings"

// OrderStatus is the canonical order state shared by all providers.
type OrderStatus string

const (
	OrderStatusOpen               OrderStatus = "open"
	OrderStatusFilled             OrderStatus = "filled"
	OrderStatusRejected           OrderStatus = "rejected"
	OrderStatusExpired            OrderStatus = "expired"
	OrderStatusCanceled           OrderStatus = "canceled"
	OrderStatusPending            OrderStatus = "pending"
	OrderStatusPartiallyFilled    OrderStatus = "partially_filled"
	OrderStatusCalculated         OrderStatus = "calculated"
	OrderStatusAcceptedForBidding OrderStatus = "accepted_for_bidding"
	OrderStatusAccepted           OrderStatus = "accepted"
	OrderStatusError              OrderStatus = "error"
	OrderStatusHeld               OrderStatus = "held"
	OrderStatusPendingNew         OrderStatus = "pending_new"
)

// NormalizeOrderStatus maps a provider's raw status string through the
// provider's mapping table. Raw values missing from the table pass through
// as their lowercase form: brokers add new status strings over time, and a
// new status must not break order parsing.
func NormalizeOrderStatus(raw string, table map[string]OrderStatus) OrderStatus {
	if status, ok := table[raw]; ok {
		return status
	}
	return OrderStatus(strings.ToLower(raw))
}
