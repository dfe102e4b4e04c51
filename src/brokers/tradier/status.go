package tradier

import "github.com/jiaming2012/trading-brokers/src/models"

// Tradier's documented status vocabulary already matches the canonical
// forms, so the table only pins the known values; anything new passes
// through lowercased.
var statusTable = map[string]models.OrderStatus{
	"open":                 models.OrderStatusOpen,
	"filled":               models.OrderStatusFilled,
	"rejected":             models.OrderStatusRejected,
	"expired":              models.OrderStatusExpired,
	"canceled":             models.OrderStatusCanceled,
	"pending":              models.OrderStatusPending,
	"partially_filled":     models.OrderStatusPartiallyFilled,
	"calculated":           models.OrderStatusCalculated,
	"accepted_for_bidding": models.OrderStatusAcceptedForBidding,
	"accepted":             models.OrderStatusAccepted,
	"error":                models.OrderStatusError,
	"held":                 models.OrderStatusHeld,
	"pending_new":          models.OrderStatusPendingNew,
}
