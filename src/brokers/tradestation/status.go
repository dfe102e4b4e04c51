package tradestation

import "github.com/jiaming2012/trading-brokers/src/models"

// TradeStation reports three-letter status codes. This covers the
// documented vocabulary; codes not listed here pass through lowercased.
var statusTable = map[string]models.OrderStatus{
	"ACK": models.OrderStatusAccepted,
	"DON": models.OrderStatusPendingNew,
	"OPN": models.OrderStatusOpen,
	"FLL": models.OrderStatusFilled,
	"FPR": models.OrderStatusPartiallyFilled,
	"FLP": models.OrderStatusPartiallyFilled,
	"CAN": models.OrderStatusCanceled,
	"OUT": models.OrderStatusCanceled,
	"EXP": models.OrderStatusExpired,
	"REJ": models.OrderStatusRejected,
	"BRO": models.OrderStatusError,
}

var sideTable = map[string]models.OrderSide{
	"BUY":        models.OrderSideBuy,
	"SELL":       models.OrderSideSell,
	"BUYTOCOVER": models.OrderSideBuy,
	"SELLSHORT":  models.OrderSideSell,
}

var typeTable = map[string]models.OrderType{
	"Market":     models.OrderTypeMarket,
	"Limit":      models.OrderTypeLimit,
	"StopMarket": models.OrderTypeStop,
	"StopLimit":  models.OrderTypeStopLimit,
}
