// Package brokers defines the provider-agnostic brokerage capability
// contract and the error taxonomy shared by every adapter. Callers depend
// on the Broker interface only; each concrete provider lives in a
// subpackage.
package brokers

import (
	"context"
	"time"

	"github.com/jiaming2012/trading-brokers/src/models"
)

// Broker is the full capability surface a provider adapter implements.
//
// Every operation takes a context and may be invoked concurrently with any
// other operation on the same adapter. An adapter that cannot provide a
// capability must return an error wrapping ErrUnsupported rather than
// no-opping, so callers can branch on support with errors.Is.
type Broker interface {
	// PlaceMarketBuy submits a market buy order and returns the provider's
	// order id.
	PlaceMarketBuy(ctx context.Context, name string, quantity int) (string, error)

	// PlaceMarketSell submits a market sell order and returns the
	// provider's order id.
	PlaceMarketSell(ctx context.Context, name string, quantity int) (string, error)

	// PlaceStopLoss submits a stop sell order at the given stop price.
	PlaceStopLoss(ctx context.Context, name string, quantity int, stopPrice float64) (string, error)

	// CancelOrder requests cancellation of an open order.
	CancelOrder(ctx context.Context, orderID string) error

	// GetQuote returns the latest quote for one symbol.
	GetQuote(ctx context.Context, name string) (models.Quote, error)

	// GetQuotes returns the latest quotes for a batch of symbols. An empty
	// input returns an empty slice without touching the network.
	GetQuotes(ctx context.Context, names []string) ([]models.Quote, error)

	// OrderStatus returns a fresh snapshot of the order's state.
	OrderStatus(ctx context.Context, orderID string) (models.Order, error)

	// Orders returns the account's open and recent orders.
	Orders(ctx context.Context) ([]models.Order, error)

	// Positions returns the account's open positions.
	Positions(ctx context.Context) ([]models.Position, error)

	// AccountBalance returns a snapshot of the account's balances.
	AccountBalance(ctx context.Context) (models.AccountBalance, error)

	// AccountPnL returns the account's closed positions, optionally
	// starting from a date.
	AccountPnL(ctx context.Context, since *time.Time) ([]models.ClosedPosition, error)

	// AccountHistory returns non-trading ledger events on the account.
	AccountHistory(ctx context.Context) ([]models.AccountAction, error)

	// Calendar returns upcoming market sessions.
	Calendar(ctx context.Context) ([]models.MarketDay, error)
}
