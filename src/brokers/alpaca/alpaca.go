// Package alpaca implements the brokerage capability contract on top of
// the official Alpaca SDK. The SDK owns the HTTP transport here; its retry
// limit is configured to the same four-attempt policy the other adapters
// get from the request executor, and SDK API errors are mapped onto the
// shared error taxonomy.
//
// The SDK's methods do not accept a context, so caller cancellation does
// not interrupt an in-flight Alpaca request. Each attempt is bounded by
// the underlying HTTP client's timeout instead.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sdk "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/trading-brokers/src/brokers"
	"github.com/jiaming2012/trading-brokers/src/models"
	"github.com/jiaming2012/trading-brokers/src/utils"
)

const brokerName = "alpaca"

// statusTable maps Alpaca's raw order statuses onto the canonical set.
// Alpaca calls a resting order "new"; its remaining statuses already match
// the canonical vocabulary and pass through.
var statusTable = map[string]models.OrderStatus{
	"new": models.OrderStatusOpen,
}

// Broker is an Alpaca adapter. Construct with NewBroker.
type Broker struct {
	trading *sdk.Client
	data    *marketdata.Client
}

var _ brokers.Broker = (*Broker)(nil)

// NewBroker returns an Alpaca adapter. baseURL and dataURL may be empty to
// use the SDK defaults (set baseURL to the paper endpoint for paper
// trading).
func NewBroker(apiKey, apiSecret, baseURL, dataURL string) *Broker {
	httpClient := &http.Client{Timeout: 10 * time.Second}

	return &Broker{
		trading: sdk.NewClient(sdk.ClientOpts{
			APIKey:     apiKey,
			APISecret:  apiSecret,
			BaseURL:    baseURL,
			RetryLimit: utils.RequestAttempts - 1,
			RetryDelay: time.Second,
			HTTPClient: httpClient,
		}),
		data: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:     apiKey,
			APISecret:  apiSecret,
			BaseURL:    dataURL,
			HTTPClient: httpClient,
		}),
	}
}

// wrapErr maps SDK failures onto the shared taxonomy: a 4xx API error is a
// business rejection, anything else a request failure.
func wrapErr(op string, err error) error {
	var apiErr *sdk.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return &brokers.BusinessError{Op: op, StatusCode: apiErr.StatusCode, Body: apiErr.Message}
		}
		return &brokers.RequestError{Op: op, StatusCode: apiErr.StatusCode, Body: apiErr.Message, Err: err}
	}
	return &brokers.RequestError{Op: op, Err: err}
}

func (b *Broker) placeOrder(ctx context.Context, op, name string, quantity int, side sdk.Side, orderType sdk.OrderType, stopPrice float64) (string, error) {
	if quantity <= 0 {
		return "", fmt.Errorf("%s: quantity must be positive", op)
	}

	qty := decimal.NewFromInt(int64(quantity))

	req := sdk.PlaceOrderRequest{
		Symbol:      name,
		Qty:         &qty,
		Side:        side,
		Type:        orderType,
		TimeInForce: sdk.GTC,
	}

	if orderType == sdk.Stop {
		stop := decimal.NewFromFloat(stopPrice)
		req.StopPrice = &stop
	}

	order, err := b.trading.PlaceOrder(req)
	if err != nil {
		return "", wrapErr(op, err)
	}

	log.Infof("%s: placed %s order for %d %s, id %s", op, side, quantity, name, order.ID)

	return order.ID, nil
}

func (b *Broker) PlaceMarketBuy(ctx context.Context, name string, quantity int) (string, error) {
	return b.placeOrder(ctx, "PlaceMarketBuy", name, quantity, sdk.Buy, sdk.Market, 0)
}

func (b *Broker) PlaceMarketSell(ctx context.Context, name string, quantity int) (string, error) {
	return b.placeOrder(ctx, "PlaceMarketSell", name, quantity, sdk.Sell, sdk.Market, 0)
}

func (b *Broker) PlaceStopLoss(ctx context.Context, name string, quantity int, stopPrice float64) (string, error) {
	return b.placeOrder(ctx, "PlaceStopLoss", name, quantity, sdk.Sell, sdk.Stop, stopPrice)
}

func (b *Broker) CancelOrder(ctx context.Context, orderID string) error {
	if err := b.trading.CancelOrder(orderID); err != nil {
		return wrapErr("CancelOrder", err)
	}
	return nil
}

func (b *Broker) GetQuote(ctx context.Context, name string) (models.Quote, error) {
	quote, err := b.data.GetLatestQuote(name, marketdata.GetLatestQuoteRequest{})
	if err != nil {
		return models.Quote{}, wrapErr("GetQuote", err)
	}

	return models.Quote{Name: name, Price: quote.AskPrice}, nil
}

func (b *Broker) GetQuotes(ctx context.Context, names []string) ([]models.Quote, error) {
	if len(names) == 0 {
		return []models.Quote{}, nil
	}

	raw, err := b.data.GetLatestQuotes(names, marketdata.GetLatestQuoteRequest{})
	if err != nil {
		return nil, wrapErr("GetQuotes", err)
	}

	quotes := make([]models.Quote, 0, len(names))
	for _, name := range names {
		quote, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("GetQuotes: no quote returned for %s", name)
		}

		quotes = append(quotes, models.Quote{Name: name, Price: quote.AskPrice})
	}

	return quotes, nil
}

func convertOrder(order sdk.Order) models.Order {
	converted := models.Order{
		ID:               order.ID,
		Name:             order.Symbol,
		Side:             models.NormalizeOrderSide(string(order.Side), nil),
		Type:             models.NormalizeOrderType(string(order.Type), nil),
		Status:           models.NormalizeOrderStatus(order.Status, statusTable),
		ExecutedQuantity: int(order.FilledQty.IntPart()),
	}

	if order.FilledAvgPrice != nil {
		price := order.FilledAvgPrice.InexactFloat64()
		converted.AvgFillPrice = &price
	}

	return converted
}

func (b *Broker) OrderStatus(ctx context.Context, orderID string) (models.Order, error) {
	order, err := b.trading.GetOrder(orderID)
	if err != nil {
		return models.Order{}, wrapErr("OrderStatus", err)
	}

	return convertOrder(*order), nil
}

func (b *Broker) Orders(ctx context.Context) ([]models.Order, error) {
	raw, err := b.trading.GetOrders(sdk.GetOrdersRequest{Status: "open"})
	if err != nil {
		return nil, wrapErr("Orders", err)
	}

	orders := make([]models.Order, 0, len(raw))
	for _, order := range raw {
		orders = append(orders, convertOrder(order))
	}

	return orders, nil
}

func (b *Broker) Positions(ctx context.Context) ([]models.Position, error) {
	raw, err := b.trading.GetPositions()
	if err != nil {
		return nil, wrapErr("Positions", err)
	}

	positions := make([]models.Position, 0, len(raw))
	for _, position := range raw {
		positions = append(positions, models.Position{
			Name:      position.Symbol,
			Size:      int(position.Qty.IntPart()),
			CostBasis: position.CostBasis.InexactFloat64(),
			// TODO: derive the real acquisition time from the account
			// activities endpoint; the positions endpoint does not report it.
			TimeOpened: time.Now().UTC(),
		})
	}

	return positions, nil
}

func (b *Broker) AccountBalance(ctx context.Context) (models.AccountBalance, error) {
	account, err := b.trading.GetAccount()
	if err != nil {
		return models.AccountBalance{}, wrapErr("AccountBalance", err)
	}

	// Cash still in flight from a pending inbound transfer is not settled.
	settled := account.Cash.Sub(account.PendingTransferIn).InexactFloat64()

	return models.AccountBalance{
		TotalCash:   account.Cash.InexactFloat64(),
		TotalEquity: account.Equity.InexactFloat64(),
		LongValue:   account.LongMarketValue.InexactFloat64(),
		SettledCash: &settled,
	}, nil
}

func (b *Broker) AccountPnL(ctx context.Context, since *time.Time) ([]models.ClosedPosition, error) {
	return nil, brokers.Unsupported(brokerName, "AccountPnL")
}

func (b *Broker) AccountHistory(ctx context.Context) ([]models.AccountAction, error) {
	return nil, brokers.Unsupported(brokerName, "AccountHistory")
}

func (b *Broker) Calendar(ctx context.Context) ([]models.MarketDay, error) {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("Calendar: failed to load exchange timezone: %w", err)
	}

	now := time.Now().In(et)

	days, err := b.trading.GetCalendar(sdk.GetCalendarRequest{
		Start: now,
		End:   now.AddDate(0, 1, 0),
	})
	if err != nil {
		return nil, wrapErr("Calendar", err)
	}

	calendar := make([]models.MarketDay, 0, len(days))
	for _, day := range days {
		open, err := time.ParseInLocation("2006-01-02 15:04", fmt.Sprintf("%s %s", day.Date, day.Open), et)
		if err != nil {
			return nil, fmt.Errorf("Calendar: failed to parse open of %s: %w", day.Date, err)
		}

		close, err := time.ParseInLocation("2006-01-02 15:04", fmt.Sprintf("%s %s", day.Date, day.Close), et)
		if err != nil {
			return nil, fmt.Errorf("Calendar: failed to parse close of %s: %w", day.Date, err)
		}

		calendar = append(calendar, models.MarketDay{Open: open, Close: close})
	}

	return calendar, nil
}
