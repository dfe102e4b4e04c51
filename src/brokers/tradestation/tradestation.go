// Package tradestation implements the brokerage capability contract
// against the TradeStation v3 REST API. TradeStation issues short-lived
// access tokens; every call obtains one from the token manager, which
// refreshes transparently on expiry.
package tradestation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/trading-brokers/src/brokers"
	"github.com/jiaming2012/trading-brokers/src/models"
	"github.com/jiaming2012/trading-brokers/src/utils"
)

const DefaultBaseURL = "https://api.tradestation.com/v3"

const brokerName = "tradestation"

// Broker is a TradeStation adapter for one account.
type Broker struct {
	baseURL   string
	accountID string
	exec      *utils.Executor
	tokens    *tokenManager
}

var _ brokers.Broker = (*Broker)(nil)

// NewBroker returns a TradeStation adapter. baseURL and tokenURL may be
// empty to target the production endpoints.
func NewBroker(baseURL, tokenURL, accountID, clientID, clientSecret, refreshToken string) (*Broker, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("NewBroker: must have a refresh token to instantiate a TradeStation broker")
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	exec := utils.NewExecutor(10 * time.Second)

	return &Broker{
		baseURL:   strings.TrimRight(baseURL, "/"),
		accountID: accountID,
		exec:      exec,
		tokens:    newTokenManager(exec, tokenURL, clientID, clientSecret, refreshToken),
	}, nil
}

func (b *Broker) url(format string, args ...interface{}) string {
	return b.baseURL + fmt.Sprintf(format, args...)
}

func (b *Broker) headers(ctx context.Context) (map[string]string, error) {
	token, err := b.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"Accept":        "application/json",
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}, nil
}

type placeOrderRequest struct {
	AccountID   string            `json:"AccountID"`
	Symbol      string            `json:"Symbol"`
	Quantity    string            `json:"Quantity"`
	OrderType   string            `json:"OrderType"`
	TradeAction string            `json:"TradeAction"`
	StopPrice   string            `json:"StopPrice,omitempty"`
	Route       string            `json:"Route"`
	TimeInForce map[string]string `json:"TimeInForce"`
}

func (b *Broker) placeOrder(ctx context.Context, op, name string, quantity int, action, orderType string, stopPrice float64) (string, error) {
	if quantity <= 0 {
		return "", fmt.Errorf("%s: quantity must be positive", op)
	}

	headers, err := b.headers(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req := placeOrderRequest{
		AccountID:   b.accountID,
		Symbol:      strings.ToUpper(name),
		Quantity:    strconv.Itoa(quantity),
		OrderType:   orderType,
		TradeAction: action,
		Route:       "Intelligent",
		TimeInForce: map[string]string{"Duration": "GTC"},
	}

	if orderType == "StopMarket" {
		req.StopPrice = strconv.FormatFloat(stopPrice, 'f', -1, 64)
	}

	body, err := b.exec.Do(ctx, utils.Request{
		Op:     op,
		Method: http.MethodPost,
		URL:    b.url("/orderexecution/orders"),
		Header: headers,
		Body:   req,
	})
	if err != nil {
		return "", fmt.Errorf("%s: failed to place %s order for %s: %w", op, action, name, err)
	}

	var resp struct {
		Orders []struct {
			OrderID string `json:"OrderID"`
			Message string `json:"Message"`
		} `json:"Orders"`
		Errors []struct {
			Error   string `json:"Error"`
			Message string `json:"Message"`
		} `json:"Errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	if len(resp.Errors) > 0 {
		return "", &brokers.BusinessError{Op: op, StatusCode: http.StatusOK, Body: string(body)}
	}
	if len(resp.Orders) == 0 {
		return "", fmt.Errorf("%s: response missing order for %s: %s", op, name, body)
	}

	log.Infof("%s: placed %s order for %d %s, id %s", op, action, quantity, name, resp.Orders[0].OrderID)

	return resp.Orders[0].OrderID, nil
}

func (b *Broker) PlaceMarketBuy(ctx context.Context, name string, quantity int) (string, error) {
	return b.placeOrder(ctx, "PlaceMarketBuy", name, quantity, "BUY", "Market", 0)
}

func (b *Broker) PlaceMarketSell(ctx context.Context, name string, quantity int) (string, error) {
	return b.placeOrder(ctx, "PlaceMarketSell", name, quantity, "SELL", "Market", 0)
}

func (b *Broker) PlaceStopLoss(ctx context.Context, name string, quantity int, stopPrice float64) (string, error) {
	return b.placeOrder(ctx, "PlaceStopLoss", name, quantity, "SELL", "StopMarket", stopPrice)
}

func (b *Broker) CancelOrder(ctx context.Context, orderID string) error {
	headers, err := b.headers(ctx)
	if err != nil {
		return fmt.Errorf("CancelOrder: %w", err)
	}

	_, err = b.exec.Do(ctx, utils.Request{
		Op:     "CancelOrder",
		Method: http.MethodDelete,
		URL:    b.url("/orderexecution/orders/%s", orderID),
		Header: headers,
	})
	if err != nil {
		return fmt.Errorf("CancelOrder: failed to cancel order %s: %w", orderID, err)
	}

	return nil
}

func (b *Broker) GetQuote(ctx context.Context, name string) (models.Quote, error) {
	quotes, err := b.GetQuotes(ctx, []string{name})
	if err != nil {
		return models.Quote{}, err
	}

	if len(quotes) == 0 {
		return models.Quote{}, fmt.Errorf("GetQuote: no quote returned for %s", name)
	}

	return quotes[0], nil
}

func (b *Broker) GetQuotes(ctx context.Context, names []string) ([]models.Quote, error) {
	if len(names) == 0 {
		return []models.Quote{}, nil
	}

	headers, err := b.headers(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetQuotes: %w", err)
	}

	body, err := b.exec.Do(ctx, utils.Request{
		Op:     "GetQuotes",
		Method: http.MethodGet,
		URL:    b.url("/marketdata/quotes/%s", strings.Join(names, ",")),
		Header: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("GetQuotes: failed to fetch quotes for %v: %w", names, err)
	}

	var resp struct {
		Quotes []quoteDTO `json:"Quotes"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("GetQuotes: failed to decode response: %w", err)
	}

	quotes := make([]models.Quote, 0, len(resp.Quotes))
	for _, dto := range resp.Quotes {
		quote, err := dto.toQuote()
		if err != nil {
			return nil, fmt.Errorf("GetQuotes: %w", err)
		}

		quotes = append(quotes, quote)
	}

	return quotes, nil
}

func (b *Broker) fetchOrders(ctx context.Context, op, url string) ([]models.Order, error) {
	headers, err := b.headers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	body, err := b.exec.Do(ctx, utils.Request{
		Op:     op,
		Method: http.MethodGet,
		URL:    url,
		Header: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to fetch orders: %w", op, err)
	}

	var resp struct {
		Orders []orderDTO `json:"Orders"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	orders := make([]models.Order, 0, len(resp.Orders))
	for _, dto := range resp.Orders {
		order, err := dto.toOrder()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		orders = append(orders, order)
	}

	return orders, nil
}

func (b *Broker) OrderStatus(ctx context.Context, orderID string) (models.Order, error) {
	orders, err := b.fetchOrders(ctx, "OrderStatus", b.url("/brokerage/accounts/%s/orders/%s", b.accountID, orderID))
	if err != nil {
		return models.Order{}, err
	}

	if len(orders) == 0 {
		return models.Order{}, fmt.Errorf("OrderStatus: no order returned for %s", orderID)
	}

	return orders[0], nil
}

func (b *Broker) Orders(ctx context.Context) ([]models.Order, error) {
	return b.fetchOrders(ctx, "Orders", b.url("/brokerage/accounts/%s/orders", b.accountID))
}

func (b *Broker) Positions(ctx context.Context) ([]models.Position, error) {
	headers, err := b.headers(ctx)
	if err != nil {
		return nil, fmt.Errorf("Positions: %w", err)
	}

	body, err := b.exec.Do(ctx, utils.Request{
		Op:     "Positions",
		Method: http.MethodGet,
		URL:    b.url("/brokerage/accounts/%s/positions", b.accountID),
		Header: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("Positions: failed to fetch positions: %w", err)
	}

	var resp struct {
		Positions []positionDTO `json:"Positions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("Positions: failed to decode response: %w", err)
	}

	positions := make([]models.Position, 0, len(resp.Positions))
	for _, dto := range resp.Positions {
		position, err := dto.toPosition()
		if err != nil {
			return nil, fmt.Errorf("Positions: %w", err)
		}

		positions = append(positions, position)
	}

	return positions, nil
}

func (b *Broker) AccountBalance(ctx context.Context) (models.AccountBalance, error) {
	headers, err := b.headers(ctx)
	if err != nil {
		return models.AccountBalance{}, fmt.Errorf("AccountBalance: %w", err)
	}

	body, err := b.exec.Do(ctx, utils.Request{
		Op:     "AccountBalance",
		Method: http.MethodGet,
		URL:    b.url("/brokerage/accounts/%s/balances", b.accountID),
		Header: headers,
	})
	if err != nil {
		return models.AccountBalance{}, fmt.Errorf("AccountBalance: failed to fetch balances for account %s: %w", b.accountID, err)
	}

	var resp struct {
		Balances []balanceDTO `json:"Balances"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.AccountBalance{}, fmt.Errorf("AccountBalance: failed to decode response: %w", err)
	}

	if len(resp.Balances) == 0 {
		return models.AccountBalance{}, fmt.Errorf("AccountBalance: no balances returned for account %s", b.accountID)
	}

	balance, err := resp.Balances[0].toAccountBalance()
	if err != nil {
		return models.AccountBalance{}, fmt.Errorf("AccountBalance: %w", err)
	}

	return balance, nil
}

func (b *Broker) AccountPnL(ctx context.Context, since *time.Time) ([]models.ClosedPosition, error) {
	return nil, brokers.Unsupported(brokerName, "AccountPnL")
}

func (b *Broker) AccountHistory(ctx context.Context) ([]models.AccountAction, error) {
	return nil, brokers.Unsupported(brokerName, "AccountHistory")
}

func (b *Broker) Calendar(ctx context.Context) ([]models.MarketDay, error) {
	return nil, brokers.Unsupported(brokerName, "Calendar")
}
