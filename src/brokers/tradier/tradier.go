// Package tradier implements the brokerage capability contract against the
// Tradier REST API.
package tradier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/trading-brokers/src/brokers"
	"github.com/jiaming2012/trading-brokers/src/models"
	"github.com/jiaming2012/trading-brokers/src/utils"
)

const DefaultBaseURL = "https://api.tradier.com/v1"

// historyTypes is the set of ledger event types fetched by AccountHistory.
var historyTypes = []string{
	"ach", "wire", "dividend", "fee", "tax",
	"journal", "check", "transfer", "adjustment", "interest",
}

// Broker is a Tradier adapter for one account. It is safe for concurrent
// use; all state is set at construction.
type Broker struct {
	baseURL     string
	accountID   string
	token       string
	dryRun      bool
	exec        *utils.Executor
	calendarLoc *time.Location
}

var _ brokers.Broker = (*Broker)(nil)

// NewBroker returns a Tradier adapter for the given account. baseURL may
// be empty to target the production API; pass the sandbox or a test server
// URL otherwise.
func NewBroker(baseURL, accountID, accessToken string) (*Broker, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("NewBroker: must have an access token to instantiate a Tradier broker")
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("NewBroker: failed to load exchange timezone: %w", err)
	}

	return &Broker{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accountID:   accountID,
		token:       accessToken,
		exec:        utils.NewExecutor(10 * time.Second),
		calendarLoc: loc,
	}, nil
}

// SetDryRun toggles preview mode: orders are submitted with preview=true,
// so Tradier validates them without executing. Set before sharing the
// broker across goroutines.
func (b *Broker) SetDryRun(enabled bool) {
	b.dryRun = enabled
}

func (b *Broker) url(format string, args ...interface{}) string {
	return b.baseURL + fmt.Sprintf(format, args...)
}

func (b *Broker) headers() map[string]string {
	return map[string]string{
		"Accept":        "application/json",
		"Authorization": fmt.Sprintf("Bearer %s", b.token),
	}
}

func (b *Broker) placeOrder(ctx context.Context, op, name string, quantity int, side models.OrderSide, orderType models.OrderType, stopPrice float64) (string, error) {
	if quantity <= 0 {
		return "", fmt.Errorf("%s: quantity must be positive", op)
	}

	form := url.Values{}
	form.Add("class", "equity")
	form.Add("symbol", strings.ToUpper(name))
	form.Add("side", string(side))
	form.Add("quantity", strconv.Itoa(quantity))
	form.Add("type", string(orderType))
	form.Add("duration", "gtc")
	form.Add("tag", uuid.NewString())

	if orderType == models.OrderTypeStop || orderType == models.OrderTypeStopLimit {
		form.Add("stop", strconv.FormatFloat(stopPrice, 'f', -1, 64))
	}

	if b.dryRun {
		form.Add("preview", "true")
	}

	body, err := b.exec.Do(ctx, utils.Request{
		Op:     op,
		Method: http.MethodPost,
		URL:    b.url("/accounts/%s/orders", b.accountID),
		Header: b.headers(),
		Form:   form,
	})
	if err != nil {
		return "", fmt.Errorf("%s: failed to place %s order for %s: %w", op, side, name, err)
	}

	var resp struct {
		Order *struct {
			ID int `json:"id"`
		} `json:"order"`
		Errors *struct {
			Error json.RawMessage `json:"error"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	if resp.Errors != nil {
		return "", &brokers.BusinessError{Op: op, StatusCode: http.StatusOK, Body: string(body)}
	}

	// Previewed orders validate without executing and carry no id.
	if b.dryRun {
		log.Infof("%s: previewed %s order for %d %s", op, side, quantity, name)
		return "", nil
	}

	if resp.Order == nil {
		return "", fmt.Errorf("%s: response missing order for %s: %s", op, name, body)
	}

	log.Infof("%s: placed %s order for %d %s, id %d", op, side, quantity, name, resp.Order.ID)

	return strconv.Itoa(resp.Order.ID), nil
}

func (b *Broker) PlaceMarketBuy(ctx context.Context, name string, quantity int) (string, error) {
	return b.placeOrder(ctx, "PlaceMarketBuy", name, quantity, models.OrderSideBuy, models.OrderTypeMarket, 0)
}

func (b *Broker) PlaceMarketSell(ctx context.Context, name string, quantity int) (string, error) {
	return b.placeOrder(ctx, "PlaceMarketSell", name, quantity, models.OrderSideSell, models.OrderTypeMarket, 0)
}

func (b *Broker) PlaceStopLoss(ctx context.Context, name string, quantity int, stopPrice float64) (string, error) {
	return b.placeOrder(ctx, "PlaceStopLoss", name, quantity, models.OrderSideSell, models.OrderTypeStop, stopPrice)
}

func (b *Broker) CancelOrder(ctx context.Context, orderID string) error {
	_, err := b.exec.Do(ctx, utils.Request{
		Op:     "CancelOrder",
		Method: http.MethodDelete,
		URL:    b.url("/accounts/%s/orders/%s", b.accountID, orderID),
		Header: b.headers(),
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

	query := url.Values{}
	query.Add("symbols", strings.Join(names, ","))
	query.Add("greeks", "false")

	body, err := b.exec.Do(ctx, utils.Request{
		Op:     "GetQuotes",
		Method: http.MethodGet,
		URL:    b.url("/markets/quotes"),
		Header: b.headers(),
		Query:  query,
	})
	if err != nil {
		return nil, fmt.Errorf("GetQuotes: failed to fetch quotes for %v: %w", names, err)
	}

	dtos, err := utils.ParseEnvelope[quoteDTO](body)
	if err != nil {
		return nil, fmt.Errorf("GetQuotes: failed to parse response: %w", err)
	}

	quotes := make([]models.Quote, 0, len(dtos))
	for _, dto := range dtos {
		quotes = append(quotes, dto.toQuote())
	}

	return quotes, nil
}

func (b *Broker) OrderStatus(ctx context.Context, orderID string) (models.Order, error) {
	body, err := b.exec.Do(ctx, utils.Request{
		Op:     "OrderStatus",
		Method: http.MethodGet,
		URL:    b.url("/accounts/%s/orders/%s", b.accountID, orderID),
		Header: b.headers(),
	})
	if err != nil {
		return models.Order{}, fmt.Errorf("OrderStatus: failed to fetch order %s: %w", orderID, err)
	}

	var resp struct {
		Order orderDTO `json:"order"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Order{}, fmt.Errorf("OrderStatus: failed to decode order %s: %w", orderID, err)
	}

	return resp.Order.toOrder(), nil
}

func (b *Broker) Orders(ctx context.Context) ([]models.Order, error) {
	body, err := b.exec.Do(ctx, utils.Request{
		Op:     "Orders",
		Method: http.MethodGet,
		URL:    b.url("/accounts/%s/orders", b.accountID),
		Header: b.headers(),
	})
	if err != nil {
		return nil, fmt.Errorf("Orders: failed to fetch orders: %w", err)
	}

	dtos, err := utils.ParseEnvelope[orderDTO](body)
	if err != nil {
		return nil, fmt.Errorf("Orders: failed to parse response: %w", err)
	}

	orders := make([]models.Order, 0, len(dtos))
	for _, dto := range dtos {
		orders = append(orders, dto.toOrder())
	}

	return orders, nil
}

func (b *Broker) Positions(ctx context.Context) ([]models.Position, error) {
	body, err := b.exec.Do(ctx, utils.Request{
		Op:     "Positions",
		Method: http.MethodGet,
		URL:    b.url("/accounts/%s/positions", b.accountID),
		Header: b.headers(),
	})
	if err != nil {
		return nil, fmt.Errorf("Positions: failed to fetch positions: %w", err)
	}

	dtos, err := utils.ParseEnvelope[positionDTO](body)
	if err != nil {
		return nil, fmt.Errorf("Positions: failed to parse response: %w", err)
	}

	positions := make([]models.Position, 0, len(dtos))
	for _, dto := range dtos {
		position, err := dto.toPosition()
		if err != nil {
			return nil, fmt.Errorf("Positions: %w", err)
		}

		positions = append(positions, position)
	}

	return positions, nil
}

func (b *Broker) AccountBalance(ctx context.Context) (models.AccountBalance, error) {
	body, err := b.exec.Do(ctx, utils.Request{
		Op:     "AccountBalance",
		Method: http.MethodGet,
		URL:    b.url("/accounts/%s/balances", b.accountID),
		Header: b.headers(),
	})
	if err != nil {
		return models.AccountBalance{}, fmt.Errorf("AccountBalance: failed to fetch balances for account %s: %w", b.accountID, err)
	}

	var dto balancesDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return models.AccountBalance{}, fmt.Errorf("AccountBalance: failed to decode response: %w", err)
	}

	return dto.toAccountBalance(), nil
}

func (b *Broker) AccountPnL(ctx context.Context, since *time.Time) ([]models.ClosedPosition, error) {
	var query url.Values
	if since != nil {
		query = url.Values{}
		query.Add("start", since.Format("2006-01-02"))
	}

	body, err := b.exec.Do(ctx, utils.Request{
		Op:     "AccountPnL",
		Method: http.MethodGet,
		URL:    b.url("/accounts/%s/gainloss", b.accountID),
		Header: b.headers(),
		Query:  query,
	})
	if err != nil {
		return nil, fmt.Errorf("AccountPnL: failed to fetch gainloss: %w", err)
	}

	dtos, err := utils.ParseEnvelope[closedPositionDTO](body)
	if err != nil {
		return nil, fmt.Errorf("AccountPnL: failed to parse response: %w", err)
	}

	closed := make([]models.ClosedPosition, 0, len(dtos))
	for _, dto := range dtos {
		position, err := dto.toClosedPosition()
		if err != nil {
			return nil, fmt.Errorf("AccountPnL: %w", err)
		}

		closed = append(closed, position)
	}

	return closed, nil
}

func (b *Broker) AccountHistory(ctx context.Context) ([]models.AccountAction, error) {
	query := url.Values{}
	query.Add("limit", "10000")
	query.Add("type", strings.Join(historyTypes, ","))

	body, err := b.exec.Do(ctx, utils.Request{
		Op:     "AccountHistory",
		Method: http.MethodGet,
		URL:    b.url("/accounts/%s/history", b.accountID),
		Header: b.headers(),
		Query:  query,
	})
	if err != nil {
		return nil, fmt.Errorf("AccountHistory: failed to fetch history: %w", err)
	}

	dtos, err := utils.ParseEnvelope[accountEventDTO](body)
	if err != nil {
		return nil, fmt.Errorf("AccountHistory: failed to parse response: %w", err)
	}

	actions := make([]models.AccountAction, 0, len(dtos))
	for _, dto := range dtos {
		action, err := dto.toAccountAction()
		if err != nil {
			return nil, fmt.Errorf("AccountHistory: %w", err)
		}

		actions = append(actions, action)
	}

	return actions, nil
}

func (b *Broker) Calendar(ctx context.Context) ([]models.MarketDay, error) {
	body, err := b.exec.Do(ctx, utils.Request{
		Op:     "Calendar",
		Method: http.MethodGet,
		URL:    b.url("/markets/calendar"),
		Header: b.headers(),
	})
	if err != nil {
		return nil, fmt.Errorf("Calendar: failed to fetch market calendar: %w", err)
	}

	var dto calendarDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("Calendar: failed to decode response: %w", err)
	}

	days := make([]models.MarketDay, 0, len(dto.Calendar.Days.Day))
	for _, day := range dto.Calendar.Days.Day {
		if day.Status != "open" || day.Open == nil {
			continue
		}

		marketDay, err := day.toMarketDay(b.calendarLoc)
		if err != nil {
			return nil, fmt.Errorf("Calendar: %w", err)
		}

		days = append(days, marketDay)
	}

	return days, nil
}
