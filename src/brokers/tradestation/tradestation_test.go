package tradestation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/trading-brokers/src/brokers"
	"github.com/jiaming2012/trading-brokers/src/models"
)

// newTestBroker starts a server that answers both the token endpoint and
// the API path under test, mirroring how the adapter talks to two hosts.
func newTestBroker(t *testing.T, handler http.HandlerFunc) (*Broker, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"fresh-token","expires_in":1200}`))
	})
	mux.HandleFunc("/", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	broker, err := NewBroker(server.URL, server.URL+"/oauth/token", "ACC1", "client-id", "client-secret", "refresh-token")
	require.NoError(t, err)

	return broker, server
}

func TestNewBroker(t *testing.T) {
	t.Run("requires a refresh token", func(t *testing.T) {
		_, err := NewBroker("", "", "ACC1", "client-id", "client-secret", "")
		assert.Error(t, err)
	})

	t.Run("defaults to the production api", func(t *testing.T) {
		broker, err := NewBroker("", "", "ACC1", "client-id", "client-secret", "refresh-token")
		require.NoError(t, err)
		assert.Equal(t, DefaultBaseURL, broker.baseURL)
	})
}

func TestBroker_PlaceMarketBuy(t *testing.T) {
	broker, _ := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orderexecution/orders", r.URL.Path)
		assert.Equal(t, "Bearer fresh-token", r.Header.Get("Authorization"))

		var req placeOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ACC1", req.AccountID)
		assert.Equal(t, "AAPL", req.Symbol)
		assert.Equal(t, "5", req.Quantity)
		assert.Equal(t, "Market", req.OrderType)
		assert.Equal(t, "BUY", req.TradeAction)
		assert.Equal(t, "Intelligent", req.Route)
		assert.Equal(t, "GTC", req.TimeInForce["Duration"])
		assert.Empty(t, req.StopPrice)

		w.Write([]byte(`{"Orders":[{"OrderID":"286234","Message":"Order received"}]}`))
	})

	id, err := broker.PlaceMarketBuy(context.Background(), "aapl", 5)
	require.NoError(t, err)
	assert.Equal(t, "286234", id)
}

func TestBroker_PlaceStopLoss(t *testing.T) {
	broker, _ := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		var req placeOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SELL", req.TradeAction)
		assert.Equal(t, "StopMarket", req.OrderType)
		assert.Equal(t, "98.5", req.StopPrice)

		w.Write([]byte(`{"Orders":[{"OrderID":"1"}]}`))
	})

	_, err := broker.PlaceStopLoss(context.Background(), "AAPL", 5, 98.5)
	require.NoError(t, err)
}

func TestBroker_PlaceOrder_Rejection(t *testing.T) {
	broker, _ := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Errors":[{"Error":"INSUFFICIENT_FUNDS","Message":"not enough buying power"}]}`))
	})

	_, err := broker.PlaceMarketBuy(context.Background(), "AAPL", 5)

	var bizErr *brokers.BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Contains(t, bizErr.Body, "INSUFFICIENT_FUNDS")
}

func TestBroker_GetQuotes(t *testing.T) {
	t.Run("empty input makes no calls at all", func(t *testing.T) {
		var calls int32
		broker, _ := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
		})

		quotes, err := broker.GetQuotes(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, quotes)
		assert.Zero(t, atomic.LoadInt32(&calls))
	})

	t.Run("parses string-encoded prices", func(t *testing.T) {
		broker, _ := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/marketdata/quotes/AAPL,MSFT", r.URL.Path)

			w.Write([]byte(`{"Quotes":[{"Symbol":"AAPL","Last":"150.5"},{"Symbol":"MSFT","Last":"300.25"}]}`))
		})

		quotes, err := broker.GetQuotes(context.Background(), []string{"AAPL", "MSFT"})
		require.NoError(t, err)
		require.Len(t, quotes, 2)
		assert.Equal(t, models.Quote{Name: "AAPL", Price: 150.5}, quotes[0])
		assert.Equal(t, models.Quote{Name: "MSFT", Price: 300.25}, quotes[1])
	})

	t.Run("unparseable price surfaces the field", func(t *testing.T) {
		broker, _ := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"Quotes":[{"Symbol":"AAPL","Last":"n/a"}]}`))
		})

		_, err := broker.GetQuotes(context.Background(), []string{"AAPL"})
		assert.ErrorContains(t, err, "Last")
	})
}

func TestBroker_OrderStatus(t *testing.T) {
	t.Run("normalizes provider vocabulary", func(t *testing.T) {
		broker, _ := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/brokerage/accounts/ACC1/orders/286234", r.URL.Path)

			w.Write([]byte(`{"Orders":[{"OrderID":"286234","OrderType":"StopMarket","Status":"FLL","Legs":[{"Symbol":"AAPL","BuyOrSell":"SELLSHORT","ExecQuantity":"5","ExecutionPrice":"150.5","QuantityOrdered":"5"}]}]}`))
		})

		order, err := broker.OrderStatus(context.Background(), "286234")
		require.NoError(t, err)

		assert.Equal(t, "286234", order.ID)
		assert.Equal(t, "AAPL", order.Name)
		assert.Equal(t, models.OrderSideSell, order.Side)
		assert.Equal(t, models.OrderTypeStop, order.Type)
		assert.Equal(t, models.OrderStatusFilled, order.Status)
		assert.Equal(t, 5, order.ExecutedQuantity)

		cost, ok := order.Cost()
		require.True(t, ok)
		assert.InDelta(t, 752.5, cost, 1e-9)
	})

	t.Run("unfilled order has no cost", func(t *testing.T) {
		broker, _ := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"Orders":[{"OrderID":"1","OrderType":"Limit","Status":"ACK","Legs":[{"Symbol":"AAPL","BuyOrSell":"BUY","QuantityOrdered":"5"}]}]}`))
		})

		order, err := broker.OrderStatus(context.Background(), "1")
		require.NoError(t, err)

		assert.Equal(t, models.OrderStatusAccepted, order.Status)
		_, ok := order.Cost()
		assert.False(t, ok)
	})

	t.Run("order without legs is malformed", func(t *testing.T) {
		broker, _ := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"Orders":[{"OrderID":"1","OrderType":"Market","Status":"ACK","Legs":[]}]}`))
		})

		_, err := broker.OrderStatus(context.Background(), "1")
		assert.ErrorContains(t, err, "legs")
	})
}

func TestBroker_Positions(t *testing.T) {
	broker, _ := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/brokerage/accounts/ACC1/positions", r.URL.Path)

		w.Write([]byte(`{"Positions":[{"Symbol":"AAPL","Quantity":"10","TotalCost":"1500.5","Timestamp":"2023-01-10T14:41:11Z"}]}`))
	})

	positions, err := broker.Positions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)

	assert.Equal(t, "AAPL", positions[0].Name)
	assert.Equal(t, 10, positions[0].Size)
	assert.InDelta(t, 1500.5, positions[0].CostBasis, 1e-9)
}

func TestBroker_AccountBalance(t *testing.T) {
	broker, _ := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/brokerage/accounts/ACC1/balances", r.URL.Path)

		w.Write([]byte(`{"Balances":[{"AccountType":"Margin","CashBalance":"1000","Equity":"5000","MarketValue":"4000","UnrealizedProfitLoss":"25.5"}]}`))
	})

	balance, err := broker.AccountBalance(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 1000.0, balance.TotalCash, 1e-9)
	assert.InDelta(t, 5000.0, balance.TotalEquity, 1e-9)
	assert.InDelta(t, 25.5, balance.OpenPL, 1e-9)
	assert.Nil(t, balance.SettledCash)
}

func TestBroker_UnsupportedOperations(t *testing.T) {
	broker, _ := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unsupported operation must not reach the network")
	})

	_, err := broker.AccountPnL(context.Background(), nil)
	assert.ErrorIs(t, err, brokers.ErrUnsupported)

	_, err = broker.AccountHistory(context.Background())
	assert.ErrorIs(t, err, brokers.ErrUnsupported)

	_, err = broker.Calendar(context.Background())
	assert.ErrorIs(t, err, brokers.ErrUnsupported)

	assert.False(t, errors.Is(err, context.Canceled))
}

func TestStatusTable(t *testing.T) {
	cases := map[string]models.OrderStatus{
		"ACK": models.OrderStatusAccepted,
		"OPN": models.OrderStatusOpen,
		"FLL": models.OrderStatusFilled,
		"FPR": models.OrderStatusPartiallyFilled,
		"CAN": models.OrderStatusCanceled,
		"OUT": models.OrderStatusCanceled,
		"EXP": models.OrderStatusExpired,
		"REJ": models.OrderStatusRejected,
		"BRO": models.OrderStatusError,
	}

	for raw, want := range cases {
		assert.Equal(t, want, models.NormalizeOrderStatus(raw, statusTable), "status %s", raw)
	}
}
