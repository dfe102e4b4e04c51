package tradestation

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jiaming2012/trading-brokers/src/models"
)

// TradeStation serializes most numeric fields as strings; parse failures
// surface as data-integrity errors rather than being coerced to zero.
func parseDecimal(field, raw string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s %q: %w", field, raw, err)
	}
	return value, nil
}

type quoteDTO struct {
	Symbol string `json:"Symbol"`
	Last   string `json:"Last"`
}

func (dto quoteDTO) toQuote() (models.Quote, error) {
	last, err := parseDecimal("Last", dto.Last)
	if err != nil {
		return models.Quote{}, fmt.Errorf("quote %s: %w", dto.Symbol, err)
	}

	return models.Quote{Name: dto.Symbol, Price: last}, nil
}

type orderLegDTO struct {
	Symbol          string `json:"Symbol"`
	BuyOrSell       string `json:"BuyOrSell"`
	ExecQuantity    string `json:"ExecQuantity"`
	ExecutionPrice  string `json:"ExecutionPrice"`
	QuantityOrdered string `json:"QuantityOrdered"`
}

type orderDTO struct {
	OrderID   string        `json:"OrderID"`
	OrderType string        `json:"OrderType"`
	Status    string        `json:"Status"`
	Legs      []orderLegDTO `json:"Legs"`
}

func (dto orderDTO) toOrder() (models.Order, error) {
	if len(dto.Legs) == 0 {
		return models.Order{}, fmt.Errorf("order %s: no legs in response", dto.OrderID)
	}

	// Multi-leg option strategies are out of scope; equity orders carry a
	// single leg.
	leg := dto.Legs[0]

	order := models.Order{
		ID:     dto.OrderID,
		Name:   leg.Symbol,
		Side:   models.NormalizeOrderSide(leg.BuyOrSell, sideTable),
		Type:   models.NormalizeOrderType(dto.OrderType, typeTable),
		Status: models.NormalizeOrderStatus(dto.Status, statusTable),
	}

	if leg.ExecQuantity != "" {
		executed, err := parseDecimal("ExecQuantity", leg.ExecQuantity)
		if err != nil {
			return models.Order{}, fmt.Errorf("order %s: %w", dto.OrderID, err)
		}
		order.ExecutedQuantity = int(executed)
	}

	if leg.ExecutionPrice != "" {
		price, err := parseDecimal("ExecutionPrice", leg.ExecutionPrice)
		if err != nil {
			return models.Order{}, fmt.Errorf("order %s: %w", dto.OrderID, err)
		}
		order.AvgFillPrice = &price
	}

	return order, nil
}

type positionDTO struct {
	Symbol    string `json:"Symbol"`
	Quantity  string `json:"Quantity"`
	TotalCost string `json:"TotalCost"`
	Timestamp string `json:"Timestamp"`
}

func (dto positionDTO) toPosition() (models.Position, error) {
	quantity, err := parseDecimal("Quantity", dto.Quantity)
	if err != nil {
		return models.Position{}, fmt.Errorf("position %s: %w", dto.Symbol, err)
	}

	cost, err := parseDecimal("TotalCost", dto.TotalCost)
	if err != nil {
		return models.Position{}, fmt.Errorf("position %s: %w", dto.Symbol, err)
	}

	timeOpened, err := time.Parse(time.RFC3339, dto.Timestamp)
	if err != nil {
		return models.Position{}, fmt.Errorf("position %s: failed to parse Timestamp: %w", dto.Symbol, err)
	}

	return models.Position{
		Name:       dto.Symbol,
		Size:       int(quantity),
		CostBasis:  cost,
		TimeOpened: timeOpened,
	}, nil
}

type balanceDTO struct {
	AccountType          string `json:"AccountType"`
	CashBalance          string `json:"CashBalance"`
	Equity               string `json:"Equity"`
	MarketValue          string `json:"MarketValue"`
	UnrealizedProfitLoss string `json:"UnrealizedProfitLoss"`
}

func (dto balanceDTO) toAccountBalance() (models.AccountBalance, error) {
	cash, err := parseDecimal("CashBalance", dto.CashBalance)
	if err != nil {
		return models.AccountBalance{}, err
	}

	equity, err := parseDecimal("Equity", dto.Equity)
	if err != nil {
		return models.AccountBalance{}, err
	}

	longValue, err := parseDecimal("MarketValue", dto.MarketValue)
	if err != nil {
		return models.AccountBalance{}, err
	}

	openPL, err := parseDecimal("UnrealizedProfitLoss", dto.UnrealizedProfitLoss)
	if err != nil {
		return models.AccountBalance{}, err
	}

	// TradeStation does not break out settled funds, so SettledCash stays
	// absent regardless of account type.
	return models.AccountBalance{
		TotalCash:   cash,
		TotalEquity: equity,
		OpenPL:      openPL,
		LongValue:   longValue,
	}, nil
}
