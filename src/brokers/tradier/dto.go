package tradier

import (
	"fmt"
	"time"

	"github.com/jiaming2012/trading-brokers/src/models"
)

type quoteDTO struct {
	Symbol string  `json:"symbol"`
	Last   float64 `json:"last"`
}

func (dto quoteDTO) toQuote() models.Quote {
	return models.Quote{Name: dto.Symbol, Price: dto.Last}
}

type orderDTO struct {
	ID           int      `json:"id"`
	Symbol       string   `json:"symbol"`
	Side         string   `json:"side"`
	Type         string   `json:"type"`
	Status       string   `json:"status"`
	ExecQuantity float64  `json:"exec_quantity"`
	AvgFillPrice *float64 `json:"avg_fill_price"`
}

func (dto orderDTO) toOrder() models.Order {
	return models.Order{
		ID:               fmt.Sprintf("%d", dto.ID),
		Name:             dto.Symbol,
		Side:             models.NormalizeOrderSide(dto.Side, nil),
		Type:             models.NormalizeOrderType(dto.Type, nil),
		Status:           models.NormalizeOrderStatus(dto.Status, statusTable),
		ExecutedQuantity: int(dto.ExecQuantity),
		AvgFillPrice:     dto.AvgFillPrice,
	}
}

type positionDTO struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	CostBasis    float64 `json:"cost_basis"`
	DateAcquired string  `json:"date_acquired"`
}

func (dto positionDTO) toPosition() (models.Position, error) {
	timeOpened, err := time.Parse(time.RFC3339, dto.DateAcquired)
	if err != nil {
		return models.Position{}, fmt.Errorf("position %s: failed to parse date_acquired: %w", dto.Symbol, err)
	}

	return models.Position{
		Name:       dto.Symbol,
		Size:       int(dto.Quantity),
		CostBasis:  dto.CostBasis,
		TimeOpened: timeOpened,
	}, nil
}

type closedPositionDTO struct {
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	Cost      float64 `json:"cost"`
	Proceeds  float64 `json:"proceeds"`
	OpenDate  string  `json:"open_date"`
	CloseDate string  `json:"close_date"`
}

func (dto closedPositionDTO) toClosedPosition() (models.ClosedPosition, error) {
	timeOpened, err := time.Parse(time.RFC3339, dto.OpenDate)
	if err != nil {
		return models.ClosedPosition{}, fmt.Errorf("closed position %s: failed to parse open_date: %w", dto.Symbol, err)
	}

	timeClosed, err := time.Parse(time.RFC3339, dto.CloseDate)
	if err != nil {
		return models.ClosedPosition{}, fmt.Errorf("closed position %s: failed to parse close_date: %w", dto.Symbol, err)
	}

	return models.ClosedPosition{
		Position: models.Position{
			Name:       dto.Symbol,
			Size:       int(dto.Quantity),
			CostBasis:  dto.Cost,
			TimeOpened: timeOpened,
		},
		Proceeds:   dto.Proceeds,
		TimeClosed: timeClosed,
	}, nil
}

type accountEventDTO struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

func (dto accountEventDTO) toAccountAction() (models.AccountAction, error) {
	date, err := time.Parse(time.RFC3339, dto.Date)
	if err != nil {
		return models.AccountAction{}, fmt.Errorf("account event %s: failed to parse date: %w", dto.Type, err)
	}

	return models.AccountAction{Type: dto.Type, Amount: dto.Amount, Date: date}, nil
}

type balancesDTO struct {
	Balances struct {
		AccountType     string  `json:"account_type"`
		TotalCash       float64 `json:"total_cash"`
		TotalEquity     float64 `json:"total_equity"`
		OpenPL          float64 `json:"open_pl"`
		LongMarketValue float64 `json:"long_market_value"`
		Cash            *struct {
			UnsettledFunds float64 `json:"unsettled_funds"`
		} `json:"cash"`
	} `json:"balances"`
}

func (dto balancesDTO) toAccountBalance() models.AccountBalance {
	balance := models.AccountBalance{
		TotalCash:   dto.Balances.TotalCash,
		TotalEquity: dto.Balances.TotalEquity,
		OpenPL:      dto.Balances.OpenPL,
		LongValue:   dto.Balances.LongMarketValue,
	}

	// Settled cash is only meaningful for cash accounts; margin accounts
	// leave it absent.
	if dto.Balances.AccountType == "cash" && dto.Balances.Cash != nil {
		settled := dto.Balances.TotalCash - dto.Balances.Cash.UnsettledFunds
		balance.SettledCash = &settled
	}

	return balance
}

type calendarDTO struct {
	Calendar struct {
		Days struct {
			Day []calendarDayDTO `json:"day"`
		} `json:"days"`
	} `json:"calendar"`
}

type calendarDayDTO struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Open   *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"open"`
}

func (dto calendarDayDTO) toMarketDay(loc *time.Location) (models.MarketDay, error) {
	open, err := time.ParseInLocation("2006-01-02 15:04", fmt.Sprintf("%s %s", dto.Date, dto.Open.Start), loc)
	if err != nil {
		return models.MarketDay{}, fmt.Errorf("calendar day %s: failed to parse open: %w", dto.Date, err)
	}

	close, err := time.ParseInLocation("2006-01-02 15:04", fmt.Sprintf("%s %s", dto.Date, dto.Open.End), loc)
	if err != nil {
		return models.MarketDay{}, fmt.Errorf("calendar day %s: failed to parse close: %w", dto.Date, err)
	}

	return models.MarketDay{Open: open, Close: close}, nil
}
