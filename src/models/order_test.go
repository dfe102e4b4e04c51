package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrder_Cost(t *testing.T) {
	t.Run("absent fill price means absent cost", func(t *testing.T) {
		order := Order{ID: "1", Name: "AAPL", ExecutedQuantity: 10}

		cost, ok := order.Cost()
		assert.False(t, ok)
		assert.Zero(t, cost)
	})

	t.Run("zero fill price is a valid cost", func(t *testing.T) {
		price := 0.0
		order := Order{ID: "1", Name: "AAPL", ExecutedQuantity: 10, AvgFillPrice: &price}

		cost, ok := order.Cost()
		assert.True(t, ok)
		assert.Zero(t, cost)
	})

	t.Run("cost is quantity times fill price", func(t *testing.T) {
		price := 150.5
		order := Order{ID: "1", Name: "AAPL", ExecutedQuantity: 10, AvgFillPrice: &price}

		cost, ok := order.Cost()
		assert.True(t, ok)
		assert.InDelta(t, 1505.0, cost, 1e-9)
	})
}

func TestPosition_Equal(t *testing.T) {
	opened := time.Date(2023, time.January, 10, 15, 0, 0, 0, time.UTC)

	t.Run("symbol comparison is case-insensitive", func(t *testing.T) {
		a := Position{Name: "AAPL", Size: 10, CostBasis: 100, TimeOpened: opened}
		b := Position{Name: "aapl", Size: -5, CostBasis: 250, TimeOpened: opened.AddDate(0, 1, 0)}

		assert.True(t, a.Equal(b))
		assert.True(t, a.Is("Aapl"))
	})

	t.Run("different symbols differ", func(t *testing.T) {
		a := Position{Name: "AAPL", Size: 10, CostBasis: 100, TimeOpened: opened}
		b := Position{Name: "MSFT", Size: 10, CostBasis: 100, TimeOpened: opened}

		assert.False(t, a.Equal(b))
	})
}

func TestAccountBalance_SettledCash(t *testing.T) {
	t.Run("absent is not zero", func(t *testing.T) {
		reported := AccountBalance{TotalCash: 1000}
		zero := 0.0
		settledAtZero := AccountBalance{TotalCash: 1000, SettledCash: &zero}

		assert.Nil(t, reported.SettledCash)
		assert.NotNil(t, settledAtZero.SettledCash)
		assert.Zero(t, *settledAtZero.SettledCash)
	})
}
