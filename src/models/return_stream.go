package models

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
)

var (
	// ErrNoClosedPositions is returned when a return stream is built from an
	// empty closed-position sequence: without a first position there is no
	// baseline to measure returns against.
	ErrNoClosedPositions = errors.New("return stream requires at least one closed position")

	// ErrZeroBaseline is returned when a percent-change baseline is exactly
	// zero, which would make the percentage undefined.
	ErrZeroBaseline = errors.New("percent change is undefined for a zero baseline")
)

type datedGain struct {
	date   time.Time
	amount float64
}

// ReturnStream is a realized-return time series derived from closed
// positions and ledger adjustments. Gains and adjustments are bucketed by
// UTC calendar date, summed per date, and ordered chronologically.
//
// The baseline denominator for every percentage is the cost basis of the
// chronologically first closed position passed to NewReturnStream.
type ReturnStream struct {
	initial float64
	gains   []datedGain
}

// NewReturnStream builds a return stream from closed positions, ordered by
// occurrence, plus any non-trading ledger adjustments (deposits,
// withdrawals, fees). It fails with ErrNoClosedPositions on an empty
// position sequence and with ErrZeroBaseline when the first position has a
// zero cost basis.
func NewReturnStream(closed []ClosedPosition, adjustments []LedgerEntry) (*ReturnStream, error) {
	if len(closed) == 0 {
		return nil, ErrNoClosedPositions
	}

	initial := closed[0].CostBasis
	if initial == 0 {
		return nil, fmt.Errorf("NewReturnStream: cost basis of first closed position (%s): %w", closed[0].Name, ErrZeroBaseline)
	}

	grouped := make(map[time.Time]float64)
	for _, pos := range closed {
		grouped[utcDate(pos.TimeClosed)] += pos.Gain()
	}
	for _, adj := range adjustments {
		grouped[utcDate(adj.Time)] += adj.Amount
	}

	gains := make([]datedGain, 0, len(grouped))
	for date, amount := range grouped {
		gains = append(gains, datedGain{date: date, amount: amount})
	}

	sort.Slice(gains, func(i, j int) bool {
		return gains[i].date.Before(gains[j].date)
	})

	return &ReturnStream{initial: initial, gains: gains}, nil
}

func utcDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func percentChange(start, end float64) float64 {
	return (end - start) / start * 100
}

func (r *ReturnStream) amounts() []float64 {
	amounts := make([]float64, 0, len(r.gains))
	for _, g := range r.gains {
		amounts = append(amounts, g.amount)
	}
	return amounts
}

// TotalReturn is the percent change from the baseline to the sum of all
// realized gains and adjustments.
func (r *ReturnStream) TotalReturn() float64 {
	total, _ := stats.Sum(r.amounts())
	return percentChange(r.initial, total)
}

// YTDReturn is the percent change from gains realized in years before the
// current UTC year to the total of all gains.
func (r *ReturnStream) YTDReturn() (float64, error) {
	return r.YTDReturnAsOf(time.Now().UTC())
}

// YTDReturnAsOf computes the year-to-date return relative to asOf's year.
// It fails with ErrZeroBaseline when no gains were realized before that
// year, since the prior-year total is the percentage denominator.
func (r *ReturnStream) YTDReturnAsOf(asOf time.Time) (float64, error) {
	var prior float64
	for _, g := range r.gains {
		if g.date.Year() < asOf.Year() {
			prior += g.amount
		}
	}

	if prior == 0 {
		return 0, fmt.Errorf("YTDReturnAsOf: no gains before %d: %w", asOf.Year(), ErrZeroBaseline)
	}

	total, _ := stats.Sum(r.amounts())
	return percentChange(prior, total), nil
}

// Returns yields one (date, cumulative percent return) pair per distinct
// date, in chronological order. The percent at each date is the change
// from the baseline to the running total of gains through that date, so
// the final pair equals TotalReturn. The sequence is restartable.
func (r *ReturnStream) Returns() iter.Seq2[time.Time, float64] {
	return func(yield func(time.Time, float64) bool) {
		var running float64
		for _, g := range r.gains {
			running += g.amount
			if !yield(g.date, percentChange(r.initial, running)) {
				return
			}
		}
	}
}
