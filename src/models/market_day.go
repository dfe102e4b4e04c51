package models

import "time"

// MarketDay is a single trading session on the market calendar.
type MarketDay struct {
	Open  time.Time
	Close time.Time
}
