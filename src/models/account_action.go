package models

import "time"

// AccountAction is a non-trading ledger event on the account: deposits,
// withdrawals, dividends, fees, interest and the like.
type AccountAction struct {
	Type   string
	Amount float64
	Date   time.Time
}

// LedgerEntry converts the action into the (timestamp, amount) form
// consumed by NewReturnStream.
func (a AccountAction) LedgerEntry() LedgerEntry {
	return LedgerEntry{Time: a.Date, Amount: a.Amount}
}

// LedgerEntry is a signed dollar adjustment at a point in time.
type LedgerEntry struct {
	Time   time.Time
	Amount float64
}
