package models

// AccountBalance is a snapshot of an account's cash and equity values.
//
// SettledCash is nil when the provider does not distinguish settled from
// unsettled funds (margin accounts, typically). nil means "not reported",
// which is different from a reported zero balance.
type AccountBalance struct {
	TotalCash   float64
	TotalEquity float64
	OpenPL      float64
	LongValue   float64
	SettledCash *float64
}
