package models

// Quote is a point-in-time price snapshot for a single symbol.
type Quote struct {
	Name  string
	Price float64
}
