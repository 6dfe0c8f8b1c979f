package domain

// PnLSnapshot is one observation of an open position's mark-to-market
// value, taken on every exit-monitor poll.
type PnLSnapshot struct {
	OwnerID      string
	TokenAddress string
	ObservedAtMs int64
	PriceUSD     float64
	TokensHeld   float64
	ValueUSD     float64
	PnLUSD       float64
}
