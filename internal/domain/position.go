package domain

import "time"

// PositionKey identifies an open position. One user holds at most one
// open position per token.
type PositionKey struct {
	OwnerID      string
	TokenAddress string
}

// Position is an open trade awaiting exit.
type Position struct {
	OwnerID        string
	TokenAddress   string
	TokenSymbol    string
	TokenDecimals  int     // mint decimals, carried from the entry signal
	SizeSOL        float64 // SOL spent on entry
	TokensReceived float64 // token UI amount received on entry
	EntryPriceUSD  float64 // token price at entry
	EntryValueUSD  float64 // USD value of the entry
	EntrySignature string
	WhaleAddress   string // wallet whose activity triggered the entry
	OpenedAt       time.Time

	// Exit policy, fixed at open time.
	MaxHold      time.Duration
	MinProfitUSD float64
	StopLossPct  float64 // 0 disables the stop
}

// Key returns the map key for the position book.
func (p Position) Key() PositionKey {
	return PositionKey{OwnerID: p.OwnerID, TokenAddress: p.TokenAddress}
}
