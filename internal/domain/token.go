package domain

import (
	"math"
	"time"
)

// TokenInfo is the metadata snapshot the risk gate evaluates.
type TokenInfo struct {
	Address           string
	Symbol            string
	Name              string
	Decimals          int
	LiquidityUSD      float64
	Holders           int
	CreatedAt         time.Time
	Creator           string
	MintAuthority     bool    // mint authority still enabled
	FreezeAuthority   bool    // freeze authority still enabled
	TopHolderPct      float64 // combined top-holder share of supply, 0..1
	CreatorHoldingPct float64 // creator share of supply, 0..1
}

// TokenScale is the base-unit divisor for a mint. Zero means the
// decimals are unknown and the SPL default of 9 applies.
func TokenScale(decimals int) float64 {
	if decimals == 0 {
		decimals = 9
	}
	return math.Pow10(decimals)
}
