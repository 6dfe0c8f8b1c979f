package domain

import "time"

// RugCheckResult is the verdict of the risk gate for one token.
type RugCheckResult struct {
	TokenAddress string
	IsSafe       bool
	RiskScore    float64 // 0.0 (clean) .. 1.0 (certain rug)
	Reasons      []string
	LiquidityUSD float64
	Holders      int
	CheckedAt    time.Time
}
