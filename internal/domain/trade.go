package domain

import "time"

// TradeResult captures the outcome of one swap attempt, success or not.
// Every attempt is recorded to the ledger and reported to the user.
type TradeResult struct {
	TradeID      string // deterministic hash
	OwnerID      string
	TokenAddress string
	TokenSymbol  string
	Action       string // BUY | SELL

	AmountSOL      float64 // SOL side of the swap
	TokensReceived float64 // token UI amount (BUY: received, SELL: sold)
	PriceUSD       float64 // token price at execution time

	Signature string // set once the transaction was submitted
	Success   bool
	// Ambiguous is set when the transaction was submitted but confirmation
	// timed out. The signature stays populated for manual reconciliation.
	Ambiguous bool

	ExitReason string   // set on SELL results
	PnLUSD     *float64 // set on SELL results
	Error      string   // failure stage description when Success is false

	ExecutedAt time.Time
}

// Exit reason codes
const (
	ExitReasonProfitTarget = "PROFIT_TARGET"
	ExitReasonTimeout      = "TIMEOUT"
	ExitReasonStopLoss     = "STOP_LOSS"
	ExitReasonShutdown     = "SHUTDOWN"
)
