package domain

// Trade direction constants, shared by whale activity and executed trades.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// WhaleActivity is a single observed token movement by a watched wallet,
// derived from pre/post token balance deltas of a confirmed transaction.
// One transaction touching several watched wallets produces one activity
// per wallet.
type WhaleActivity struct {
	WhaleAddress  string  // watched wallet (owner of the token account)
	TokenAddress  string  // token mint
	TokenSymbol   string  // best-effort symbol, may be empty
	TokenDecimals int     // mint decimals, from the transaction's balance meta
	Action        string  // BUY when the balance delta is positive, SELL otherwise
	AmountTokens  float64 // absolute balance delta in UI units
	Signature     string  // transaction signature
	Slot          int64   // slot the transaction landed in
	ObservedAt    int64   // Unix timestamp in milliseconds
	Confidence    float64 // 0.1..0.95, adjusted by downstream risk/liquidity data
}
