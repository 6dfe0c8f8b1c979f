package domain

import "encoding/json"

// Quote is an aggregator swap quote. Raw keeps the untouched quote body
// because the swap-build endpoint wants it echoed back verbatim.
type Quote struct {
	InputMint      string
	OutputMint     string
	InAmount       uint64 // input mint base units
	OutAmount      uint64 // output mint base units
	PriceImpactPct float64
	SlippageBps    int
	Raw            json.RawMessage
}
