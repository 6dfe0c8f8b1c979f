package domain

// Well-known mints. Whale movements of these are treated as funding
// noise, not trade signals.
const (
	WSOLMint = "So11111111111111111111111111111111111111112"
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// IsBaseAsset reports whether mint is a base/stable asset rather than a
// tradeable token.
func IsBaseAsset(mint string) bool {
	return mint == WSOLMint || mint == USDCMint
}
