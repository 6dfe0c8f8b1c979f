// Package riskgate scores tokens for rug-pull risk before any buy.
package riskgate

import (
	"context"
	"encoding/base64"
	"log"
	"time"

	"solana-soldier/internal/domain"
	"solana-soldier/internal/solana"
	"solana-soldier/internal/solscan"
)

// Indicator weights. Scores are additive and capped at 1.0.
const (
	weightLowLiquidity    = 0.30
	weightLowHolders      = 0.20
	weightYoungToken      = 0.15
	weightMintAuthority   = 0.25
	weightFreezeAuthority = 0.20
	weightKnownCreator    = 0.50
	weightCreatorHolding  = 0.35
	weightConcentration   = 0.25
)

// Indicator thresholds.
const (
	minLiquidityUSD     = 5000.0
	minHolders          = 50
	minTokenAge         = 24 * time.Hour
	maxCreatorHolding   = 0.20 // creator holds >20% of supply
	maxTopConcentration = 0.70 // top holders own >70% of supply
	topHoldersChecked   = 10

	// A score at or above this threshold marks the token unsafe.
	unsafeThreshold = 0.5
)

// DefaultKnownRuggers are creator wallets with confirmed rug history.
var DefaultKnownRuggers = []string{
	"AUFxnVLsKkkupjCY4kmA5ZDH8c4HgK7CZ4FYw1VcXpn8",
}

// MetadataSource provides token metadata for scoring.
type MetadataSource interface {
	GetTokenMeta(ctx context.Context, mint string) (*solscan.TokenMeta, error)
	GetTopHolders(ctx context.Context, mint string, limit int) ([]solscan.Holder, error)
}

// Options configures a Detector.
type Options struct {
	Metadata MetadataSource
	RPC      solana.RPCClient
	// KnownRuggers are creator addresses that always fail the gate hard.
	KnownRuggers []string
	Logger       *log.Logger
}

// Detector evaluates rug-pull indicators for a token. Any metadata fetch
// failure fails closed: the token is reported unsafe with maximum risk.
type Detector struct {
	metadata     MetadataSource
	rpc          solana.RPCClient
	knownRuggers map[string]bool
	logger       *log.Logger
}

// New creates a Detector.
func New(opts Options) *Detector {
	known := make(map[string]bool, len(opts.KnownRuggers))
	for _, addr := range opts.KnownRuggers {
		known[addr] = true
	}
	return &Detector{
		metadata:     opts.Metadata,
		rpc:          opts.RPC,
		knownRuggers: known,
		logger:       opts.Logger,
	}
}

func (d *Detector) logf(format string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}

// failClosed is the verdict when metadata cannot be fetched.
func failClosed(mint, reason string) domain.RugCheckResult {
	return domain.RugCheckResult{
		TokenAddress: mint,
		IsSafe:       false,
		RiskScore:    1.0,
		Reasons:      []string{reason},
		CheckedAt:    time.Now(),
	}
}

// Check scores a token. It never returns an error: when data cannot be
// fetched the token is treated as unsafe.
func (d *Detector) Check(ctx context.Context, mint string) domain.RugCheckResult {
	info, reason, err := d.gather(ctx, mint)
	if err != nil {
		d.logf("rug check failed for %s, treating as unsafe: %v", mint, err)
		return failClosed(mint, reason)
	}
	return d.score(info)
}

// gather assembles the metadata snapshot the scoring pass evaluates. The
// reason return labels which fetch failed.
func (d *Detector) gather(ctx context.Context, mint string) (*domain.TokenInfo, string, error) {
	meta, err := d.metadata.GetTokenMeta(ctx, mint)
	if err != nil {
		return nil, "metadata fetch failed", err
	}

	holders, err := d.metadata.GetTopHolders(ctx, mint, topHoldersChecked)
	if err != nil {
		return nil, "holder distribution fetch failed", err
	}
	var topShare float64
	var creatorShare float64
	for _, h := range holders {
		topShare += h.Percent
		if h.Owner == meta.Creator {
			creatorShare += h.Percent
		}
	}

	mintAuth, freezeAuth := d.checkAuthorities(ctx, mint)

	return &domain.TokenInfo{
		Address:           mint,
		Symbol:            meta.Symbol,
		Name:              meta.Name,
		Decimals:          meta.Decimals,
		LiquidityUSD:      meta.LiquidityUSD,
		Holders:           meta.Holders,
		CreatedAt:         meta.CreatedAt,
		Creator:           meta.Creator,
		MintAuthority:     mintAuth,
		FreezeAuthority:   freezeAuth,
		TopHolderPct:      topShare,
		CreatorHoldingPct: creatorShare,
	}, "", nil
}

// score applies the indicator weights to a snapshot.
func (d *Detector) score(info *domain.TokenInfo) domain.RugCheckResult {
	var score float64
	var reasons []string

	if info.LiquidityUSD < minLiquidityUSD {
		score += weightLowLiquidity
		reasons = append(reasons, "low liquidity")
	}
	if info.Holders < minHolders {
		score += weightLowHolders
		reasons = append(reasons, "few holders")
	}
	if !info.CreatedAt.IsZero() && time.Since(info.CreatedAt) < minTokenAge {
		score += weightYoungToken
		reasons = append(reasons, "token younger than 24h")
	}
	if info.Creator != "" && d.knownRuggers[info.Creator] {
		score += weightKnownCreator
		reasons = append(reasons, "creator on deny list")
	}
	if info.MintAuthority {
		score += weightMintAuthority
		reasons = append(reasons, "mint authority enabled")
	}
	if info.FreezeAuthority {
		score += weightFreezeAuthority
		reasons = append(reasons, "freeze authority enabled")
	}
	if info.CreatorHoldingPct > maxCreatorHolding {
		score += weightCreatorHolding
		reasons = append(reasons, "creator holds large supply share")
	}
	if info.TopHolderPct > maxTopConcentration {
		score += weightConcentration
		reasons = append(reasons, "supply concentrated in top holders")
	}

	if score > 1.0 {
		score = 1.0
	}

	return domain.RugCheckResult{
		TokenAddress: info.Address,
		IsSafe:       score < unsafeThreshold,
		RiskScore:    score,
		Reasons:      reasons,
		LiquidityUSD: info.LiquidityUSD,
		Holders:      info.Holders,
		CheckedAt:    time.Now(),
	}
}

// SPL mint account layout offsets.
const (
	mintAuthorityOptionOffset   = 0
	freezeAuthorityOptionOffset = 46
	mintAccountMinLen           = 50
)

// checkAuthorities reads the mint account and reports whether mint and
// freeze authorities are still enabled. On fetch or parse failure both
// are assumed enabled: worst case wins.
func (d *Detector) checkAuthorities(ctx context.Context, mint string) (mintAuth, freezeAuth bool) {
	info, err := d.rpc.GetAccountInfo(ctx, mint)
	if err != nil || info == nil {
		d.logf("mint account fetch failed for %s, assuming authorities enabled: %v", mint, err)
		return true, true
	}

	data, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil || len(data) < mintAccountMinLen {
		d.logf("mint account data unreadable for %s, assuming authorities enabled", mint)
		return true, true
	}

	mintAuth = readUint32LE(data, mintAuthorityOptionOffset) == 1
	freezeAuth = readUint32LE(data, freezeAuthorityOptionOffset) == 1
	return mintAuth, freezeAuth
}

// readUint32LE reads a little-endian uint32 at offset.
func readUint32LE(data []byte, offset int) uint32 {
	return uint32(data[offset]) |
		uint32(data[offset+1])<<8 |
		uint32(data[offset+2])<<16 |
		uint32(data[offset+3])<<24
}
