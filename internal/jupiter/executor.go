package jupiter

import (
	"context"
	"log"
	"time"

	"solana-soldier/internal/domain"
	"solana-soldier/internal/idhash"
	"solana-soldier/internal/signer"
	"solana-soldier/internal/solana"
)

// Execution defaults.
const (
	DefaultMaxPriceImpactPct = 5.0
	DefaultSlippageBps       = 100
	DefaultConfirmTimeout    = 60 * time.Second

	lamportsPerSOL = 1_000_000_000
)

// SwapRequest describes one swap to execute.
type SwapRequest struct {
	OwnerID string
	Action  string // BUY | SELL

	InputMint  string
	OutputMint string
	// Amount is in input-mint base units (lamports for SOL input).
	Amount uint64

	// Token side of the swap, for reporting.
	TokenAddress  string
	TokenSymbol   string
	TokenDecimals int

	// Signer overrides the executor default, for per-user wallets.
	Signer signer.Signer
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	API    API
	RPC    solana.RPCClient
	Signer signer.Signer
	Logger *log.Logger

	// MaxPriceImpactPct rejects quotes that would move the market more
	// than this. Zero uses the default.
	MaxPriceImpactPct float64
	SlippageBps       int
	ConfirmTimeout    time.Duration
}

// Executor runs the full swap pipeline: quote, impact gate, build, sign,
// submit, confirm. A failed stage short-circuits; nothing is submitted
// after a failure.
type Executor struct {
	api            API
	rpc            solana.RPCClient
	signer         signer.Signer
	logger         *log.Logger
	maxImpactPct   float64
	slippageBps    int
	confirmTimeout time.Duration
}

// NewExecutor creates an Executor.
func NewExecutor(opts ExecutorOptions) *Executor {
	e := &Executor{
		api:            opts.API,
		rpc:            opts.RPC,
		signer:         opts.Signer,
		logger:         opts.Logger,
		maxImpactPct:   opts.MaxPriceImpactPct,
		slippageBps:    opts.SlippageBps,
		confirmTimeout: opts.ConfirmTimeout,
	}
	if e.maxImpactPct == 0 {
		e.maxImpactPct = DefaultMaxPriceImpactPct
	}
	if e.slippageBps == 0 {
		e.slippageBps = DefaultSlippageBps
	}
	if e.confirmTimeout == 0 {
		e.confirmTimeout = DefaultConfirmTimeout
	}
	return e
}

func (e *Executor) logf(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

func (e *Executor) newResult(req SwapRequest, now time.Time) domain.TradeResult {
	return domain.TradeResult{
		TradeID:      idhash.ComputeTradeID(req.OwnerID, req.TokenAddress, req.Action, now.UnixMilli()),
		OwnerID:      req.OwnerID,
		TokenAddress: req.TokenAddress,
		TokenSymbol:  req.TokenSymbol,
		Action:       req.Action,
		ExecutedAt:   now,
	}
}

func fail(result domain.TradeResult, stage string, err error) domain.TradeResult {
	result.Success = false
	if err != nil {
		result.Error = stage + ": " + err.Error()
	} else {
		result.Error = stage
	}
	return result
}

// ExecuteSwap runs the pipeline for one swap and always returns a result,
// never a bare error: failures are reported in the result so the caller
// can ledger and notify uniformly.
func (e *Executor) ExecuteSwap(ctx context.Context, req SwapRequest) domain.TradeResult {
	now := time.Now()
	result := e.newResult(req, now)

	quote, err := e.api.GetQuote(ctx, req.InputMint, req.OutputMint, req.Amount, e.slippageBps)
	if err != nil {
		e.logf("quote failed for %s %s: %v", req.Action, req.TokenAddress, err)
		return fail(result, "quote failed", err)
	}

	if quote.PriceImpactPct > e.maxImpactPct {
		e.logf("rejecting %s %s: price impact %.2f%% exceeds %.2f%%",
			req.Action, req.TokenAddress, quote.PriceImpactPct, e.maxImpactPct)
		return fail(result, "price impact too high", nil)
	}

	e.fillAmounts(&result, req, quote)

	sgn := e.signer
	if req.Signer != nil {
		sgn = req.Signer
	}

	txB64, err := e.api.BuildSwapTransaction(ctx, quote, sgn.PublicKey())
	if err != nil {
		return fail(result, "swap build failed", err)
	}

	signed, err := sgn.SignTransaction(txB64)
	if err != nil {
		return fail(result, "signing failed", err)
	}

	sig, err := e.rpc.SendTransaction(ctx, signed)
	if err != nil {
		return fail(result, "submit failed", err)
	}
	result.Signature = sig

	confirmed, err := e.rpc.ConfirmTransaction(ctx, sig, e.confirmTimeout)
	if err != nil {
		return fail(result, "confirmation failed", err)
	}
	if !confirmed {
		// Submitted but unconfirmed: the swap may still land. Keep the
		// signature so the outcome can be reconciled by hand.
		e.logf("confirmation timed out for %s, outcome ambiguous", sig)
		result.Ambiguous = true
		result.Error = "confirmation timed out"
		return result
	}

	result.Success = true

	if price, err := e.api.GetPriceUSD(ctx, req.TokenAddress); err == nil {
		result.PriceUSD = price
	} else {
		e.logf("price fetch failed for %s: %v", req.TokenAddress, err)
	}

	return result
}

// fillAmounts derives SOL and token amounts from the quote.
func (e *Executor) fillAmounts(result *domain.TradeResult, req SwapRequest, quote *domain.Quote) {
	tokenScale := domain.TokenScale(req.TokenDecimals)

	switch req.Action {
	case domain.ActionBuy:
		result.AmountSOL = float64(quote.InAmount) / lamportsPerSOL
		result.TokensReceived = float64(quote.OutAmount) / tokenScale
	case domain.ActionSell:
		result.TokensReceived = float64(quote.InAmount) / tokenScale
		result.AmountSOL = float64(quote.OutAmount) / lamportsPerSOL
	}
}
