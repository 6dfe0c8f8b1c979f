package trader

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-soldier/internal/domain"
	"solana-soldier/internal/jupiter"
	"solana-soldier/internal/ledger"
	"solana-soldier/internal/notify"
	"solana-soldier/internal/observability"
	"solana-soldier/internal/solana"
)

// Trading defaults.
const (
	DefaultMinLiquidityUSD  = 10_000.0
	DefaultExitPollInterval = 5 * time.Second

	lamportsPerSOL = 1_000_000_000
)

// RiskGate vets a token before any subscriber buys it.
type RiskGate interface {
	Check(ctx context.Context, tokenAddress string) domain.RugCheckResult
}

// SwapExecutor runs one swap end to end and always reports a result.
type SwapExecutor interface {
	ExecuteSwap(ctx context.Context, req jupiter.SwapRequest) domain.TradeResult
}

// PriceOracle provides live USD prices for the exit monitor.
type PriceOracle interface {
	GetPriceUSD(ctx context.Context, mint string) (float64, error)
}

// Options configures a Trader.
type Options struct {
	Registry *Registry
	Risk     RiskGate
	Executor SwapExecutor
	Prices   PriceOracle
	RPC      solana.RPCClient
	Trades   ledger.TradeStore
	Notifier notify.Notifier
	Logger   *log.Logger

	// Snapshots receives P&L observations from the exit monitor.
	// Optional.
	Snapshots ledger.SnapshotStore

	MinLiquidityUSD  float64
	ExitPollInterval time.Duration
}

// Trader copies whale buys for every enabled subscriber and watches the
// resulting positions until a profit target, stop loss or timeout exit.
//
// Each open position gets its own monitor goroutine. Monitors outlive
// the signal stream: shutting down the stream leaves them running until
// CancelAll force-exits whatever is still open.
type Trader struct {
	opts   Options
	book   *PositionBook
	logger *log.Logger

	exitCtx    context.Context
	exitCancel context.CancelFunc
	monitors   sync.WaitGroup
}

// New creates a Trader.
func New(opts Options) *Trader {
	if opts.MinLiquidityUSD == 0 {
		opts.MinLiquidityUSD = DefaultMinLiquidityUSD
	}
	if opts.ExitPollInterval == 0 {
		opts.ExitPollInterval = DefaultExitPollInterval
	}

	exitCtx, exitCancel := context.WithCancel(context.Background())
	return &Trader{
		opts:       opts,
		book:       NewPositionBook(),
		logger:     opts.Logger,
		exitCtx:    exitCtx,
		exitCancel: exitCancel,
	}
}

func (t *Trader) logf(format string, args ...interface{}) {
	if t.logger != nil {
		t.logger.Printf(format, args...)
	}
}

// Book exposes the position book, for the status endpoint.
func (t *Trader) Book() *PositionBook {
	return t.book
}

// Run consumes whale activities until the channel closes or ctx is
// cancelled. Exit monitors keep running after Run returns; call
// CancelAll to flatten the book.
func (t *Trader) Run(ctx context.Context, activities <-chan domain.WhaleActivity) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a, ok := <-activities:
			if !ok {
				return nil
			}
			t.HandleActivity(ctx, a)
		}
	}
}

// HandleActivity runs the entry gates for one whale signal and fans the
// buy out to every enabled subscriber.
func (t *Trader) HandleActivity(ctx context.Context, a domain.WhaleActivity) {
	if t.opts.Notifier != nil {
		t.opts.Notifier.NotifyWhale(a)
	}

	if a.Action != domain.ActionBuy {
		observability.RecordSkip("not_buy")
		return
	}
	if domain.IsBaseAsset(a.TokenAddress) {
		observability.RecordSkip("base_asset")
		return
	}

	subs := t.opts.Registry.Active()
	if len(subs) == 0 {
		return
	}

	risk := t.opts.Risk.Check(ctx, a.TokenAddress)
	if !risk.IsSafe {
		t.logf("skipping %s: risk %.2f %v", a.TokenAddress, risk.RiskScore, risk.Reasons)
		observability.RecordSkip("risk")
		return
	}
	if risk.LiquidityUSD < t.opts.MinLiquidityUSD {
		t.logf("skipping %s: liquidity $%.0f below $%.0f",
			a.TokenAddress, risk.LiquidityUSD, t.opts.MinLiquidityUSD)
		observability.RecordSkip("liquidity")
		return
	}

	confidence := adjustConfidence(a.Confidence, risk)
	t.logf("copying whale %s buy of %s (confidence %.2f)",
		a.WhaleAddress, a.TokenAddress, confidence)

	for _, sub := range subs {
		t.enter(ctx, sub, a, risk)
	}
}

// enter runs the per-subscriber gates and executes the entry swap.
func (t *Trader) enter(ctx context.Context, sub *Subscriber, a domain.WhaleActivity, risk domain.RugCheckResult) {
	key := domain.PositionKey{OwnerID: sub.OwnerID, TokenAddress: a.TokenAddress}
	if _, open := t.book.Get(key); open {
		t.logf("%s already holds %s, skipping", sub.OwnerID, a.TokenAddress)
		observability.RecordSkip("position_open")
		return
	}

	size := sub.TradeAmountSOL
	if size > sub.MaxPositionSOL {
		size = sub.MaxPositionSOL
	}

	lamports, err := t.opts.RPC.GetBalance(ctx, sub.Signer.PublicKey())
	if err != nil {
		t.logf("balance check failed for %s: %v", sub.OwnerID, err)
		observability.RecordSkip("balance_unavailable")
		return
	}
	balanceSOL := float64(lamports) / lamportsPerSOL
	if balanceSOL < size+sub.GasReserveSOL {
		t.logf("%s balance %.4f SOL below %.4f needed, skipping",
			sub.OwnerID, balanceSOL, size+sub.GasReserveSOL)
		observability.RecordSkip("insufficient_balance")
		return
	}

	result := t.opts.Executor.ExecuteSwap(ctx, jupiter.SwapRequest{
		OwnerID:       sub.OwnerID,
		Action:        domain.ActionBuy,
		InputMint:     domain.WSOLMint,
		OutputMint:    a.TokenAddress,
		Amount:        uint64(size * lamportsPerSOL),
		TokenAddress:  a.TokenAddress,
		TokenSymbol:   a.TokenSymbol,
		TokenDecimals: a.TokenDecimals,
		Signer:        sub.Signer,
	})
	t.record(ctx, sub.OwnerID, &result)

	if !result.Success {
		return
	}

	pos := &domain.Position{
		OwnerID:        sub.OwnerID,
		TokenAddress:   a.TokenAddress,
		TokenSymbol:    a.TokenSymbol,
		TokenDecimals:  a.TokenDecimals,
		SizeSOL:        result.AmountSOL,
		TokensReceived: result.TokensReceived,
		EntryPriceUSD:  result.PriceUSD,
		EntryValueUSD:  result.PriceUSD * result.TokensReceived,
		EntrySignature: result.Signature,
		WhaleAddress:   a.WhaleAddress,
		OpenedAt:       result.ExecutedAt,
		MaxHold:        sub.MaxHold,
		MinProfitUSD:   sub.MinProfitUSD,
		StopLossPct:    sub.StopLossPct,
	}
	if err := t.book.Open(pos); err != nil {
		t.logf("position open failed for %s/%s: %v", sub.OwnerID, a.TokenAddress, err)
		return
	}
	observability.SetOpenPositions(t.book.Count())

	t.monitors.Add(1)
	go t.watchPosition(*pos)
}

// record persists and reports one terminal trade outcome. Ledger
// failures are logged, never propagated: a broken database must not
// stop trading.
func (t *Trader) record(ctx context.Context, ownerID string, result *domain.TradeResult) {
	observability.RecordTrade(result.Action, result.Success)

	if t.opts.Trades != nil {
		if err := t.opts.Trades.Record(ctx, result); err != nil {
			t.logf("ledger record failed for %s: %v", result.TradeID, err)
		}
	}
	if t.opts.Notifier != nil {
		t.opts.Notifier.NotifyTrade(ownerID, result)
	}
}

// adjustConfidence folds risk data into the parser's size-based score.
// Clamped to [0.1, 0.95].
func adjustConfidence(base float64, risk domain.RugCheckResult) float64 {
	c := base - 0.3*risk.RiskScore
	if risk.LiquidityUSD >= 50_000 {
		c += 0.05
	}
	if risk.Holders >= 500 {
		c += 0.05
	}
	if c < 0.1 {
		c = 0.1
	}
	if c > 0.95 {
		c = 0.95
	}
	return c
}
