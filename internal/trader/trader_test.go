package trader

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"solana-soldier/internal/domain"
	"solana-soldier/internal/jupiter"
	"solana-soldier/internal/ledger/memory"
	"solana-soldier/internal/solana/stub"
)

type fakeSigner struct{ pubkey string }

func (f *fakeSigner) PublicKey() string { return f.pubkey }
func (f *fakeSigner) SignTransaction(tx string) (string, error) {
	return "signed:" + tx, nil
}

type fakeRisk struct {
	mu     sync.Mutex
	result domain.RugCheckResult
	calls  int
}

func (f *fakeRisk) Check(_ context.Context, token string) domain.RugCheckResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	r := f.result
	r.TokenAddress = token
	return r
}

func safeRisk(liquidity float64, holders int) *fakeRisk {
	return &fakeRisk{result: domain.RugCheckResult{
		IsSafe:       true,
		LiquidityUSD: liquidity,
		Holders:      holders,
	}}
}

type fakeExecutor struct {
	mu       sync.Mutex
	requests []jupiter.SwapRequest
	results  map[string]domain.TradeResult // by action
	seq      int
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{results: make(map[string]domain.TradeResult)}
}

func (f *fakeExecutor) setResult(action string, res domain.TradeResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[action] = res
}

func (f *fakeExecutor) ExecuteSwap(_ context.Context, req jupiter.SwapRequest) domain.TradeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.seq++

	res := f.results[req.Action]
	res.TradeID = fmt.Sprintf("trade-%d", f.seq)
	res.OwnerID = req.OwnerID
	res.TokenAddress = req.TokenAddress
	res.TokenSymbol = req.TokenSymbol
	res.Action = req.Action
	res.ExecutedAt = time.Now()
	return res
}

func (f *fakeExecutor) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeExecutor) request(i int) jupiter.SwapRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

type fakePrices struct {
	mu    sync.Mutex
	price float64
	err   error
}

func (f *fakePrices) GetPriceUSD(_ context.Context, _ string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.price, f.err
}

func (f *fakePrices) set(price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = price
}

type fakeNotifier struct {
	mu     sync.Mutex
	trades []domain.TradeResult
	whales []domain.WhaleActivity
}

func (f *fakeNotifier) NotifyTrade(_ string, t *domain.TradeResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, *t)
}

func (f *fakeNotifier) NotifyWhale(a domain.WhaleActivity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.whales = append(f.whales, a)
}

func (f *fakeNotifier) tradeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.trades)
}

type fakeSnapshots struct {
	mu    sync.Mutex
	snaps []domain.PnLSnapshot
}

func (f *fakeSnapshots) InsertBulk(_ context.Context, in []*domain.PnLSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range in {
		f.snaps = append(f.snaps, *s)
	}
	return nil
}

func (f *fakeSnapshots) GetByPosition(_ context.Context, ownerID, tokenAddress string) ([]*domain.PnLSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PnLSnapshot
	for i := range f.snaps {
		if f.snaps[i].OwnerID == ownerID && f.snaps[i].TokenAddress == tokenAddress {
			s := f.snaps[i]
			out = append(out, &s)
		}
	}
	return out, nil
}

func (f *fakeSnapshots) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snaps)
}

func (f *fakeSnapshots) first() domain.PnLSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snaps[0]
}

// testTrader bundles a Trader with its fakes.
type testTrader struct {
	trader   *Trader
	registry *Registry
	risk     *fakeRisk
	executor *fakeExecutor
	prices   *fakePrices
	rpc      *stub.RPCClient
	store    *memory.TradeStore
	notifier *fakeNotifier
}

func newTestTrader(t *testing.T) *testTrader {
	t.Helper()

	tt := &testTrader{
		registry: NewRegistry(),
		risk:     safeRisk(50_000, 1000),
		executor: newFakeExecutor(),
		prices:   &fakePrices{price: 1.0},
		rpc:      stub.NewRPCClient(),
		store:    memory.NewTradeStore(),
		notifier: &fakeNotifier{},
	}
	tt.executor.setResult(domain.ActionBuy, domain.TradeResult{
		Success:        true,
		AmountSOL:      0.1,
		TokensReceived: 100,
		PriceUSD:       1.0,
		Signature:      "buy-sig",
	})
	tt.executor.setResult(domain.ActionSell, domain.TradeResult{
		Success:   true,
		AmountSOL: 0.1,
		PriceUSD:  1.0,
		Signature: "sell-sig",
	})

	tt.trader = New(Options{
		Registry:         tt.registry,
		Risk:             tt.risk,
		Executor:         tt.executor,
		Prices:           tt.prices,
		RPC:              tt.rpc,
		Trades:           tt.store,
		Notifier:         tt.notifier,
		ExitPollInterval: 10 * time.Millisecond,
	})
	return tt
}

func (tt *testTrader) addSubscriber(t *testing.T, sub *Subscriber) {
	t.Helper()
	if sub.Signer == nil {
		sub.Signer = &fakeSigner{pubkey: "pub-" + sub.OwnerID}
	}
	if err := tt.registry.Add(sub); err != nil {
		t.Fatalf("add subscriber: %v", err)
	}
	// 1 SOL unless the test overrides it.
	tt.rpc.SetBalance(sub.Signer.PublicKey(), 1_000_000_000)
}

func buyActivity(token string) domain.WhaleActivity {
	return domain.WhaleActivity{
		WhaleAddress: "whale1",
		TokenAddress: token,
		TokenSymbol:  "TKN",
		Action:       domain.ActionBuy,
		AmountTokens: 50_000,
		Signature:    "whale-sig",
		Confidence:   0.70,
	}
}

func TestRegistry_Defaults(t *testing.T) {
	r := NewRegistry()
	err := r.Add(&Subscriber{
		OwnerID:        "owner1",
		Signer:         &fakeSigner{pubkey: "pub1"},
		TradeAmountSOL: 0.1,
		Enabled:        true,
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	sub, ok := r.Get("owner1")
	if !ok {
		t.Fatal("subscriber not found")
	}
	if sub.GasReserveSOL != DefaultGasReserveSOL {
		t.Errorf("expected gas reserve default, got %f", sub.GasReserveSOL)
	}
	if sub.MinProfitUSD != DefaultMinProfitUSD {
		t.Errorf("expected min profit default, got %f", sub.MinProfitUSD)
	}
	if sub.MaxHold != DefaultMaxHold {
		t.Errorf("expected max hold default, got %v", sub.MaxHold)
	}
	if sub.MaxPositionSOL != 0.1 {
		t.Errorf("expected max position to default to trade amount, got %f", sub.MaxPositionSOL)
	}
}

func TestRegistry_Invalid(t *testing.T) {
	r := NewRegistry()
	cases := []*Subscriber{
		nil,
		{Signer: &fakeSigner{}, TradeAmountSOL: 1},
		{OwnerID: "x", TradeAmountSOL: 1},
		{OwnerID: "x", Signer: &fakeSigner{}},
	}
	for i, sub := range cases {
		if err := r.Add(sub); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestRegistry_ActiveFiltersDisabled(t *testing.T) {
	r := NewRegistry()
	r.Add(&Subscriber{OwnerID: "on", Signer: &fakeSigner{}, TradeAmountSOL: 1, Enabled: true})
	r.Add(&Subscriber{OwnerID: "off", Signer: &fakeSigner{}, TradeAmountSOL: 1})

	active := r.Active()
	if len(active) != 1 || active[0].OwnerID != "on" {
		t.Errorf("expected only enabled subscriber, got %+v", active)
	}

	if err := r.SetEnabled("off", true); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	if len(r.Active()) != 2 {
		t.Error("expected both enabled after toggle")
	}
}

func TestPositionBook(t *testing.T) {
	b := NewPositionBook()
	pos := &domain.Position{OwnerID: "owner1", TokenAddress: "mintA"}

	if err := b.Open(pos); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := b.Open(pos); err != ErrPositionExists {
		t.Errorf("expected ErrPositionExists, got %v", err)
	}
	if b.Count() != 1 {
		t.Errorf("expected 1 open position, got %d", b.Count())
	}

	got, ok := b.Close(pos.Key())
	if !ok || got.TokenAddress != "mintA" {
		t.Errorf("unexpected close result %+v %v", got, ok)
	}
	if _, ok := b.Close(pos.Key()); ok {
		t.Error("second close must report missing")
	}
}

func TestHandleActivity_CopiesBuy(t *testing.T) {
	tt := newTestTrader(t)
	tt.addSubscriber(t, &Subscriber{OwnerID: "owner1", TradeAmountSOL: 0.1, Enabled: true})

	tt.trader.HandleActivity(context.Background(), buyActivity("mintA"))

	if tt.executor.requestCount() != 1 {
		t.Fatalf("expected 1 swap, got %d", tt.executor.requestCount())
	}
	req := tt.executor.request(0)
	if req.Action != domain.ActionBuy || req.OutputMint != "mintA" {
		t.Errorf("unexpected request %+v", req)
	}
	if req.InputMint != domain.WSOLMint {
		t.Errorf("entry must spend WSOL, got %s", req.InputMint)
	}
	if req.Amount != 100_000_000 {
		t.Errorf("expected 0.1 SOL in lamports, got %d", req.Amount)
	}

	// Position opened.
	if _, ok := tt.trader.Book().Get(domain.PositionKey{OwnerID: "owner1", TokenAddress: "mintA"}); !ok {
		t.Error("expected open position")
	}

	// Recorded and reported.
	trades, _ := tt.store.ListByOwner(context.Background(), "owner1", 0)
	if len(trades) != 1 {
		t.Errorf("expected 1 ledger record, got %d", len(trades))
	}
	if tt.notifier.tradeCount() != 1 {
		t.Errorf("expected 1 trade notification, got %d", tt.notifier.tradeCount())
	}
	if len(tt.notifier.whales) != 1 {
		t.Errorf("expected 1 whale alert, got %d", len(tt.notifier.whales))
	}

	tt.trader.CancelAll(context.Background())
}

func TestHandleActivity_CarriesTokenDecimals(t *testing.T) {
	// A 6-decimal mint: the decimals from the whale's transaction must
	// reach the swap request and the open position, or amount accounting
	// is off by orders of magnitude.
	tt := newTestTrader(t)
	tt.addSubscriber(t, &Subscriber{OwnerID: "owner1", TradeAmountSOL: 0.1, Enabled: true})

	a := buyActivity("mintA")
	a.TokenDecimals = 6
	tt.trader.HandleActivity(context.Background(), a)

	if tt.executor.requestCount() != 1 {
		t.Fatalf("expected 1 swap, got %d", tt.executor.requestCount())
	}
	if got := tt.executor.request(0).TokenDecimals; got != 6 {
		t.Errorf("expected decimals 6 on the entry request, got %d", got)
	}

	pos, ok := tt.trader.Book().Get(domain.PositionKey{OwnerID: "owner1", TokenAddress: "mintA"})
	if !ok {
		t.Fatal("expected open position")
	}
	if pos.TokenDecimals != 6 {
		t.Errorf("expected decimals 6 on the position, got %d", pos.TokenDecimals)
	}
	tt.trader.CancelAll(context.Background())
}

func TestHandleActivity_SellIgnored(t *testing.T) {
	tt := newTestTrader(t)
	tt.addSubscriber(t, &Subscriber{OwnerID: "owner1", TradeAmountSOL: 0.1, Enabled: true})

	a := buyActivity("mintA")
	a.Action = domain.ActionSell
	tt.trader.HandleActivity(context.Background(), a)

	if tt.executor.requestCount() != 0 {
		t.Error("sell signal must not trade")
	}
	// Admin still hears about it.
	if len(tt.notifier.whales) != 1 {
		t.Errorf("expected whale alert, got %d", len(tt.notifier.whales))
	}
}

func TestHandleActivity_BaseAssetIgnored(t *testing.T) {
	tt := newTestTrader(t)
	tt.addSubscriber(t, &Subscriber{OwnerID: "owner1", TradeAmountSOL: 0.1, Enabled: true})

	tt.trader.HandleActivity(context.Background(), buyActivity(domain.USDCMint))

	if tt.executor.requestCount() != 0 {
		t.Error("base asset buy must not trade")
	}
	if tt.risk.calls != 0 {
		t.Error("base asset skip must come before the risk gate")
	}
}

func TestHandleActivity_UnsafeTokenBlocked(t *testing.T) {
	tt := newTestTrader(t)
	tt.addSubscriber(t, &Subscriber{OwnerID: "owner1", TradeAmountSOL: 0.1, Enabled: true})
	tt.risk.result = domain.RugCheckResult{IsSafe: false, RiskScore: 1.0, Reasons: []string{"fetch failed"}}

	tt.trader.HandleActivity(context.Background(), buyActivity("mintA"))

	if tt.executor.requestCount() != 0 {
		t.Error("unsafe token must not trade")
	}
}

func TestHandleActivity_LowLiquidityBlocked(t *testing.T) {
	tt := newTestTrader(t)
	tt.addSubscriber(t, &Subscriber{OwnerID: "owner1", TradeAmountSOL: 0.1, Enabled: true})
	tt.risk.result.LiquidityUSD = 5_000 // below the 10k floor

	tt.trader.HandleActivity(context.Background(), buyActivity("mintA"))

	if tt.executor.requestCount() != 0 {
		t.Error("thin token must not trade")
	}
}

func TestHandleActivity_InsufficientBalance(t *testing.T) {
	tt := newTestTrader(t)
	tt.addSubscriber(t, &Subscriber{OwnerID: "owner1", TradeAmountSOL: 0.1, Enabled: true})
	// 0.1 SOL: enough for the trade, not for trade + gas reserve.
	tt.rpc.SetBalance("pub-owner1", 100_000_000)

	tt.trader.HandleActivity(context.Background(), buyActivity("mintA"))

	if tt.executor.requestCount() != 0 {
		t.Error("underfunded wallet must not trade")
	}
}

func TestHandleActivity_ClampsToMaxPosition(t *testing.T) {
	tt := newTestTrader(t)
	tt.addSubscriber(t, &Subscriber{
		OwnerID:        "owner1",
		TradeAmountSOL: 2,
		MaxPositionSOL: 0.5,
		Enabled:        true,
	})
	tt.rpc.SetBalance("pub-owner1", 10_000_000_000)

	tt.trader.HandleActivity(context.Background(), buyActivity("mintA"))

	if tt.executor.requestCount() != 1 {
		t.Fatalf("expected 1 swap, got %d", tt.executor.requestCount())
	}
	if got := tt.executor.request(0).Amount; got != 500_000_000 {
		t.Errorf("expected clamp to 0.5 SOL, got %d lamports", got)
	}
	tt.trader.CancelAll(context.Background())
}

func TestHandleActivity_DuplicatePositionSkipped(t *testing.T) {
	tt := newTestTrader(t)
	tt.addSubscriber(t, &Subscriber{OwnerID: "owner1", TradeAmountSOL: 0.1, Enabled: true})

	tt.trader.HandleActivity(context.Background(), buyActivity("mintA"))
	tt.trader.HandleActivity(context.Background(), buyActivity("mintA"))

	if tt.executor.requestCount() != 1 {
		t.Errorf("second signal for held token must not trade, got %d swaps", tt.executor.requestCount())
	}
	tt.trader.CancelAll(context.Background())
}

func TestHandleActivity_FailedEntryRecordedNoPosition(t *testing.T) {
	tt := newTestTrader(t)
	tt.addSubscriber(t, &Subscriber{OwnerID: "owner1", TradeAmountSOL: 0.1, Enabled: true})
	tt.executor.setResult(domain.ActionBuy, domain.TradeResult{
		Success: false,
		Error:   "price impact too high",
	})

	tt.trader.HandleActivity(context.Background(), buyActivity("mintA"))

	if tt.trader.Book().Count() != 0 {
		t.Error("failed entry must not open a position")
	}
	trades, _ := tt.store.ListByOwner(context.Background(), "owner1", 0)
	if len(trades) != 1 || trades[0].Success {
		t.Errorf("failed entry must still be recorded, got %+v", trades)
	}
	if tt.notifier.tradeCount() != 1 {
		t.Errorf("failed entry must still notify, got %d", tt.notifier.tradeCount())
	}
}

func TestHandleActivity_FanOutToAllSubscribers(t *testing.T) {
	tt := newTestTrader(t)
	tt.addSubscriber(t, &Subscriber{OwnerID: "owner1", TradeAmountSOL: 0.1, Enabled: true})
	tt.addSubscriber(t, &Subscriber{OwnerID: "owner2", TradeAmountSOL: 0.2, Enabled: true})
	tt.addSubscriber(t, &Subscriber{OwnerID: "owner3", TradeAmountSOL: 0.1}) // disabled

	tt.trader.HandleActivity(context.Background(), buyActivity("mintA"))

	if tt.executor.requestCount() != 2 {
		t.Errorf("expected swaps for 2 enabled subscribers, got %d", tt.executor.requestCount())
	}
	if tt.risk.calls != 1 {
		t.Errorf("risk gate must run once per signal, got %d", tt.risk.calls)
	}
	tt.trader.CancelAll(context.Background())
}

func TestAdjustConfidence(t *testing.T) {
	// Clean token with deep liquidity and many holders gets a boost.
	up := adjustConfidence(0.70, domain.RugCheckResult{LiquidityUSD: 100_000, Holders: 1000})
	if up <= 0.70 {
		t.Errorf("expected boost, got %f", up)
	}

	// Risky token drags the score down.
	down := adjustConfidence(0.70, domain.RugCheckResult{RiskScore: 0.45, LiquidityUSD: 20_000, Holders: 100})
	if down >= 0.70 {
		t.Errorf("expected drag, got %f", down)
	}

	// Clamps.
	if got := adjustConfidence(0.05, domain.RugCheckResult{RiskScore: 0.45}); got != 0.1 {
		t.Errorf("expected floor 0.1, got %f", got)
	}
	if got := adjustConfidence(0.95, domain.RugCheckResult{LiquidityUSD: 100_000, Holders: 1000}); got != 0.95 {
		t.Errorf("expected cap 0.95, got %f", got)
	}
}
