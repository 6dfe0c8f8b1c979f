package watch

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"solana-soldier/internal/domain"
	"solana-soldier/internal/observability"
	"solana-soldier/internal/solana"
)

// State is the connection state of the monitor.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
	StateListening
	StatePollingFallback
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateSubscribed:
		return "SUBSCRIBED"
	case StateListening:
		return "LISTENING"
	case StatePollingFallback:
		return "POLLING_FALLBACK"
	default:
		return "UNKNOWN"
	}
}

// Options configures a Monitor.
type Options struct {
	// DialWS opens the websocket transport. Required unless the monitor
	// is constructed for polling only.
	DialWS func(ctx context.Context) (solana.WSClient, error)
	RPC    solana.RPCClient

	// Watched are the whale wallet addresses to follow.
	Watched []string

	Parser *Parser
	Logger *log.Logger

	// MaxConnectAttempts before degrading to the polling fallback.
	MaxConnectAttempts int
	ConnectBackoff     time.Duration
	PollInterval       time.Duration
	// SubscribeRate bounds logsSubscribe calls per second; public nodes
	// throttle aggressive subscription bursts.
	SubscribeRate float64
	// Buffer is the activity channel capacity.
	Buffer int
}

// Monitor follows a set of whale wallets and emits their token moves.
//
// Preferred transport is a websocket logsSubscribe per wallet; when the
// socket cannot be established after MaxConnectAttempts tries, the
// monitor degrades to polling getSignaturesForAddress and never gives
// up. Transport failures are absorbed here: consumers only ever see
// parsed activities.
type Monitor struct {
	opts    Options
	watched map[string]bool
	parser  *Parser
	logger  *log.Logger
	limiter *rate.Limiter

	state atomic.Int32

	mu         sync.Mutex
	lastSeen   map[string]time.Time // wallet -> last observed activity
	lastPolled map[string]string    // wallet -> newest polled signature
	primed     map[string]bool      // wallet cursors known good, history will not replay
	activities chan domain.WhaleActivity
}

// New creates a Monitor.
func New(opts Options) *Monitor {
	if opts.MaxConnectAttempts == 0 {
		opts.MaxConnectAttempts = 3
	}
	if opts.ConnectBackoff == 0 {
		opts.ConnectBackoff = time.Second
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.SubscribeRate == 0 {
		opts.SubscribeRate = 2
	}
	if opts.Buffer == 0 {
		opts.Buffer = 256
	}
	if opts.Parser == nil {
		opts.Parser = NewParser(0)
	}

	watched := make(map[string]bool, len(opts.Watched))
	for _, addr := range opts.Watched {
		watched[addr] = true
	}

	return &Monitor{
		opts:       opts,
		watched:    watched,
		parser:     opts.Parser,
		logger:     opts.Logger,
		limiter:    rate.NewLimiter(rate.Limit(opts.SubscribeRate), 1),
		lastSeen:   make(map[string]time.Time),
		lastPolled: make(map[string]string),
		primed:     make(map[string]bool),
		activities: make(chan domain.WhaleActivity, opts.Buffer),
	}
}

func (m *Monitor) logf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

// Activities is the stream of parsed whale moves.
func (m *Monitor) Activities() <-chan domain.WhaleActivity {
	return m.activities
}

// State returns the current connection state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

func (m *Monitor) setState(s State) {
	old := State(m.state.Swap(int32(s)))
	if old != s {
		m.logf("state %s -> %s", old, s)
	}
	observability.SetPollingFallback(s == StatePollingFallback)
}

// NoteReconnecting reflects a dropped websocket connection in the
// monitor state. Wire it to the WS client's OnReconnecting hook.
func (m *Monitor) NoteReconnecting() {
	m.state.CompareAndSwap(int32(StateListening), int32(StateConnecting))
}

// NoteReconnected flips back to LISTENING once the transport has
// reconnected and resubscribed. Wire it to the OnReconnect hook.
func (m *Monitor) NoteReconnected() {
	m.state.CompareAndSwap(int32(StateConnecting), int32(StateListening))
}

// Stale returns watched wallets with no observed activity within maxAge.
// Wallets that never produced anything count from monitor start.
func (m *Monitor) Stale(maxAge time.Duration) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stale []string
	cutoff := time.Now().Add(-maxAge)
	for addr := range m.watched {
		if m.lastSeen[addr].Before(cutoff) {
			stale = append(stale, addr)
		}
	}
	return stale
}

// Run drives the monitor until ctx is cancelled. The activity channel is
// closed on return.
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.activities)
	defer m.setState(StateDisconnected)

	m.mu.Lock()
	now := time.Now()
	for addr := range m.watched {
		m.lastSeen[addr] = now
	}
	m.mu.Unlock()

	ws := m.connectWithRetry(ctx)
	if ctx.Err() != nil {
		if ws != nil {
			ws.Close()
		}
		return ctx.Err()
	}

	if ws == nil {
		m.logf("websocket unavailable after %d attempts, degrading to polling", m.opts.MaxConnectAttempts)
		m.fallbackLoop(ctx)
		return ctx.Err()
	}
	defer ws.Close()

	merged, err := m.subscribeAll(ctx, ws)
	if err != nil {
		m.logf("subscription setup failed, degrading to polling: %v", err)
		m.fallbackLoop(ctx)
		return ctx.Err()
	}

	m.setState(StateListening)
	m.listenLoop(ctx, merged)
	return ctx.Err()
}

// connectWithRetry dials the websocket up to MaxConnectAttempts times.
// Returns nil when every attempt failed.
func (m *Monitor) connectWithRetry(ctx context.Context) solana.WSClient {
	if m.opts.DialWS == nil {
		return nil
	}

	m.setState(StateConnecting)
	backoff := m.opts.ConnectBackoff

	for attempt := 1; attempt <= m.opts.MaxConnectAttempts; attempt++ {
		ws, err := m.opts.DialWS(ctx)
		if err == nil {
			return ws
		}
		m.logf("connect attempt %d/%d failed: %v", attempt, m.opts.MaxConnectAttempts, err)

		if attempt == m.opts.MaxConnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil
}

// subscribeAll opens one logs subscription per watched wallet, rate
// limited, and merges them into a single channel.
func (m *Monitor) subscribeAll(ctx context.Context, ws solana.WSClient) (<-chan solana.LogNotification, error) {
	var channels []<-chan solana.LogNotification
	for addr := range m.watched {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		ch, err := ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{addr}})
		if err != nil {
			return nil, err
		}
		m.logf("subscribed to %s", addr)
		channels = append(channels, ch)
	}
	m.setState(StateSubscribed)

	merged := make(chan solana.LogNotification, 1024)
	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(in <-chan solana.LogNotification) {
			defer wg.Done()
			for n := range in {
				select {
				case merged <- n:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	return merged, nil
}

// listenLoop consumes websocket notifications until ctx is done.
func (m *Monitor) listenLoop(ctx context.Context, merged <-chan solana.LogNotification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-merged:
			if !ok {
				return
			}
			if n.Err != nil {
				continue
			}
			m.handleSignature(ctx, n.Signature)
		}
	}
}

// handleSignature fetches the transaction and emits parsed activities.
func (m *Monitor) handleSignature(ctx context.Context, signature string) {
	tx, err := m.retryGetTransaction(ctx, signature)
	if err != nil {
		m.logf("transaction fetch failed for %s: %v", signature, err)
		observability.DefaultMetrics.TransactionFetchErrors.Inc()
		return
	}
	if tx == nil {
		return
	}

	for _, activity := range m.parser.Parse(tx, m.watched) {
		m.mu.Lock()
		m.lastSeen[activity.WhaleAddress] = time.Now()
		m.mu.Unlock()
		observability.RecordSignalParsed(activity.Action, float64(time.Now().Unix()))

		select {
		case m.activities <- activity:
		case <-ctx.Done():
			return
		}
	}
}

// retryGetTransaction retries transient fetch failures. Freshly confirmed
// transactions are often not yet queryable on the first try.
func (m *Monitor) retryGetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	const maxAttempts = 3
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(500 * time.Millisecond * time.Duration(1<<attempt)):
			}
		}

		tx, err := m.opts.RPC.GetTransaction(ctx, signature)
		if err == nil && tx != nil {
			return tx, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// fallbackLoop is the degraded transport: periodically diff recent
// signatures per wallet. It runs until ctx is cancelled and never gives
// up.
func (m *Monitor) fallbackLoop(ctx context.Context) {
	// Prime the per-wallet cursor so old history is not replayed. A
	// wallet whose priming call fails stays unprimed; its first polled
	// batch only establishes the cursor and emits nothing.
	for addr := range m.watched {
		sigs, err := m.opts.RPC.GetSignaturesForAddress(ctx, addr, &solana.SignaturesOpts{Limit: 1})
		if err != nil {
			m.logf("cursor priming failed for %s: %v", addr, err)
			continue
		}
		m.mu.Lock()
		if len(sigs) > 0 {
			m.lastPolled[addr] = sigs[0].Signature
		}
		m.primed[addr] = true
		m.mu.Unlock()
	}
	m.setState(StatePollingFallback)

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for addr := range m.watched {
				m.pollWallet(ctx, addr)
			}
		}
	}
}

// pollWallet fetches signatures newer than the wallet cursor and feeds
// them through the parser, oldest first.
func (m *Monitor) pollWallet(ctx context.Context, addr string) {
	m.mu.Lock()
	cursor := m.lastPolled[addr]
	primed := m.primed[addr]
	m.mu.Unlock()

	sigs, err := m.opts.RPC.GetSignaturesForAddress(ctx, addr, &solana.SignaturesOpts{
		Until: cursor,
		Limit: 25,
	})
	if err != nil {
		m.logf("poll failed for %s: %v", addr, err)
		return
	}
	if len(sigs) == 0 {
		m.mu.Lock()
		m.primed[addr] = true
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	m.lastPolled[addr] = sigs[0].Signature
	m.primed[addr] = true
	m.mu.Unlock()

	if !primed {
		// Uncursored batch: history, not fresh signals.
		return
	}

	// Newest first from the node; process oldest first.
	for i := len(sigs) - 1; i >= 0; i-- {
		if sigs[i].Err != nil {
			continue
		}
		m.handleSignature(ctx, sigs[i].Signature)
	}
}
