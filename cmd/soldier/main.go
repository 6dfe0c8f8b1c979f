// Command soldier follows a set of whale wallets and copies their token
// buys for every registered subscriber, holding each position until a
// profit target, stop loss or timeout exit.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-soldier/internal/jupiter"
	"solana-soldier/internal/ledger"
	"solana-soldier/internal/ledger/clickhouse"
	"solana-soldier/internal/ledger/memory"
	"solana-soldier/internal/ledger/migrations"
	"solana-soldier/internal/ledger/postgres"
	"solana-soldier/internal/notify"
	"solana-soldier/internal/observability"
	"solana-soldier/internal/riskgate"
	"solana-soldier/internal/signer"
	"solana-soldier/internal/solana"
	"solana-soldier/internal/solscan"
	"solana-soldier/internal/trader"
	"solana-soldier/internal/watch"
)

const staleWalletAge = 30 * time.Minute

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, enables P&L snapshots)")
	solscanKey := flag.String("solscan-api-key", os.Getenv("SOLSCAN_API_KEY"), "Solscan API key for token metadata")
	telegramToken := flag.String("telegram-token", os.Getenv("TELEGRAM_BOT_TOKEN"), "Telegram bot token (optional, falls back to log notifications)")
	adminChatID := flag.Int64("telegram-admin-chat", envInt64("TELEGRAM_ADMIN_CHAT_ID"), "Telegram chat for whale alerts (0 disables)")
	whales := flag.String("whales", os.Getenv("WHALE_WALLETS"), "Comma-separated whale wallet addresses to follow")
	ownerID := flag.String("owner-id", envOr("OWNER_ID", "default"), "Subscriber identifier")
	ownerChatID := flag.Int64("owner-chat", envInt64("OWNER_CHAT_ID"), "Telegram chat for the subscriber's trade notifications")
	tradeSize := flag.Float64("trade-size", 0.1, "Copy-trade size in SOL")
	maxPosition := flag.Float64("max-position", 0, "Position size cap in SOL (0 = trade size)")
	minProfit := flag.Float64("min-profit", trader.DefaultMinProfitUSD, "Profit target in USD")
	stopLossPct := flag.Float64("stop-loss-pct", 0, "Stop loss as percent drop from entry (0 disables)")
	maxHold := flag.Duration("max-hold", trader.DefaultMaxHold, "Maximum position hold time")
	minLiquidity := flag.Float64("min-liquidity", trader.DefaultMinLiquidityUSD, "Minimum pool liquidity in USD to copy a buy")
	useMemory := flag.Bool("use-memory", false, "Use in-memory trade storage instead of PostgreSQL")
	httpAddr := flag.String("http-addr", ":9090", "HTTP address for /health, /metrics and /status")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[soldier] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	watched := splitList(*whales)
	if len(watched) == 0 {
		logger.Fatal("No whale wallets specified. Use --whales or WHALE_WALLETS")
	}
	logger.Printf("Following %d whale wallets", len(watched))

	// The signing key never goes through a flag.
	walletSecret := os.Getenv("WALLET_SECRET_KEY")
	if walletSecret == "" {
		logger.Fatal("WALLET_SECRET_KEY is required")
	}
	sgn, err := signer.NewLocalSigner(walletSecret)
	if err != nil {
		logger.Fatalf("Failed to load wallet key: %v", err)
	}
	logger.Printf("Trading wallet: %s", sgn.PublicKey())

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Chain clients
	rpc := solana.NewHTTPClient(*rpcEndpoint)
	jup := jupiter.NewClient(2, logger)
	scan := solscan.NewClient(*solscanKey, 2, logger)

	risk := riskgate.New(riskgate.Options{
		Metadata:     scan,
		RPC:          rpc,
		KnownRuggers: riskgate.DefaultKnownRuggers,
		Logger:       logger,
	})

	executor := jupiter.NewExecutor(jupiter.ExecutorOptions{
		API:    jup,
		RPC:    rpc,
		Signer: sgn,
		Logger: logger,
	})

	// Trade ledger
	trades, snapshots, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Notifications
	var notifier notify.Notifier
	if *telegramToken != "" {
		tg, err := notify.NewTelegramNotifier(*telegramToken, *adminChatID, logger)
		if err != nil {
			logger.Fatalf("Failed to connect Telegram bot: %v", err)
		}
		if *ownerChatID != 0 {
			tg.RegisterChat(*ownerID, *ownerChatID)
		}
		notifier = tg
	} else {
		logger.Println("No Telegram token, notifications go to the log")
		notifier = notify.NewLogNotifier(logger)
	}

	// Subscribers
	registry := trader.NewRegistry()
	err = registry.Add(&trader.Subscriber{
		OwnerID:        *ownerID,
		Signer:         sgn,
		TradeAmountSOL: *tradeSize,
		MaxPositionSOL: *maxPosition,
		MinProfitUSD:   *minProfit,
		StopLossPct:    *stopLossPct,
		MaxHold:        *maxHold,
		Enabled:        true,
	})
	if err != nil {
		logger.Fatalf("Failed to register subscriber: %v", err)
	}

	// The dial closure feeds transport reconnect events back into the
	// monitor's state, so /status reflects a dropped socket.
	var monitor *watch.Monitor
	monitor = watch.New(watch.Options{
		DialWS: func(ctx context.Context) (solana.WSClient, error) {
			return solana.NewWSClient(ctx, *wsEndpoint, &solana.WSClientConfig{
				Logger:         logger,
				OnReconnecting: func() { monitor.NoteReconnecting() },
				OnReconnect: func() {
					observability.RecordWSReconnect()
					monitor.NoteReconnected()
				},
			})
		},
		RPC:     rpc,
		Watched: watched,
		Logger:  logger,
	})

	bot := trader.New(trader.Options{
		Registry:        registry,
		Risk:            risk,
		Executor:        executor,
		Prices:          jup,
		RPC:             rpc,
		Trades:          trades,
		Snapshots:       snapshots,
		Notifier:        notifier,
		Logger:          logger,
		MinLiquidityUSD: *minLiquidity,
	})

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go startHTTPServer(*httpAddr, monitor, bot, logger)

	go func() {
		if err := monitor.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("Monitor stopped: %v", err)
		}
	}()
	go trackStaleWallets(ctx, monitor, logger)

	err = bot.Run(ctx, monitor.Activities())

	// Flatten the book before reporting shutdown: one final exit swap
	// per open position, on a fresh context.
	exitCtx, exitCancel := context.WithTimeout(context.Background(), 20*time.Second)
	bot.CancelAll(exitCtx)
	exitCancel()

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Trader error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores wires the trade ledger and the optional snapshot store.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (ledger.TradeStore, ledger.SnapshotStore, func(), error) {
	if useMemory {
		logger.Println("Using in-memory trade storage")
		return memory.NewTradeStore(), nil, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	if clickhouseDSN == "" {
		logger.Println("No ClickHouse DSN, P&L snapshots disabled")
		return postgres.NewTradeStore(pool), nil, pool.Close, nil
	}

	conn, err := clickhouse.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		conn.Close()
		pool.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return postgres.NewTradeStore(pool), clickhouse.NewSnapshotStore(conn), cleanup, nil
}

// startHTTPServer serves health, metrics and status endpoints.
func startHTTPServer(addr string, monitor *watch.Monitor, bot *trader.Trader, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		positions := bot.Book().List()
		status := map[string]interface{}{
			"monitor_state":  monitor.State().String(),
			"stale_wallets":  monitor.Stale(staleWalletAge),
			"open_positions": positions,
			"position_count": len(positions),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})

	logger.Printf("HTTP server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Printf("HTTP server error: %v", err)
	}
}

// trackStaleWallets periodically updates the stale wallet gauge and
// warns when watched wallets go quiet.
func trackStaleWallets(ctx context.Context, monitor *watch.Monitor, logger *log.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale := monitor.Stale(staleWalletAge)
			observability.SetStaleWallets(len(stale))
			if len(stale) > 0 {
				logger.Printf("WARNING: no activity from %d watched wallets in %v: %v",
					len(stale), staleWalletAge, stale)
			}
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
