// Package notify delivers trade outcomes and whale alerts to users.
package notify

import (
	"fmt"
	"log"
	"strings"
	"time"

	"solana-soldier/internal/domain"
)

// Notifier delivers messages to users. Implementations are
// fire-and-forget: delivery failures are logged, never returned, so a
// broken channel cannot stall trading.
type Notifier interface {
	// NotifyTrade reports one terminal trade outcome to its owner.
	NotifyTrade(ownerID string, t *domain.TradeResult)

	// NotifyWhale reports an observed whale move to the admin channel.
	NotifyWhale(a domain.WhaleActivity)
}

// LogNotifier writes notifications to the process log. Used when no
// Telegram token is configured.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

var _ Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) NotifyTrade(ownerID string, t *domain.TradeResult) {
	if n.logger != nil {
		n.logger.Printf("notify %s: %s", ownerID, strings.ReplaceAll(FormatTrade(t), "\n", " | "))
	}
}

func (n *LogNotifier) NotifyWhale(a domain.WhaleActivity) {
	if n.logger != nil {
		n.logger.Printf("notify admin: %s", strings.ReplaceAll(FormatWhale(a), "\n", " | "))
	}
}

// FormatTrade renders a trade outcome as a user-facing message.
func FormatTrade(t *domain.TradeResult) string {
	if t == nil {
		return ""
	}

	var b strings.Builder

	switch {
	case t.Ambiguous:
		b.WriteString("⏳ Trade submitted, confirmation timed out\n")
	case !t.Success:
		b.WriteString(fmt.Sprintf("❌ %s failed\n", t.Action))
	case t.Action == domain.ActionBuy:
		b.WriteString("✅ Bought\n")
	default:
		b.WriteString("✅ Sold\n")
	}

	symbol := t.TokenSymbol
	if symbol == "" {
		symbol = shortAddr(t.TokenAddress)
	}
	b.WriteString(fmt.Sprintf("Token: %s\n", symbol))

	if t.AmountSOL > 0 {
		b.WriteString(fmt.Sprintf("Size: %.4f SOL\n", t.AmountSOL))
	}
	if t.TokensReceived > 0 {
		b.WriteString(fmt.Sprintf("Tokens: %.4f\n", t.TokensReceived))
	}
	if t.ExitReason != "" {
		b.WriteString(fmt.Sprintf("Exit: %s\n", t.ExitReason))
	}
	if t.PnLUSD != nil {
		b.WriteString(fmt.Sprintf("P&L: $%.2f\n", *t.PnLUSD))
	}
	if t.Error != "" {
		b.WriteString(fmt.Sprintf("Reason: %s\n", t.Error))
	}
	if t.Signature != "" {
		b.WriteString(fmt.Sprintf("Tx: https://solscan.io/tx/%s\n", t.Signature))
	}
	b.WriteString(t.ExecutedAt.UTC().Format(time.RFC3339))

	return b.String()
}

// FormatWhale renders a whale activity as an admin alert.
func FormatWhale(a domain.WhaleActivity) string {
	verb := "bought"
	if a.Action == domain.ActionSell {
		verb = "sold"
	}
	return fmt.Sprintf(
		"🐋 Whale %s %s\n%.2f of %s\nConfidence: %.2f\nTx: https://solscan.io/tx/%s",
		shortAddr(a.WhaleAddress), verb,
		a.AmountTokens, shortAddr(a.TokenAddress),
		a.Confidence, a.Signature,
	)
}

func shortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + ".." + addr[len(addr)-4:]
}
