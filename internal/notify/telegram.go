package notify

import (
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"solana-soldier/internal/domain"
)

// Telegram message length cap.
const maxMessageLength = 4096

// TelegramNotifier delivers notifications over a Telegram bot. Each
// owner maps to a chat; whale alerts go to the admin chat.
type TelegramNotifier struct {
	api         *tgbotapi.BotAPI
	adminChatID int64
	logger      *log.Logger

	mu      sync.RWMutex
	chatIDs map[string]int64 // owner_id -> chat_id
}

var _ Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier creates a notifier from a bot token.
func NewTelegramNotifier(token string, adminChatID int64, logger *log.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	if logger != nil {
		logger.Printf("telegram bot authorized: @%s", api.Self.UserName)
	}
	return newTelegramNotifier(api, adminChatID, logger), nil
}

func newTelegramNotifier(api *tgbotapi.BotAPI, adminChatID int64, logger *log.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		api:         api,
		adminChatID: adminChatID,
		logger:      logger,
		chatIDs:     make(map[string]int64),
	}
}

// RegisterChat binds an owner to a Telegram chat.
func (n *TelegramNotifier) RegisterChat(ownerID string, chatID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chatIDs[ownerID] = chatID
}

func (n *TelegramNotifier) NotifyTrade(ownerID string, t *domain.TradeResult) {
	n.mu.RLock()
	chatID, ok := n.chatIDs[ownerID]
	n.mu.RUnlock()
	if !ok {
		n.logf("no telegram chat registered for owner %s", ownerID)
		return
	}
	n.send(chatID, FormatTrade(t))
}

func (n *TelegramNotifier) NotifyWhale(a domain.WhaleActivity) {
	if n.adminChatID == 0 {
		return
	}
	n.send(n.adminChatID, FormatWhale(a))
}

func (n *TelegramNotifier) send(chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, part)
		if _, err := n.api.Send(msg); err != nil {
			n.logf("telegram send to %d failed: %v", chatID, err)
		}
	}
}

func (n *TelegramNotifier) logf(format string, args ...interface{}) {
	if n.logger != nil {
		n.logger.Printf(format, args...)
	}
}

// splitMessage breaks text into chunks below maxLength, preferring line
// boundaries.
func splitMessage(text string, maxLength int) []string {
	if len(text) <= maxLength {
		return []string{text}
	}

	var messages []string
	current := ""
	for _, line := range strings.Split(text, "\n") {
		if len(current)+len(line)+1 > maxLength {
			messages = append(messages, current)
			current = line
		} else {
			if current != "" {
				current += "\n"
			}
			current += line
		}
	}
	if current != "" {
		messages = append(messages, current)
	}
	return messages
}
