// Package notify pushes one-way event notifications to hosts. Notification
// failure is logged and swallowed; it never affects the action that
// triggered it.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/pkg/logger"
)

// TelegramNotifier sends approval notices to a configured host chat.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier connects the bot API. An empty token disables
// notifications; the returned nil notifier is safe to pass around.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram notifier: %w", err)
	}
	logger.Info("Telegram notifier connected", "account", api.Self.UserName)
	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

// NotifyApproved announces an approved reconciliation to the host chat.
func (n *TelegramNotifier) NotifyApproved(summary *models.ReconciliationSummary) {
	if n == nil {
		return
	}
	text := fmt.Sprintf(
		"Reconciliation approved for room %s\nFinal total: %s\nApproved by: %s",
		summary.RoomID, summary.FinalTotal.StringFixed(2), summary.ApprovedBy,
	)
	if _, err := n.api.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		logger.Warn("failed to send approval notification", "roomId", summary.RoomID, "error", err)
	}
}
