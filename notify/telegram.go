// Package notify sends trade events to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"swap-sentinel/logging"
	"swap-sentinel/models"
)

// Sender is the part of the bot API the notifier uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts a message on every position open and close
type Telegram struct {
	api    Sender
	chatID int64
	instID string
	logger logging.LoggerInterface
}

// NewTelegram connects the bot with token
func NewTelegram(token string, chatID int64, instID string, logger logging.LoggerInterface) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	logger.Info("Telegram notifier initialized as @%s", api.Self.UserName)
	return NewTelegramWithSender(api, chatID, instID, logger), nil
}

// NewTelegramWithSender builds a notifier on an existing sender
func NewTelegramWithSender(api Sender, chatID int64, instID string, logger logging.LoggerInterface) *Telegram {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Telegram{api: api, chatID: chatID, instID: instID, logger: logger}
}

func (t *Telegram) PositionOpened(_ context.Context, p models.Position, snap models.IndicatorSnapshot) error {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s %s* opened\n", strings.ToUpper(string(p.Side)), t.instID)
	fmt.Fprintf(&b, "Entry: `%.6f` Size: `%.4f`\n", p.EntryPrice, p.Size)
	fmt.Fprintf(&b, "SL: `%.6f` TP: `%.6f`\n", p.StopLoss, p.TakeProfit)
	fmt.Fprintf(&b, "ATR: `%.6f` Bands: `%.6f` / `%.6f`", snap.ATR, snap.BBLower, snap.BBUpper)
	return t.send(b.String())
}

func (t *Telegram) PositionClosed(_ context.Context, p models.Position, reason models.ExitReason, price float64) error {
	profit := p.Profit(price)
	outcome := "LOSS"
	if profit > 0 {
		outcome = "WIN"
	}
	text := fmt.Sprintf("*%s %s* closed (%s): %s\nEntry: `%.6f` Exit: `%.6f` P/L: `%+.6f`",
		strings.ToUpper(string(p.Side)), t.instID, reason, outcome, p.EntryPrice, price, profit)
	return t.send(text)
}

func (t *Telegram) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Error("Failed to send Telegram message: %v", err)
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
