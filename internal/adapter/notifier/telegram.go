package notifier

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram messages are capped at 4096 characters; long job logs are
// truncated from the front so the most recent entries survive.
const telegramMessageLimit = 4000

type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(botToken, chatID string) (*Telegram, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Telegram{bot: bot, chatID: id}, nil
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}
	return id, nil
}

func (t *Telegram) Notify(ctx context.Context, subject string, body string) error {
	text := subject + "\n\n" + truncateFront(body, telegramMessageLimit)

	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

func truncateFront(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return "…" + string(runes[len(runes)-limit:])
}
