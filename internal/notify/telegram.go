package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "github.com/statuswatch/statuswatch/internal/errors"
)

// Telegram posts alerts to a chat through the Bot API. The bot handle is
// created lazily so a bad token surfaces as a delivery error instead of
// failing construction.
type Telegram struct {
	token  string
	chatID int64

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegram creates a Telegram sink.
func NewTelegram(token string, chatID int64) *Telegram {
	return &Telegram{token: token, chatID: chatID}
}

// Notify implements Notifier.
func (t *Telegram) Notify(ctx context.Context, ev Event) error {
	bot, err := t.api()
	if err != nil {
		return err
	}

	text := fmt.Sprintf("%s is now %s\n%s", ev.Person, strings.ToUpper(string(ev.Status)), ev.When.Format(timeLayout))
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := bot.Send(msg); err != nil {
		return apperrors.Wrap(err, apperrors.CodeTransportFailed, "telegram send")
	}
	return nil
}

func (t *Telegram) api() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransportFailed, "telegram auth")
	}
	t.bot = bot
	return bot, nil
}
