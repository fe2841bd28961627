// Package notify pushes operational events to admins over Telegram. Optional:
// a nil *Telegram is a no-op, so callers never need to branch on configuration.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"expo-registration/internal/models"
)

type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
	log     zerolog.Logger
}

// New returns nil (disabled) when token is empty or there is nobody to tell.
func New(token string, chatIDs []int64, log zerolog.Logger) (*Telegram, error) {
	if token == "" || len(chatIDs) == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	return &Telegram{bot: bot, chatIDs: chatIDs, log: log.With().Str("component", "notify").Logger()}, nil
}

func (t *Telegram) send(text string) {
	if t == nil {
		return
	}
	for _, id := range t.chatIDs {
		if _, err := t.bot.Send(tgbotapi.NewMessage(id, text)); err != nil {
			t.log.Warn().Err(err).Int64("chat_id", id).Msg("telegram send failed")
		}
	}
}

func (t *Telegram) RegistrationCreated(reg models.Registration) {
	t.send(fmt.Sprintf("New registration %s: %s (%s)", reg.RegistrationID, reg.Name, reg.Phone))
}

func (t *Telegram) SyncFailed(err error) {
	t.send(fmt.Sprintf("Sheet sync failed: %v", err))
}
