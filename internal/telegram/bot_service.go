// Package telegram posts chat operations alerts to a Telegram ops group and answers the
// group's commands.
package telegram

import (
	"context"
	"fmt"
	"log"

	"livechat/backend/internal/realtime"
	"livechat/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of the Bot API the package writes through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Translator resolves alert texts.
type Translator interface {
	GetString(lang, key string) string
}

// OpsStorage is what the ops commands read and write.
type OpsStorage interface {
	CountWaitingSessions(ctx context.Context) (int64, error)
	SetChatEnabled(ctx context.Context, tenantID string, enabled bool) error
	IsChatEnabled(ctx context.Context, tenantID string) (bool, error)
}

var _ OpsStorage = (storage.Storage)(nil)

// BotService owns the bot connection: it runs the new-chat Alerter and polls the ops
// group's commands.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	Storage   OpsStorage
	Localizer Translator
	Lang      string
	OpsChatID int64
	Alerter   *Alerter
}

func NewBotService(token string, opsChatID int64, s OpsStorage, feed realtime.ChangeFeed, localizer Translator, lang string) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = false
	log.Printf("✅ Authorized on account %s", bot.Self.UserName)

	return &BotService{
		BotAPI:    bot,
		Storage:   s,
		Localizer: localizer,
		Lang:      lang,
		OpsChatID: opsChatID,
		Alerter:   NewAlerter(bot, opsChatID, feed, localizer, lang),
	}, nil
}

// Run starts the alerter and handles commands until ctx is done.
func (s *BotService) Run(ctx context.Context) {
	go func() {
		if err := s.Alerter.Run(ctx); err != nil {
			log.Printf("ERROR: Telegram alerter stopped: %v", err)
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			HandleUpdate(ctx, &update, s.commands())
		}
	}
}

func (s *BotService) commands() *Commands {
	return &Commands{
		Bot:       s.BotAPI,
		Storage:   s.Storage,
		Localizer: s.Localizer,
		Lang:      s.Lang,
		OpsChatID: s.OpsChatID,
	}
}
