package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"

	"livechat/backend/internal/models"
	"livechat/backend/internal/realtime"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// Alerter posts one message to the ops chat for every new waiting session.
type Alerter struct {
	Bot       Sender
	ChatID    int64
	Feed      realtime.ChangeFeed
	Localizer Translator
	Lang      string
}

func NewAlerter(bot Sender, chatID int64, feed realtime.ChangeFeed, localizer Translator, lang string) *Alerter {
	return &Alerter{Bot: bot, ChatID: chatID, Feed: feed, Localizer: localizer, Lang: lang}
}

// Run subscribes to session inserts and posts alerts until ctx is done or the feed closes.
func (a *Alerter) Run(ctx context.Context) error {
	sub, err := a.Feed.Subscribe(ctx, realtime.Filter{
		Channel: "telegram-alerts:" + uuid.NewString(),
		Table:   models.TableSessions,
		Kinds:   []models.EventKind{models.EventInsert},
	})
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			a.Handle(ev)
		}
	}
}

// Handle posts the alert for one session insert.
func (a *Alerter) Handle(ev models.ChangeEvent) {
	session, err := ev.Session()
	if err != nil {
		log.Printf("WARN: Telegram alerter skipped an undecodable session: %v", err)
		return
	}
	if session.Status != models.StatusWaiting {
		return
	}

	msg := tgbotapi.NewMessage(a.ChatID, escapeMarkdownV2(a.alertText(session)))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := a.Bot.Send(msg); err != nil {
		log.Printf("ERROR: Failed to send Telegram alert for session %s: %v", session.ID, err)
	}
}

func (a *Alerter) alertText(s *models.ChatSession) string {
	who := a.Localizer.GetString(a.Lang, "alert_unknown_lead")
	if s.Lead != nil && s.Lead.Name != "" {
		who = s.Lead.Name
	}
	protocol := "-"
	if s.Ticket != nil && s.Ticket.Protocol != "" {
		protocol = s.Ticket.Protocol
	}
	return fmt.Sprintf(a.Localizer.GetString(a.Lang, "alert_new_chat"), who, protocol)
}

var markdownV2Replacer = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// escapeMarkdownV2 escapes every character MarkdownV2 reserves. Alert texts carry user
// input (lead names) and no formatting of their own.
func escapeMarkdownV2(text string) string {
	return markdownV2Replacer.Replace(text)
}
