package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Commands answers the ops group's bot commands:
//
//	/waiting            number of sessions waiting for an attendant
//	/chat_on [tenant]   open the chat widget
//	/chat_off [tenant]  close the chat widget
//	/chat_status [tenant]
type Commands struct {
	Bot       Sender
	Storage   OpsStorage
	Localizer Translator
	Lang      string
	// OpsChatID restricts the commands to one chat; zero allows any chat.
	OpsChatID int64
}

// HandleUpdate dispatches a command update; everything else is ignored.
func HandleUpdate(ctx context.Context, update *tgbotapi.Update, c *Commands) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	if c.OpsChatID != 0 && update.Message.Chat.ID != c.OpsChatID {
		log.Printf("WARN: Ignoring /%s from chat %d", update.Message.Command(), update.Message.Chat.ID)
		return
	}

	var reply string
	switch update.Message.Command() {
	case "waiting":
		reply = c.waiting(ctx)
	case "chat_on", "chat_off":
		reply = c.setChatEnabled(ctx, update.Message.Command() == "chat_on", update.Message.CommandArguments())
	case "chat_status":
		reply = c.chatStatus(ctx, update.Message.CommandArguments())
	default:
		return
	}

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, reply)
	msg.ReplyToMessageID = update.Message.MessageID
	if _, err := c.Bot.Send(msg); err != nil {
		log.Printf("Error sending reply to /%s: %v", update.Message.Command(), err)
	}
}

func (c *Commands) waiting(ctx context.Context) string {
	n, err := c.Storage.CountWaitingSessions(ctx)
	if err != nil {
		log.Printf("ERROR: Failed to count waiting sessions: %v", err)
		return c.Localizer.GetString(c.Lang, "notify_error")
	}
	return fmt.Sprintf(c.Localizer.GetString(c.Lang, "waiting_count"), n)
}

func (c *Commands) setChatEnabled(ctx context.Context, enabled bool, tenant string) string {
	tenant = strings.TrimSpace(tenant)
	if err := c.Storage.SetChatEnabled(ctx, tenant, enabled); err != nil {
		log.Printf("ERROR: Failed to switch chat for tenant %q: %v", tenant, err)
		return c.Localizer.GetString(c.Lang, "notify_error")
	}
	return c.statusText(enabled)
}

func (c *Commands) chatStatus(ctx context.Context, tenant string) string {
	enabled, err := c.Storage.IsChatEnabled(ctx, strings.TrimSpace(tenant))
	if err != nil {
		log.Printf("ERROR: Failed to read chat switch for tenant %q: %v", tenant, err)
		return c.Localizer.GetString(c.Lang, "notify_error")
	}
	return c.statusText(enabled)
}

func (c *Commands) statusText(enabled bool) string {
	if enabled {
		return c.Localizer.GetString(c.Lang, "chat_enabled")
	}
	return c.Localizer.GetString(c.Lang, "chat_disabled")
}
