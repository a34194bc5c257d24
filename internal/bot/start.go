package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"marketplace-miniapp-backend/internal/common/logger"
)

// StartHandler greets /start with a Mini App launch button and reports the
// chat link.
type StartHandler struct {
	reporter  Reporter
	webAppURL string
}

func NewStartHandler(reporter Reporter, webAppURL string) *StartHandler {
	return &StartHandler{reporter: reporter, webAppURL: webAppURL}
}

func (h *StartHandler) CanHandle(update tgbotapi.Update) bool {
	m := update.Message
	return m != nil && m.Chat != nil && m.IsCommand() && m.Command() == "start"
}

func (h *StartHandler) Handle(ctx context.Context, sender Sender, update tgbotapi.Update) {
	msg := update.Message
	if msg.From != nil && msg.Chat != nil && msg.Chat.IsPrivate() {
		h.reporter.ReportChatLink(ctx, msg.From.ID, msg.Chat.ID)
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, greeting(msg.From))
	if h.webAppURL != "" {
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("Open marketplace", h.webAppURL),
			),
		)
	}
	if _, err := sender.Send(reply); err != nil {
		logger.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Failed to send greeting")
	}
}

// LinkHandler reports the chat link for any other private message, so users
// who never pressed /start are still reachable.
type LinkHandler struct {
	reporter Reporter
}

func NewLinkHandler(reporter Reporter) *LinkHandler {
	return &LinkHandler{reporter: reporter}
}

func (h *LinkHandler) CanHandle(update tgbotapi.Update) bool {
	m := update.Message
	return m != nil && m.From != nil && m.Chat != nil && m.Chat.IsPrivate()
}

func (h *LinkHandler) Handle(ctx context.Context, _ Sender, update tgbotapi.Update) {
	h.reporter.ReportChatLink(ctx, update.Message.From.ID, update.Message.Chat.ID)
}

func greeting(from *tgbotapi.User) string {
	name := ""
	if from != nil {
		name = from.FirstName
		if name == "" {
			name = from.UserName
		}
	}
	if name == "" {
		return "Welcome to the marketplace!"
	}
	return "Hi, " + name + "! Welcome to the marketplace."
}
