// Package bot is the chat-bot side of the chat link bridge.
package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"marketplace-miniapp-backend/internal/common/logger"
)

// Sender is the part of *tgbotapi.BotAPI handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Handler interface {
	CanHandle(update tgbotapi.Update) bool
	Handle(ctx context.Context, sender Sender, update tgbotapi.Update)
}

type Bot struct {
	api      *tgbotapi.BotAPI
	sender   Sender
	handlers []Handler
	log      zerolog.Logger
}

func New(api *tgbotapi.BotAPI) *Bot {
	b := NewWithSender(api)
	b.api = api
	return b
}

// NewWithSender builds a dispatcher without a polling connection.
func NewWithSender(sender Sender) *Bot {
	return &Bot{
		sender:   sender,
		handlers: make([]Handler, 0),
		log:      logger.Component("bot"),
	}
}

func (b *Bot) RegisterHandler(h Handler) {
	b.handlers = append(b.handlers, h)
	b.log.Debug().Str("handler", handlerName(h)).Msg("Registered handler")
}

// Run long-polls updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context, timeout int) {
	b.log.Info().Int("handlers", len(b.handlers)).Msg("Starting bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info().Msg("Bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.Dispatch(ctx, update)
		}
	}
}

// Dispatch hands the update to the first handler that accepts it.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) bool {
	if update.Message == nil {
		return false
	}

	for _, h := range b.handlers {
		if h.CanHandle(update) {
			h.Handle(ctx, b.sender, update)
			return true
		}
	}
	b.log.Debug().Int("update_id", update.UpdateID).Msg("No handler found for update")
	return false
}

func handlerName(h Handler) string {
	switch h.(type) {
	case *StartHandler:
		return "start"
	case *LinkHandler:
		return "link"
	}
	return "custom"
}
