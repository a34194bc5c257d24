package telegram

import (
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"marketplace-miniapp-backend/internal/common/logger"
)

type Options struct {
	Token string
	Debug bool
	// Defaults to tgbotapi.APIEndpoint.
	Endpoint string
	Client   *http.Client
}

// NewBotAPI authorizes against the Bot API (getMe) and returns the client.
func NewBotAPI(opts Options) (*tgbotapi.BotAPI, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("empty bot token")
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 70 * time.Second}
	}

	api, err := tgbotapi.NewBotAPIWithClient(opts.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}
	api.Debug = opts.Debug

	logger.Info().Str("bot", api.Self.UserName).Msg("Authorized on Telegram Bot API")
	return api, nil
}
