package main

import (
	"context"
	"os/signal"
	"syscall"

	"marketplace-miniapp-backend/internal/bot"
	"marketplace-miniapp-backend/internal/common/config"
	"marketplace-miniapp-backend/internal/common/logger"
	redisplatform "marketplace-miniapp-backend/internal/platform/redis"
	"marketplace-miniapp-backend/internal/platform/telegram"
	"marketplace-miniapp-backend/internal/workers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load")
	}
	logger.Init("marketplace-bot", cfg.Debug)

	api, err := telegram.NewBotAPI(telegram.Options{Token: cfg.Telegram.BotToken, Debug: cfg.Debug})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create bot")
	}

	var reporter bot.Reporter
	switch cfg.Bot.Transport {
	case "stream":
		rdb, err := redisplatform.Open(ctx, redisplatform.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("redis open")
		}
		defer rdb.Close()
		reporter = bot.NewStreamReporter(rdb.Client, workers.StreamKey)
	default:
		reporter = bot.NewHTTPReporter(cfg.Bot.CallbackURL, cfg.Bot.CallbackSecret, nil)
	}
	logger.Info().Str("transport", cfg.Bot.Transport).Msg("Chat link reporter configured")

	b := bot.New(api)
	b.RegisterHandler(bot.NewStartHandler(reporter, cfg.Telegram.WebAppURL))
	b.RegisterHandler(bot.NewLinkHandler(reporter))

	b.Run(ctx, cfg.Bot.PollTimeoutSec)
}
