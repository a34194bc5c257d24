package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"marketplace-miniapp-backend/internal/common/config"
	"marketplace-miniapp-backend/internal/common/logger"
	"marketplace-miniapp-backend/internal/common/middleware"
	"marketplace-miniapp-backend/internal/features/notify"
	notifyhttp "marketplace-miniapp-backend/internal/features/notify/delivery/http"
	"marketplace-miniapp-backend/internal/features/user/idempotency"
	"marketplace-miniapp-backend/internal/features/user/repository"
	redisrepo "marketplace-miniapp-backend/internal/features/user/repository/redis"
	sqliterepo "marketplace-miniapp-backend/internal/features/user/repository/sqlite"
	"marketplace-miniapp-backend/internal/features/user/service"
	apphttp "marketplace-miniapp-backend/internal/http"
	redisplatform "marketplace-miniapp-backend/internal/platform/redis"
	sqliteplatform "marketplace-miniapp-backend/internal/platform/sqlite"
	"marketplace-miniapp-backend/internal/platform/telegram"
	"marketplace-miniapp-backend/internal/workers"
)

// @title           Marketplace Mini App API
// @version         1.0
// @description     Session bootstrap and user API for the Telegram Mini App marketplace.

// @BasePath  /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name X-Telegram-Init-Data
// @description Telegram Mini App init data

func main() {
	// Create cancellable root context for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load")
	}
	logger.Init("marketplace-api", cfg.Debug)

	var rdb *redisplatform.Client
	if cfg.Store.Driver == "redis" || cfg.Workers.ChatLinkStream {
		rdb, err = redisplatform.Open(ctx, redisplatform.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("redis open")
		}
		defer rdb.Close()
	}

	var store repository.UserRecordStore
	switch cfg.Store.Driver {
	case "sqlite":
		db, err := sqliteplatform.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Store.SQLitePath).Msg("sqlite open")
		}
		defer db.Close()
		store = sqliterepo.NewUserRepository(db)
	default:
		store = redisrepo.NewUserRepository(rdb.Client)
	}
	logger.Info().Str("driver", cfg.Store.Driver).Msg("User store initialized")

	users := service.NewUserService(store, idempotency.NewUUIDProvider(), cfg.AdminIDs())

	var notifyHandler *notifyhttp.NotifyHandler
	if api, err := telegram.NewBotAPI(telegram.Options{Token: cfg.Telegram.BotToken, Debug: cfg.Debug}); err != nil {
		logger.Warn().Err(err).Msg("Bot API unavailable, admin notifications disabled")
	} else {
		notifyHandler = notifyhttp.NewNotifyHandler(notify.NewNotifier(users, api))
	}

	limiter := middleware.NewRateLimiter(cfg.Server.LoginRatePerSec, cfg.Server.LoginBurst)
	jobs := cron.New()
	if _, err := jobs.AddFunc("@every 5m", func() { limiter.Cleanup(time.Now()) }); err != nil {
		logger.Fatal().Err(err).Msg("schedule limiter cleanup")
	}
	jobs.Start()
	defer jobs.Stop()

	if cfg.Workers.ChatLinkStream {
		worker := workers.NewChatLinkStreamWorker(rdb.Client, users, "")
		go worker.Start(ctx)
	}

	router := apphttp.NewRouter(apphttp.Deps{
		Config:       cfg,
		Users:        users,
		Store:        store,
		LoginLimiter: limiter,
		Notify:       notifyHandler,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	logger.Info().Msg("Server exited")
}
