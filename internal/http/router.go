package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "marketplace-miniapp-backend/docs"

	"marketplace-miniapp-backend/internal/common/config"
	"marketplace-miniapp-backend/internal/common/metrics"
	"marketplace-miniapp-backend/internal/common/middleware"
	"marketplace-miniapp-backend/internal/features/guard"
	notifyhttp "marketplace-miniapp-backend/internal/features/notify/delivery/http"
	sessionhttp "marketplace-miniapp-backend/internal/features/session/delivery/http"
	userhttp "marketplace-miniapp-backend/internal/features/user/delivery/http"
	"marketplace-miniapp-backend/internal/features/user/service"
)

const serviceName = "marketplace-miniapp-backend"

// Pinger reports storage readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Config       *config.Config
	Users        service.UserService
	Store        Pinger
	LoginLimiter *middleware.RateLimiter
	// Optional; admin notify routes are mounted only when set.
	Notify *notifyhttp.NotifyHandler
}

// NewRouter builds the gin engine with every route and middleware wired.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", middleware.InitDataHeader, "init_data", middleware.BotSecretHeader}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	router.Use(guard.EdgeGuard(guard.EdgeConfig{
		LoginPath:     cfg.Server.LoginPath,
		PublicPaths:   cfg.Server.PublicPaths,
		BotUserAgents: cfg.Telegram.BotUserAgents,
	}))

	setupProbes(router, d.Store)

	if cfg.Server.SwaggerEnabled {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	sessions := sessionhttp.NewSessionHandler(d.Users, sessionhttp.Config{
		BotToken:     cfg.Telegram.BotToken,
		InitDataTTL:  cfg.InitDataExpiry(),
		LoginPath:    cfg.Server.LoginPath,
		CookieSecure: cfg.Server.CookieSecure,
	})
	sessions.RegisterLoginRoutes(router, d.LoginLimiter.Handler())

	users := userhttp.NewUserHandler(d.Users)

	api := router.Group("/api")
	users.RegisterCallbackRoutes(api, cfg.Bot.CallbackSecret)

	v1 := api.Group("/v1")
	v1.Use(middleware.TelegramInitData(cfg.Telegram.BotToken, cfg.InitDataExpiry()))
	v1.Use(middleware.Bootstrap(d.Users))
	{
		sessions.RegisterRoutes(v1)
		users.RegisterRoutes(v1)

		v1.GET("/market/ping", guard.RequireView(guard.ViewAllowed), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		if d.Notify != nil {
			admin := v1.Group("/admin")
			admin.Use(guard.RequireAdmin())
			d.Notify.RegisterRoutes(admin)
		}
	}

	sessionhttp.RegisterPages(router)
	return router
}

func setupProbes(router *gin.Engine, store Pinger) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unready",
				"error":  "storage unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}
