package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`

		// Пути, доступные без cookie (через запятую)
		PublicPaths  []string `env:"PUBLIC_PATHS" envSeparator:"," envDefault:"/health,/live,/ready,/metrics"`
		LoginPath    string   `env:"LOGIN_PATH" envDefault:"/auth/login"`
		CookieSecure bool     `env:"COOKIE_SECURE" envDefault:"true"`

		SwaggerEnabled bool `env:"SWAGGER_ENABLED" envDefault:"false"`

		LoginRatePerSec float64 `env:"LOGIN_RATE_PER_SEC" envDefault:"5"`
		LoginBurst      int     `env:"LOGIN_BURST" envDefault:"10"`
	}

	Store struct {
		// redis | sqlite
		Driver     string `env:"STORE_DRIVER" envDefault:"redis"`
		SQLitePath string `env:"SQLITE_PATH" envDefault:"marketplace.db"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Telegram struct {
		BotToken    string   `env:"BOT_TOKEN,required,notEmpty"`
		InitDataTTL int      `env:"INIT_DATA_TTL" envDefault:"86400"`
		AdminIDs    []string `env:"ADMIN_IDS" envSeparator:","`
		WebAppURL   string   `env:"WEBAPP_URL" envDefault:""`

		// Подстроки user-agent, по которым запрос считается пришедшим от бота/клиента Telegram
		BotUserAgents []string `env:"BOT_USER_AGENTS" envSeparator:"," envDefault:"TelegramBot,Telegram"`
	}

	Bot struct {
		CallbackURL    string `env:"BOT_CALLBACK_URL" envDefault:"http://localhost:8080/api/updateUserChatId"`
		CallbackSecret string `env:"BOT_CALLBACK_SECRET" envDefault:""`
		// http | stream
		Transport      string `env:"BOT_TRANSPORT" envDefault:"http"`
		PollTimeoutSec int    `env:"BOT_POLL_TIMEOUT_SEC" envDefault:"60"`
	}

	Workers struct {
		ChatLinkStream bool `env:"CHAT_LINK_STREAM_ENABLED" envDefault:"false"`
	}
}

// Load reads .env (if present) and the environment into Config.
func Load() (*Config, error) {
	// .env is optional; in production variables come from the environment
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.Store.Driver {
	case "redis", "sqlite":
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.Store.Driver)
	}
	switch cfg.Bot.Transport {
	case "http", "stream":
	default:
		return nil, fmt.Errorf("invalid BOT_TRANSPORT %q", cfg.Bot.Transport)
	}

	return cfg, nil
}

// RedisAddr returns host:port for the Redis connection.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// InitDataExpiry returns the init-data TTL; zero disables the expiration check.
func (c *Config) InitDataExpiry() time.Duration {
	return time.Duration(c.Telegram.InitDataTTL) * time.Second
}

// AdminIDs parses ADMIN_IDS, skipping malformed entries.
func (c *Config) AdminIDs() []int64 {
	ids := make([]int64, 0, len(c.Telegram.AdminIDs))
	for _, raw := range c.Telegram.AdminIDs {
		if id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
