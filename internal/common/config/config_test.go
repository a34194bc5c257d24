package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "1, 2,oops,3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/auth/login", cfg.Server.LoginPath)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, 24*time.Hour, cfg.InitDataExpiry())
	assert.Equal(t, []int64{1, 2, 3}, cfg.AdminIDs())
	assert.Contains(t, cfg.Telegram.BotUserAgents, "TelegramBot")
}

func TestLoad_RequiresBotToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load()
	assert.ErrorContains(t, err, "STORE_DRIVER")
}
