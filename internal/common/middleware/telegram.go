package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"marketplace-miniapp-backend/internal/common/errors"
	"marketplace-miniapp-backend/internal/common/logger"
	"marketplace-miniapp-backend/internal/features/user/models"
)

const (
	InitDataHeader       = "X-Telegram-Init-Data"
	legacyInitDataHeader = "init_data"

	ctxKeyIdentity = "launch_identity"
)

// ParseLaunchIdentity validates signed Telegram init data against the bot
// token and extracts the launch identity. expIn of zero disables the
// auth_date expiration check.
func ParseLaunchIdentity(raw, botToken string, expIn time.Duration) (models.LaunchIdentity, error) {
	if err := initdata.Validate(raw, botToken, expIn); err != nil {
		return models.LaunchIdentity{}, errors.Wrap(err, errors.ErrCodeUnauthorized, "Invalid init data")
	}

	data, err := initdata.Parse(raw)
	if err != nil {
		return models.LaunchIdentity{}, errors.Wrap(err, errors.ErrCodeBadRequest, "Failed to parse init data")
	}

	return models.LaunchIdentity{
		TelegramID:   data.User.ID,
		FirstName:    data.User.FirstName,
		LastName:     data.User.LastName,
		Username:     data.User.Username,
		LanguageCode: data.User.LanguageCode,
		IsPremium:    data.User.IsPremium,
	}, nil
}

// RawInitData returns the init data sent with the request, if any.
func RawInitData(c *gin.Context) string {
	if raw := c.GetHeader(InitDataHeader); raw != "" {
		return raw
	}
	if raw := c.GetHeader(legacyInitDataHeader); raw != "" {
		return raw
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "tma ") {
		return strings.TrimPrefix(auth, "tma ")
	}
	return ""
}

// TelegramInitData validates the request's init data and stores the launch
// identity in the context.
func TelegramInitData(botToken string, expIn time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := RawInitData(c)
		if raw == "" {
			RespondError(c, errors.NewUnauthorizedError("Telegram init data required"))
			return
		}

		identity, err := ParseLaunchIdentity(raw, botToken, expIn)
		if err != nil {
			logger.Debug().Err(err).Msg("init data rejected")
			RespondError(c, err)
			return
		}

		c.Set(ctxKeyIdentity, identity)
		c.Set(ctxKeyUserID, identity.TelegramID)
		c.Next()
	}
}

// LaunchIdentityFrom returns the identity stored by TelegramInitData.
func LaunchIdentityFrom(c *gin.Context) (models.LaunchIdentity, bool) {
	v, ok := c.Get(ctxKeyIdentity)
	if !ok {
		return models.LaunchIdentity{}, false
	}
	identity, ok := v.(models.LaunchIdentity)
	return identity, ok
}
