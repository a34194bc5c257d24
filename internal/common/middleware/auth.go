package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"marketplace-miniapp-backend/internal/common/errors"
)

const BotSecretHeader = "X-Bot-Secret"

// RequireBotSecret protects bot-to-backend callbacks with a shared secret.
// An empty secret disables the check.
func RequireBotSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		got := c.GetHeader(BotSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			RespondError(c, errors.NewUnauthorizedError("invalid bot secret"))
			return
		}

		c.Next()
	}
}
