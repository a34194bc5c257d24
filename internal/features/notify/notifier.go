// Package notify pushes bot messages to users whose chat was linked by the
// bot process.
package notify

import (
	"context"
	stderrors "errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"marketplace-miniapp-backend/internal/common/errors"
	"marketplace-miniapp-backend/internal/common/logger"
	"marketplace-miniapp-backend/internal/common/validation"
	"marketplace-miniapp-backend/internal/features/user/models"
)

// ErrChatNotLinked means the user never talked to the bot.
var ErrChatNotLinked = stderrors.New("chat not linked")

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type UserReader interface {
	GetUser(ctx context.Context, telegramID int64) (*models.UserRecord, error)
}

type Notifier struct {
	users  UserReader
	sender Sender
}

func NewNotifier(users UserReader, sender Sender) *Notifier {
	return &Notifier{users: users, sender: sender}
}

// Notify sends text to the user's linked chat.
func (n *Notifier) Notify(ctx context.Context, telegramID int64, text string) error {
	if err := validation.ValidateMessageText(text); err != nil {
		return errors.NewValidationError("text", err.Error())
	}

	u, err := n.users.GetUser(ctx, telegramID)
	if err != nil {
		return err
	}
	if u.ChatID == nil {
		return errors.Wrap(ErrChatNotLinked, errors.ErrCodeBadRequest, "User has not started the bot").
			WithUserID(telegramID)
	}

	if _, err := n.sender.Send(tgbotapi.NewMessage(*u.ChatID, text)); err != nil {
		return errors.Wrap(err, errors.ErrCodeTelegramAPI, "Failed to send message").WithUserID(telegramID)
	}

	logger.Debug().Int64("telegram_id", telegramID).Msg("notification sent")
	return nil
}
