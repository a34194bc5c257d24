package service

import (
	"context"

	"marketplace-miniapp-backend/internal/features/user/models"
)

// UserService is the identity reconciliation and user mutation surface.
type UserService interface {
	// EnsureUser maps a launch identity to its durable record, creating it at
	// most once per telegram id. Safe under concurrent duplicate calls.
	EnsureUser(ctx context.Context, identity models.LaunchIdentity) (*models.UserRecord, error)
	GetUser(ctx context.Context, telegramID int64) (*models.UserRecord, error)
	CompleteOnboarding(ctx context.Context, telegramID int64, p models.ProfileUpdate) (*models.UserRecord, error)
	SetBlocked(ctx context.Context, telegramID int64, blocked bool) (*models.UserRecord, error)
	SetRole(ctx context.Context, telegramID int64, role string) (*models.UserRecord, error)
	// LinkChat attaches a bot chat id. Unknown users are dropped, not created.
	LinkChat(ctx context.Context, telegramID, chatID int64) (bool, error)
}
