package repository

import (
	"context"
	"errors"

	"marketplace-miniapp-backend/internal/features/user/models"
)

var (
	// ErrAlreadyExists is returned by CreateUser when the telegram id is taken.
	ErrAlreadyExists = errors.New("user already exists")
	// ErrNotFound is returned by targeted updates for an unknown telegram id.
	ErrNotFound = errors.New("user not found")
	// ErrUnavailable wraps every driver or transport failure.
	ErrUnavailable = errors.New("user store unavailable")
)

// UserRecordStore is the durable user table keyed by telegram id. Writers never
// replace a whole record: every mutation is a targeted field update.
type UserRecordStore interface {
	// FindByTelegramID returns nil, nil when no record exists.
	FindByTelegramID(ctx context.Context, telegramID int64) (*models.UserRecord, error)
	// CreateUser fails with ErrAlreadyExists if the id is present.
	CreateUser(ctx context.Context, fields models.CreateUserFields) (*models.UserRecord, error)
	// UpdateChatID reports false when the id is unknown; nothing is created then.
	UpdateChatID(ctx context.Context, telegramID, chatID int64) (bool, error)

	// CompleteOnboarding writes the profile and sets onboarding completed in one
	// update. An empty wallet leaves the stored one untouched.
	CompleteOnboarding(ctx context.Context, telegramID int64, p models.ProfileUpdate) error
	SetOnboardingCompleted(ctx context.Context, telegramID int64, completed bool) error
	SetBlocked(ctx context.Context, telegramID int64, blocked bool) error
	SetRole(ctx context.Context, telegramID int64, role string) error

	Ping(ctx context.Context) error
}
