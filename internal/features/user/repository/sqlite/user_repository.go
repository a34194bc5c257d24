package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace-miniapp-backend/internal/features/user/models"
	"marketplace-miniapp-backend/internal/features/user/repository"
)

const selectUser = `
SELECT telegram_id, first_name, last_name, username, language_code, is_premium,
	city, delivery_address, wallet_address, agreed_to_terms, onboarding_completed,
	is_blocked, role, chat_id, creation_key, registered_at, updated_at
FROM users
WHERE telegram_id = ?`

// UserRepository keeps user records in a SQLite table keyed by telegram_id.
type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ repository.UserRecordStore = (*UserRepository)(nil)

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*models.UserRecord, error) {
	var (
		u            models.UserRecord
		chatID       sql.NullInt64
		registeredAt int64
		updatedAt    int64
	)
	err := r.db.QueryRowContext(ctx, selectUser, telegramID).Scan(
		&u.TelegramID,
		&u.FirstName,
		&u.LastName,
		&u.Username,
		&u.LanguageCode,
		&u.IsPremium,
		&u.City,
		&u.DeliveryAddress,
		&u.WalletAddress,
		&u.AgreedToTerms,
		&u.OnboardingCompleted,
		&u.IsBlocked,
		&u.Role,
		&chatID,
		&u.CreationKey,
		&registeredAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get user %d: %v", repository.ErrUnavailable, telegramID, err)
	}

	u.RegisteredAt = time.Unix(0, registeredAt).UTC()
	u.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if chatID.Valid {
		id := chatID.Int64
		u.ChatID = &id
	}
	return &u, nil
}

// CreateUser relies on the primary key: a conflicting insert affects no rows
// and is reported as ErrAlreadyExists.
func (r *UserRepository) CreateUser(ctx context.Context, fields models.CreateUserFields) (*models.UserRecord, error) {
	u := fields.Record()

	const q = `
INSERT INTO users (telegram_id, first_name, last_name, username, language_code, is_premium,
	agreed_to_terms, role, creation_key, registered_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(telegram_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, q,
		u.TelegramID,
		u.FirstName,
		u.LastName,
		u.Username,
		u.LanguageCode,
		u.IsPremium,
		u.AgreedToTerms,
		u.Role,
		u.CreationKey,
		u.RegisteredAt.UnixNano(),
		u.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create user %d: %v", repository.ErrUnavailable, fields.TelegramID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: create user %d: %v", repository.ErrUnavailable, fields.TelegramID, err)
	}
	if n == 0 {
		return nil, repository.ErrAlreadyExists
	}

	// Read back so callers see exactly what is stored.
	return r.FindByTelegramID(ctx, fields.TelegramID)
}

func (r *UserRepository) UpdateChatID(ctx context.Context, telegramID, chatID int64) (bool, error) {
	return r.exec(ctx, `UPDATE users SET chat_id = ?, updated_at = ? WHERE telegram_id = ?`,
		chatID, r.now().UnixNano(), telegramID)
}

func (r *UserRepository) CompleteOnboarding(ctx context.Context, telegramID int64, p models.ProfileUpdate) error {
	if p.WalletAddress == "" {
		return r.mustExec(ctx, `UPDATE users SET city = ?, delivery_address = ?, onboarding_completed = 1, updated_at = ? WHERE telegram_id = ?`,
			p.City, p.DeliveryAddress, r.now().UnixNano(), telegramID)
	}
	return r.mustExec(ctx, `UPDATE users SET city = ?, delivery_address = ?, wallet_address = ?, onboarding_completed = 1, updated_at = ? WHERE telegram_id = ?`,
		p.City, p.DeliveryAddress, p.WalletAddress, r.now().UnixNano(), telegramID)
}

func (r *UserRepository) SetOnboardingCompleted(ctx context.Context, telegramID int64, completed bool) error {
	return r.mustExec(ctx, `UPDATE users SET onboarding_completed = ?, updated_at = ? WHERE telegram_id = ?`,
		completed, r.now().UnixNano(), telegramID)
}

func (r *UserRepository) SetBlocked(ctx context.Context, telegramID int64, blocked bool) error {
	return r.mustExec(ctx, `UPDATE users SET is_blocked = ?, updated_at = ? WHERE telegram_id = ?`,
		blocked, r.now().UnixNano(), telegramID)
}

func (r *UserRepository) SetRole(ctx context.Context, telegramID int64, role string) error {
	return r.mustExec(ctx, `UPDATE users SET role = ?, updated_at = ? WHERE telegram_id = ?`,
		role, r.now().UnixNano(), telegramID)
}

func (r *UserRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", repository.ErrUnavailable, err)
	}
	return nil
}

func (r *UserRepository) mustExec(ctx context.Context, q string, args ...interface{}) error {
	ok, err := r.exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) exec(ctx context.Context, q string, args ...interface{}) (bool, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return n > 0, nil
}
