package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"marketplace-miniapp-backend/internal/features/user/models"
	"marketplace-miniapp-backend/internal/features/user/repository"
)

const (
	fieldTelegramID          = "telegram_id"
	fieldFirstName           = "first_name"
	fieldLastName            = "last_name"
	fieldUsername            = "username"
	fieldLanguageCode        = "language_code"
	fieldIsPremium           = "is_premium"
	fieldCity                = "city"
	fieldDeliveryAddress     = "delivery_address"
	fieldWalletAddress       = "wallet_address"
	fieldAgreedToTerms       = "agreed_to_terms"
	fieldRegisteredAt        = "registered_at"
	fieldUpdatedAt           = "updated_at"
	fieldOnboardingCompleted = "onboarding_completed"
	fieldIsBlocked           = "is_blocked"
	fieldRole                = "role"
	fieldChatID              = "chat_id"
	fieldCreationKey         = "creation_key"
)

// updateIfExists sets the given field/value pairs only when the hash exists.
// Returns 1 on update, 0 when the key is absent.
var updateIfExists = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// userRepository stores each user as a hash under user:<telegram id>.
type userRepository struct {
	client goredis.UniversalClient
	now    func() time.Time
}

func NewUserRepository(client goredis.UniversalClient) repository.UserRecordStore {
	return &userRepository{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func makeUserKey(telegramID int64) string {
	return fmt.Sprintf("user:%d", telegramID)
}

func (r *userRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*models.UserRecord, error) {
	values, err := r.client.HGetAll(ctx, makeUserKey(telegramID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: hgetall: %v", repository.ErrUnavailable, err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	u, err := fromHash(values)
	if err != nil {
		return nil, fmt.Errorf("%w: decode user %d: %v", repository.ErrUnavailable, telegramID, err)
	}
	return u, nil
}

// CreateUser writes the record inside WATCH/MULTI. A concurrent writer touching
// the key between the EXISTS check and EXEC aborts the transaction, which is
// reported the same way as an existing key.
func (r *userRepository) CreateUser(ctx context.Context, fields models.CreateUserFields) (*models.UserRecord, error) {
	key := makeUserKey(fields.TelegramID)
	u := fields.Record()

	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return repository.ErrAlreadyExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, toHash(u))
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, repository.ErrAlreadyExists), errors.Is(err, goredis.TxFailedErr):
		return nil, repository.ErrAlreadyExists
	default:
		return nil, fmt.Errorf("%w: create user %d: %v", repository.ErrUnavailable, fields.TelegramID, err)
	}
}

func (r *userRepository) UpdateChatID(ctx context.Context, telegramID, chatID int64) (bool, error) {
	return r.update(ctx, telegramID, fieldChatID, strconv.FormatInt(chatID, 10))
}

func (r *userRepository) CompleteOnboarding(ctx context.Context, telegramID int64, p models.ProfileUpdate) error {
	pairs := []string{
		fieldCity, p.City,
		fieldDeliveryAddress, p.DeliveryAddress,
		fieldOnboardingCompleted, formatBool(true),
	}
	if p.WalletAddress != "" {
		pairs = append(pairs, fieldWalletAddress, p.WalletAddress)
	}
	return r.mustUpdate(ctx, telegramID, pairs...)
}

func (r *userRepository) SetOnboardingCompleted(ctx context.Context, telegramID int64, completed bool) error {
	return r.mustUpdate(ctx, telegramID, fieldOnboardingCompleted, formatBool(completed))
}

func (r *userRepository) SetBlocked(ctx context.Context, telegramID int64, blocked bool) error {
	return r.mustUpdate(ctx, telegramID, fieldIsBlocked, formatBool(blocked))
}

func (r *userRepository) SetRole(ctx context.Context, telegramID int64, role string) error {
	return r.mustUpdate(ctx, telegramID, fieldRole, role)
}

func (r *userRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", repository.ErrUnavailable, err)
	}
	return nil
}

func (r *userRepository) mustUpdate(ctx context.Context, telegramID int64, pairs ...string) error {
	ok, err := r.update(ctx, telegramID, pairs...)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepository) update(ctx context.Context, telegramID int64, pairs ...string) (bool, error) {
	args := make([]interface{}, 0, len(pairs)+2)
	for _, p := range pairs {
		args = append(args, p)
	}
	args = append(args, fieldUpdatedAt, r.now().Format(time.RFC3339Nano))

	n, err := updateIfExists.Run(ctx, r.client, []string{makeUserKey(telegramID)}, args...).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: update user %d: %v", repository.ErrUnavailable, telegramID, err)
	}
	return n == 1, nil
}

func toHash(u *models.UserRecord) map[string]interface{} {
	h := map[string]interface{}{
		fieldTelegramID:          strconv.FormatInt(u.TelegramID, 10),
		fieldFirstName:           u.FirstName,
		fieldLastName:            u.LastName,
		fieldUsername:            u.Username,
		fieldLanguageCode:        u.LanguageCode,
		fieldIsPremium:           formatBool(u.IsPremium),
		fieldCity:                u.City,
		fieldDeliveryAddress:     u.DeliveryAddress,
		fieldWalletAddress:       u.WalletAddress,
		fieldAgreedToTerms:       formatBool(u.AgreedToTerms),
		fieldRegisteredAt:        u.RegisteredAt.UTC().Format(time.RFC3339Nano),
		fieldUpdatedAt:           u.UpdatedAt.UTC().Format(time.RFC3339Nano),
		fieldOnboardingCompleted: formatBool(u.OnboardingCompleted),
		fieldIsBlocked:           formatBool(u.IsBlocked),
		fieldRole:                u.Role,
		fieldCreationKey:         u.CreationKey,
	}
	if u.ChatID != nil {
		h[fieldChatID] = strconv.FormatInt(*u.ChatID, 10)
	}
	return h
}

func fromHash(h map[string]string) (*models.UserRecord, error) {
	id, err := strconv.ParseInt(h[fieldTelegramID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram_id: %w", err)
	}
	registeredAt, err := time.Parse(time.RFC3339Nano, h[fieldRegisteredAt])
	if err != nil {
		return nil, fmt.Errorf("registered_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, h[fieldUpdatedAt])
	if err != nil {
		updatedAt = registeredAt
	}

	u := &models.UserRecord{
		TelegramID:          id,
		FirstName:           h[fieldFirstName],
		LastName:            h[fieldLastName],
		Username:            h[fieldUsername],
		LanguageCode:        h[fieldLanguageCode],
		IsPremium:           parseBool(h[fieldIsPremium]),
		City:                h[fieldCity],
		DeliveryAddress:     h[fieldDeliveryAddress],
		WalletAddress:       h[fieldWalletAddress],
		AgreedToTerms:       parseBool(h[fieldAgreedToTerms]),
		RegisteredAt:        registeredAt,
		UpdatedAt:           updatedAt,
		OnboardingCompleted: parseBool(h[fieldOnboardingCompleted]),
		IsBlocked:           parseBool(h[fieldIsBlocked]),
		Role:                h[fieldRole],
		CreationKey:         h[fieldCreationKey],
	}
	if raw := h[fieldChatID]; raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chat_id: %w", err)
		}
		u.ChatID = &chatID
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	return u, nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseBool(s string) bool {
	return s == "1" || s == "true"
}
