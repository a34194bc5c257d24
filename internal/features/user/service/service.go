package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xssnick/tonutils-go/address"
	"golang.org/x/sync/singleflight"

	apperrors "marketplace-miniapp-backend/internal/common/errors"
	"marketplace-miniapp-backend/internal/common/logger"
	"marketplace-miniapp-backend/internal/common/metrics"
	"marketplace-miniapp-backend/internal/common/validation"
	"marketplace-miniapp-backend/internal/features/user/idempotency"
	"marketplace-miniapp-backend/internal/features/user/models"
	"marketplace-miniapp-backend/internal/features/user/repository"
)

const (
	outcomeExisting     = "existing"
	outcomeCreated      = "created"
	outcomeRaceAbsorbed = "race_absorbed"
	outcomeReplayed     = "replayed"
	outcomeFailed       = "failed"

	// A create that fails with a transport error is retried once with the
	// same idempotency key.
	createAttempts = 2

	defaultEnsureTimeout = 10 * time.Second
)

type userService struct {
	store   repository.UserRecordStore
	keys    idempotency.Provider
	admins  map[int64]struct{}
	group   singleflight.Group
	// Bounds a shared ensure, which outlives any single caller's context.
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

func NewUserService(store repository.UserRecordStore, keys idempotency.Provider, adminIDs []int64) UserService {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &userService{
		store:   store,
		keys:    keys,
		admins:  admins,
		timeout: defaultEnsureTimeout,
		now:     func() time.Time { return time.Now().UTC() },
		log:     logger.Component("user_service"),
	}
}

func (s *userService) EnsureUser(ctx context.Context, identity models.LaunchIdentity) (*models.UserRecord, error) {
	if reason, ok := identity.Validate(); !ok {
		metrics.ReconcileTotal.WithLabelValues(outcomeFailed).Inc()
		return nil, apperrors.NewUnknownIdentityError(reason).WithUserID(identity.TelegramID)
	}

	// Same-process duplicates share one round-trip. Cross-process races are
	// still resolved by the AlreadyExists path in ensure.
	v, err, _ := s.group.Do(strconv.FormatInt(identity.TelegramID, 10), func() (interface{}, error) {
		ensureCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		rec, err := s.ensure(ensureCtx, identity)
		if err != nil {
			metrics.ReconcileTotal.WithLabelValues(outcomeFailed).Inc()
		}
		return rec, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.UserRecord).Clone(), nil
}

func (s *userService) ensure(ctx context.Context, identity models.LaunchIdentity) (*models.UserRecord, error) {
	id := identity.TelegramID

	existing, err := s.store.FindByTelegramID(ctx, id)
	if err != nil {
		return nil, storageUnavailable("find user", err, id)
	}
	if existing != nil {
		metrics.ReconcileTotal.WithLabelValues(outcomeExisting).Inc()
		return existing, nil
	}

	key := s.keys.GenerateKey()
	fields := models.CreateUserFields{
		TelegramID:    id,
		FirstName:     identity.FirstName,
		LastName:      identity.LastName,
		Username:      identity.Username,
		LanguageCode:  identity.LanguageCode,
		IsPremium:     identity.IsPremium,
		Role:          s.initialRole(id),
		AgreedToTerms: true,
		RegisteredAt:  s.now(),
		CreationKey:   key,
	}

	var createErr error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		var created *models.UserRecord
		created, createErr = s.store.CreateUser(ctx, fields)
		if createErr == nil {
			metrics.ReconcileTotal.WithLabelValues(outcomeCreated).Inc()
			s.log.Info().Int64("telegram_id", id).Str("role", created.Role).Msg("user record created")
			return created, nil
		}
		if !errors.Is(createErr, repository.ErrUnavailable) || ctx.Err() != nil {
			break
		}
		s.log.Warn().Err(createErr).Int64("telegram_id", id).Int("attempt", attempt).Msg("create user failed, retrying with same key")
	}

	if !errors.Is(createErr, repository.ErrAlreadyExists) {
		return nil, storageUnavailable("create user", createErr, id)
	}

	// Lost the check-then-create race (or our earlier attempt landed):
	// fold back into the read path.
	winner, err := s.store.FindByTelegramID(ctx, id)
	if err != nil {
		return nil, storageUnavailable("find user after conflict", err, id)
	}
	if winner == nil {
		return nil, storageUnavailable("find user after conflict", errors.New("record missing after conflict"), id)
	}

	if winner.CreationKey == key {
		metrics.ReconcileTotal.WithLabelValues(outcomeReplayed).Inc()
		s.log.Info().Int64("telegram_id", id).Msg("retried create already applied")
	} else {
		metrics.ReconcileTotal.WithLabelValues(outcomeRaceAbsorbed).Inc()
		s.log.Debug().Int64("telegram_id", id).Msg("concurrent create absorbed")
	}
	return winner, nil
}

func (s *userService) initialRole(telegramID int64) string {
	if _, ok := s.admins[telegramID]; ok {
		return models.RoleAdmin
	}
	return models.RoleUser
}

func (s *userService) GetUser(ctx context.Context, telegramID int64) (*models.UserRecord, error) {
	u, err := s.store.FindByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, storageUnavailable("find user", err, telegramID)
	}
	if u == nil {
		return nil, apperrors.NewNotFoundError("user", telegramID)
	}
	return u, nil
}

func (s *userService) CompleteOnboarding(ctx context.Context, telegramID int64, p models.ProfileUpdate) (*models.UserRecord, error) {
	p.City = strings.TrimSpace(p.City)
	p.DeliveryAddress = strings.TrimSpace(p.DeliveryAddress)
	p.WalletAddress = strings.TrimSpace(p.WalletAddress)

	if err := validation.ValidateCity(p.City); err != nil {
		return nil, apperrors.NewValidationError("city", err.Error())
	}
	if err := validation.ValidateDeliveryAddress(p.DeliveryAddress); err != nil {
		return nil, apperrors.NewValidationError("deliveryAddress", err.Error())
	}
	if p.WalletAddress != "" {
		normalized, err := normalizeWallet(p.WalletAddress)
		if err != nil {
			return nil, apperrors.NewValidationError("walletAddress", "not a valid TON address")
		}
		p.WalletAddress = normalized
	}

	if err := s.mutate(telegramID, "complete onboarding", func() error {
		return s.store.CompleteOnboarding(ctx, telegramID, p)
	}); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, telegramID)
}

func (s *userService) SetBlocked(ctx context.Context, telegramID int64, blocked bool) (*models.UserRecord, error) {
	if err := s.mutate(telegramID, "set blocked", func() error {
		return s.store.SetBlocked(ctx, telegramID, blocked)
	}); err != nil {
		return nil, err
	}
	s.log.Info().Int64("telegram_id", telegramID).Bool("blocked", blocked).Msg("user block state changed")
	return s.GetUser(ctx, telegramID)
}

func (s *userService) SetRole(ctx context.Context, telegramID int64, role string) (*models.UserRecord, error) {
	if err := validation.ValidateUserRole(role); err != nil {
		return nil, apperrors.NewValidationError("role", err.Error())
	}
	if err := s.mutate(telegramID, "set role", func() error {
		return s.store.SetRole(ctx, telegramID, role)
	}); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, telegramID)
}

func (s *userService) LinkChat(ctx context.Context, telegramID, chatID int64) (bool, error) {
	if err := validation.ValidatePositiveInt(telegramID, "telegramId"); err != nil {
		return false, apperrors.NewValidationError("telegramId", err.Error())
	}
	if chatID == 0 {
		return false, apperrors.NewValidationError("telegramChatId", "required")
	}

	linked, err := s.store.UpdateChatID(ctx, telegramID, chatID)
	if err != nil {
		metrics.ChatLinkTotal.WithLabelValues("failed").Inc()
		return false, storageUnavailable("update chat id", err, telegramID)
	}
	if !linked {
		// The bot can see a user before the Mini App ever reconciled them.
		metrics.ChatLinkTotal.WithLabelValues("orphan").Inc()
		s.log.Warn().
			Str("code", string(apperrors.ErrCodeChatLinkOrphan)).
			Int64("telegram_id", telegramID).
			Int64("chat_id", chatID).
			Msg("chat link for unknown user dropped")
		return false, nil
	}

	metrics.ChatLinkTotal.WithLabelValues("linked").Inc()
	s.log.Debug().Int64("telegram_id", telegramID).Int64("chat_id", chatID).Msg("chat linked")
	return true, nil
}

func (s *userService) mutate(telegramID int64, op string, fn func() error) error {
	err := fn()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFoundError("user", telegramID)
	default:
		return storageUnavailable(op, err, telegramID)
	}
}

func storageUnavailable(op string, err error, telegramID int64) *apperrors.AppError {
	return apperrors.NewStorageUnavailableError(op, err).WithUserID(telegramID)
}

func normalizeWallet(raw string) (string, error) {
	addr, err := address.ParseAddr(raw)
	if err != nil {
		addr, err = address.ParseRawAddr(raw)
		if err != nil {
			return "", err
		}
	}
	return addr.String(), nil
}
