package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-miniapp-backend/internal/features/user/models"
	"marketplace-miniapp-backend/internal/features/user/repository"
	"marketplace-miniapp-backend/internal/features/user/repository/sqlite"
	sqliteplatform "marketplace-miniapp-backend/internal/platform/sqlite"
)

func setupRepo(t *testing.T) *sqlite.UserRepository {
	t.Helper()

	db, err := sqliteplatform.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return sqlite.NewUserRepository(db)
}

func fields(id int64) models.CreateUserFields {
	return models.CreateUserFields{
		TelegramID:    id,
		FirstName:     "Test",
		Username:      "testuser",
		LanguageCode:  "en",
		IsPremium:     true,
		AgreedToTerms: true,
		RegisteredAt:  time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		CreationKey:   "k-1",
	}
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	u, err := repo.FindByTelegramID(ctx, 99999)
	require.NoError(t, err)
	assert.Nil(t, u)

	created, err := repo.CreateUser(ctx, fields(12345))
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, int64(12345), created.TelegramID)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.True(t, created.IsPremium)
	assert.True(t, created.AgreedToTerms)
	assert.False(t, created.OnboardingCompleted)
	assert.Nil(t, created.ChatID)
	assert.True(t, created.RegisteredAt.Equal(fields(12345).RegisteredAt))
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, fields(777))
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, fields(777))
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestUserRepository_UpdateChatIDOrphan(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	linked, err := repo.UpdateChatID(ctx, 42, 100)
	require.NoError(t, err)
	assert.False(t, linked)

	u, err := repo.FindByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, u, "orphan chat link must not create a record")
}

func TestUserRepository_UpdateChatIDIdempotent(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, fields(42))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		linked, err := repo.UpdateChatID(ctx, 42, 100)
		require.NoError(t, err)
		assert.True(t, linked)
	}

	u, err := repo.FindByTelegramID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, u.ChatID)
	assert.Equal(t, int64(100), *u.ChatID)
}

func TestUserRepository_TargetedUpdates(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.SetRole(ctx, 5, models.RoleAdmin), repository.ErrNotFound)

	_, err := repo.CreateUser(ctx, fields(5))
	require.NoError(t, err)

	require.NoError(t, repo.CompleteOnboarding(ctx, 5, models.ProfileUpdate{City: "Almaty", DeliveryAddress: "Abay 10"}))
	require.NoError(t, repo.SetBlocked(ctx, 5, true))
	require.NoError(t, repo.SetRole(ctx, 5, models.RoleAdmin))

	u, err := repo.FindByTelegramID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Almaty", u.City)
	assert.Equal(t, "Abay 10", u.DeliveryAddress)
	assert.True(t, u.OnboardingCompleted)
	assert.True(t, u.IsBlocked)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, "k-1", u.CreationKey)
	assert.True(t, u.RegisteredAt.Equal(fields(5).RegisteredAt), "registeredAt is immutable")
}

func TestUserRepository_CompleteOnboardingKeepsWallet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.CompleteOnboarding(ctx, 6, models.ProfileUpdate{City: "Almaty", DeliveryAddress: "x"}), repository.ErrNotFound)

	_, err := repo.CreateUser(ctx, fields(6))
	require.NoError(t, err)

	require.NoError(t, repo.CompleteOnboarding(ctx, 6, models.ProfileUpdate{City: "Almaty", DeliveryAddress: "Abay 10", WalletAddress: "EQwallet"}))
	require.NoError(t, repo.SetOnboardingCompleted(ctx, 6, false))
	require.NoError(t, repo.CompleteOnboarding(ctx, 6, models.ProfileUpdate{City: "Astana", DeliveryAddress: "Kenesary 4"}))

	u, err := repo.FindByTelegramID(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, "Astana", u.City)
	assert.Equal(t, "Kenesary 4", u.DeliveryAddress)
	assert.Equal(t, "EQwallet", u.WalletAddress)
	assert.True(t, u.OnboardingCompleted)
}
