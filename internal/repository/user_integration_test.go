//go:build integration

package repository

import (
	"context"
	"elearning/internal/db"
	"elearning/internal/models"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker недоступен, пропускаем интеграционные тесты")
	}
	_ = provider.Close()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("elearning_test"),
		postgres.WithUsername("elearning"),
		postgres.WithPassword("elearning"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("не удалось поднять PostgreSQL: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	return pool
}

func newUser(email string) *models.User {
	return &models.User{Name: "Alice", Email: email, PasswordHash: "$2a$10$hash", Role: models.RoleStudent}
}

func TestUserRepository_Integration(t *testing.T) {
	pool := setupPostgres(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	alice := newUser("alice@example.com")
	require.NoError(t, repo.CreateUser(ctx, alice))
	assert.NotEqual(t, uuid.Nil, alice.ID)

	t.Run("duplicate email is case-insensitive", func(t *testing.T) {
		err := repo.CreateUser(ctx, newUser("ALICE@example.com"))
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("lookup by email ignores case", func(t *testing.T) {
		u, err := repo.GetUserByEmail(ctx, " Alice@Example.com ")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, u.ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.GetUserByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("reset token is single use", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, repo.SetResetToken(ctx, alice.ID, "h1", now.Add(10*time.Minute)))

		u, err := repo.GetUserByValidResetHash(ctx, "h1", now)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, u.ID)

		require.NoError(t, repo.ConsumeResetToken(ctx, alice.ID, "h1", "$2a$10$new", now))
		assert.ErrorIs(t, repo.ConsumeResetToken(ctx, alice.ID, "h1", "$2a$10$other", now), ErrNotFound)

		u, err = repo.GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Nil(t, u.ResetTokenHash)
		assert.Nil(t, u.ResetTokenExpiry)
		assert.Equal(t, "$2a$10$new", u.PasswordHash)
	})

	t.Run("expired reset token is not found", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, repo.SetResetToken(ctx, alice.ID, "h2", now.Add(-time.Second)))
		_, err := repo.GetUserByValidResetHash(ctx, "h2", now)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("profile update and delete", func(t *testing.T) {
		bio := "Physics student"
		u, err := repo.UpdateUserFields(ctx, alice.ID, &models.UpdateUserRequest{Bio: &bio})
		require.NoError(t, err)
		assert.Equal(t, bio, u.Bio)

		users, total, err := repo.GetAllUsersPaginated(ctx, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Len(t, users, 1)

		require.NoError(t, repo.DeleteUserByID(ctx, alice.ID))
		assert.ErrorIs(t, repo.DeleteUserByID(ctx, alice.ID), ErrNotFound)
	})
}
