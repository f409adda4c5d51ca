package repository

import (
	"context"
	"elearning/internal/logger"
	"elearning/internal/models"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Поля сброса пароля живут прямо в строке users: хеш одноразового секрета
// и момент, с которого он недействителен.

func (r *UserRepository) SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET reset_token_hash = $1, reset_token_expiry = $2, updated_at = now() WHERE id = $3`,
		tokenHash, expiresAt, userID,
	)
	if err != nil {
		logger.Log.Error("Set reset token failed", zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) ClearResetToken(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET reset_token_hash = NULL, reset_token_expiry = NULL, updated_at = now() WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	return nil
}

// GetUserByValidResetHash ищет пользователя с совпадающим и ещё не истёкшим хешем.
func (r *UserRepository) GetUserByValidResetHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE reset_token_hash = $1
		  AND reset_token_expiry > $2
	`, tokenHash, now)

	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// ConsumeResetToken ставит новый пароль и очищает поля сброса, но только если
// токен всё ещё тот же и не истёк. Повторное погашение того же секрета даст ErrNotFound.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, userID uuid.UUID, tokenHash, passwordHash string, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, reset_token_hash = NULL, reset_token_expiry = NULL, updated_at = now()
		WHERE id = $2
		  AND reset_token_hash = $3
		  AND reset_token_expiry > $4
	`, passwordHash, userID, tokenHash, now)
	if err != nil {
		logger.Log.Error("Consume reset token failed", zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("consume reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
