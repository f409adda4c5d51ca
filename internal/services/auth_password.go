package services

import (
	"context"
	"elearning/internal/logger"
	"elearning/internal/metrics"
	"elearning/internal/models"
	"elearning/internal/repository"
	"elearning/internal/utils"
	"elearning/internal/utils/helpers"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PasswordResetRepo interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, userID uuid.UUID) error
	GetUserByValidResetHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	ConsumeResetToken(ctx context.Context, userID uuid.UUID, tokenHash, passwordHash string, now time.Time) error
}

type PasswordService struct {
	repo      PasswordResetRepo
	hasher    Hasher
	mailer    Mailer
	metrics   *metrics.Metrics
	clientURL string
	ttl       time.Duration
	now       func() time.Time
}

func NewPasswordService(repo PasswordResetRepo, hasher Hasher, mailer Mailer, m *metrics.Metrics, clientURL string, ttl time.Duration) *PasswordService {
	return &PasswordService{
		repo:      repo,
		hasher:    hasher,
		mailer:    mailer,
		metrics:   m,
		clientURL: clientURL,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *PasswordService) WithClock(now func() time.Time) *PasswordService {
	s.now = now
	return s
}

// RequestReset выдаёт одноразовый токен и отправляет ссылку на почту.
// Если письмо не ушло, токен в БД сбрасывается.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	log := logger.WithCtx(ctx)
	email = normalizeEmail(email)
	if email == "" {
		return ErrMissingFields
	}
	log.Info("Запрос на сброс пароля", zap.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Сброс пароля: пользователь не найден", zap.String("email", email))
			s.metrics.AuthEvent("reset_request", "unknown_email")
			return ErrUserNotFound
		}
		log.Error("Ошибка поиска пользователя при сбросе", zap.Error(err))
		return err
	}

	raw, hash, err := utils.NewResetToken()
	if err != nil {
		log.Error("Ошибка генерации токена для сброса", zap.Error(err))
		return err
	}

	expires := s.now().Add(s.ttl)
	if err := s.repo.SetResetToken(ctx, user.ID, hash, expires); err != nil {
		log.Error("Ошибка сохранения токена сброса пароля", zap.String("user_id", user.ID.String()), zap.Error(err))
		return err
	}

	link := s.clientURL + "/resetpassword/" + raw
	body := helpers.BuildPasswordResetHTML(user.Name, link, int(s.ttl.Minutes()))
	err = s.mailer.Send(ctx, user.Email, "Password Reset Request", body)
	s.metrics.MailSent("password_reset", err)
	if err != nil {
		log.Error("Ошибка отправки письма для сброса пароля", zap.String("user_id", user.ID.String()), zap.Error(err))
		if cerr := s.repo.ClearResetToken(context.WithoutCancel(ctx), user.ID); cerr != nil {
			log.Error("Не удалось очистить токен сброса после ошибки отправки", zap.Error(cerr))
		}
		s.metrics.AuthEvent("reset_request", "mail_failed")
		return ErrEmailNotSent
	}

	s.metrics.AuthEvent("reset_request", "success")
	log.Info("Письмо со ссылкой на сброс пароля отправлено",
		zap.String("user_id", user.ID.String()),
		zap.Time("expires_at", expires),
	)
	return nil
}

// ResetPassword подтверждает токен и устанавливает новый пароль. Токен срабатывает один раз.
func (s *PasswordService) ResetPassword(ctx context.Context, rawToken, newPassword string) (*models.User, error) {
	log := logger.WithCtx(ctx)
	log.Info("Попытка сброса пароля по токену")

	now := s.now()
	tokenHash := utils.HashResetToken(rawToken)

	user, err := s.repo.GetUserByValidResetHash(ctx, tokenHash, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Неверный или просроченный токен при сбросе пароля")
			s.metrics.AuthEvent("reset_redeem", "invalid_token")
			return nil, ErrTokenExpiredOrInvalid
		}
		log.Error("Ошибка поиска токена сброса", zap.Error(err))
		return nil, err
	}

	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}

	pwHash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		log.Error("Ошибка генерации хеша пароля", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, err
	}

	if err := s.repo.ConsumeResetToken(ctx, user.ID, tokenHash, pwHash, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Токен сброса уже использован", zap.String("user_id", user.ID.String()))
			s.metrics.AuthEvent("reset_redeem", "invalid_token")
			return nil, ErrTokenExpiredOrInvalid
		}
		log.Error("Ошибка обновления пароля", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, err
	}
	user.PasswordHash = pwHash
	user.ResetTokenHash = nil
	user.ResetTokenExpiry = nil

	err = s.mailer.Send(ctx, user.Email, "Password Reset Successful", helpers.BuildPasswordResetSuccessHTML(user.Name))
	s.metrics.MailSent("password_reset_success", err)
	if err != nil {
		log.Warn("Не удалось отправить подтверждение сброса пароля", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	s.metrics.AuthEvent("reset_redeem", "success")
	log.Info("Пароль успешно сброшен", zap.String("user_id", user.ID.String()))
	return user, nil
}
