package services

import (
	"context"
	"elearning/internal/logger"
	"elearning/internal/metrics"
	"elearning/internal/models"
	"elearning/internal/repository"
	"elearning/internal/utils/helpers"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserRepo interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	DeleteUserByID(ctx context.Context, id uuid.UUID) error
	GetAllUsersPaginated(ctx context.Context, limit, offset int) ([]*models.User, int, error)
	UpdateUserFields(ctx context.Context, id uuid.UUID, input *models.UpdateUserRequest) (*models.User, error)
	CountUsers(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

type Hasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, hashed string) bool
}

type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
}

type AuthService struct {
	repo    UserRepo
	hasher  Hasher
	tokens  TokenIssuer
	mailer  Mailer
	metrics *metrics.Metrics

	dummyOnce sync.Once
	dummy     string
}

func NewAuthService(repo UserRepo, hasher Hasher, tokens TokenIssuer, mailer Mailer, m *metrics.Metrics) *AuthService {
	return &AuthService{repo: repo, hasher: hasher, tokens: tokens, mailer: mailer, metrics: m}
}

// dummyHash сравнивается при неизвестном email, чтобы время ответа не выдавало наличие аккаунта.
func (s *AuthService) dummyHash(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(context.WithoutCancel(ctx), "dummy-password-for-timing")
		if err != nil {
			logger.Log.Warn("Не удалось подготовить dummy-хеш", zap.Error(err))
			return
		}
		s.dummy = h
	})
	return s.dummy
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	log := logger.WithCtx(ctx)
	user, err := s.createAccount(ctx, in, "register")
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		log.Error("Ошибка генерации токена", zap.Error(err))
		return nil, "", err
	}

	s.sendWelcome(ctx, user)
	s.metrics.AuthEvent("register", "success")
	log.Info("Пользователь зарегистрирован (service)", zap.String("user_id", user.ID.String()))
	return user, token, nil
}

// CreateUser: создание аккаунта администратором. Токен не выдаётся.
func (s *AuthService) CreateUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	user, err := s.createAccount(ctx, in, "admin_create")
	if err != nil {
		return nil, err
	}
	s.sendWelcome(ctx, user)
	s.metrics.AuthEvent("admin_create", "success")
	logger.WithCtx(ctx).Info("Пользователь создан администратором (service)", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *AuthService) createAccount(ctx context.Context, in RegisterInput, event string) (*models.User, error) {
	log := logger.WithCtx(ctx)
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	log.Info("Регистрация пользователя (service)", zap.String("email", email))

	if name == "" || email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	role := in.Role
	if role == "" {
		role = models.RoleStudent
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		log.Error("Ошибка хеширования пароля", zap.Error(err))
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			log.Warn("Email уже зарегистрирован", zap.String("email", email))
			s.metrics.AuthEvent(event, "duplicate")
			return nil, ErrDuplicateEmail
		}
		log.Error("Ошибка создания пользователя", zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *AuthService) sendWelcome(ctx context.Context, user *models.User) {
	err := s.mailer.Send(ctx, user.Email, "Welcome to E-Learning Platform", helpers.BuildWelcomeHTML(user.Name))
	s.metrics.MailSent("welcome", err)
	if err != nil {
		logger.WithCtx(ctx).Warn("Не удалось отправить приветственное письмо", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	log := logger.WithCtx(ctx)
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrMissingFields
	}
	log.Info("Попытка входа (service)", zap.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Error("Ошибка поиска пользователя", zap.Error(err))
			return nil, "", err
		}
		s.hasher.Verify(ctx, password, s.dummyHash(ctx))
		log.Warn("Пользователь не найден (service)", zap.String("email", email))
		s.metrics.AuthEvent("login", "unknown_email")
		return nil, "", ErrInvalidCredentials
	}

	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		log.Warn("Неверный пароль (service)", zap.String("user_id", user.ID.String()))
		s.metrics.AuthEvent("login", "wrong_password")
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		log.Error("Ошибка генерации токена", zap.Error(err))
		return nil, "", err
	}

	s.metrics.AuthEvent("login", "success")
	log.Info("Вход выполнен (service)", zap.String("user_id", user.ID.String()))
	return user, token, nil
}

func (s *AuthService) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdatePassword меняет пароль по текущему паролю. Порядок проверок важен для кодов ответа.
func (s *AuthService) UpdatePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	log := logger.WithCtx(ctx)
	if current == "" || next == "" {
		return ErrMissingFields
	}

	user, err := s.Me(ctx, id)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(ctx, current, user.PasswordHash) {
		log.Warn("Неверный текущий пароль", zap.String("user_id", id.String()))
		s.metrics.AuthEvent("password_update", "wrong_password")
		return ErrWrongPassword
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hashed, err := s.hasher.Hash(ctx, next)
	if err != nil {
		log.Error("Ошибка хеширования пароля", zap.Error(err))
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, hashed); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		log.Error("Ошибка обновления пароля", zap.Error(err))
		return err
	}

	s.metrics.AuthEvent("password_update", "success")
	log.Info("Пароль обновлён (service)", zap.String("user_id", id.String()))
	return nil
}

func (s *AuthService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	logger.WithCtx(ctx).Info("Удаление аккаунта (service)", zap.String("user_id", id.String()))
	if err := s.repo.DeleteUserByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		logger.WithCtx(ctx).Error("Ошибка удаления аккаунта", zap.Error(err))
		return err
	}
	s.metrics.AuthEvent("account_delete", "success")
	return nil
}

// EnsureAdmin создаёт администратора при старте, если его ещё нет. Повторный запуск ничего не меняет.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != models.RoleAdmin {
			logger.Log.Warn("Пользователь с ADMIN_EMAIL существует, но не является администратором",
				zap.String("user_id", existing.ID.String()))
		}
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("lookup admin: %w", err)
	}

	if err := validatePassword(password); err != nil {
		return fmt.Errorf("admin password: %w", err)
	}
	hashed, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hashed,
		Role:         models.RoleAdmin,
	}
	if err := s.repo.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Log.Info("Администратор создан", zap.String("user_id", admin.ID.String()))
	return nil
}
