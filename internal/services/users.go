package services

import (
	"context"
	"elearning/internal/logger"
	"elearning/internal/models"
	"elearning/internal/reqctx"
	"elearning/internal/repository"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxPageSize = 100

// UserService: административные операции над пользователями и правка профиля.
type UserService struct {
	repo UserRepo
	now  func() time.Time
}

func NewUserService(repo UserRepo) *UserService {
	return &UserService{repo: repo, now: time.Now}
}

func (s *UserService) List(ctx context.Context, page, limit int) ([]*models.User, int, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = 10
	case limit > maxPageSize:
		limit = maxPageSize
	}
	offset := (page - 1) * limit
	logger.WithCtx(ctx).Debug("Список пользователей (service)", zap.Int("page", page), zap.Int("limit", limit))
	return s.repo.GetAllUsersPaginated(ctx, limit, offset)
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		logger.WithCtx(ctx).Error("Ошибка получения пользователя", zap.String("user_id", id.String()), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// Update меняет профиль: свой может править любой, чужой и роль только администратор.
func (s *UserService) Update(ctx context.Context, actor reqctx.Identity, id uuid.UUID, input *models.UpdateUserRequest) (*models.User, error) {
	log := logger.WithCtx(ctx)
	if input == nil || input.Empty() {
		return nil, ErrMissingFields
	}

	isAdmin := actor.Role == string(models.RoleAdmin)
	if actor.UserID != id && !isAdmin {
		log.Warn("Попытка изменить чужой профиль", zap.String("target_id", id.String()))
		return nil, ErrForbidden
	}
	if input.Role != nil {
		if !isAdmin {
			log.Warn("Попытка сменить роль без прав администратора", zap.String("target_id", id.String()))
			return nil, ErrForbidden
		}
		if !input.Role.Valid() {
			return nil, ErrInvalidRole
		}
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrMissingFields
		}
		input.Name = &name
	}

	user, err := s.repo.UpdateUserFields(ctx, id, input)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		log.Error("Ошибка при обновлении пользователя (service)", zap.String("user_id", id.String()), zap.Error(err))
		return nil, err
	}
	log.Info("Пользователь обновлён (service)", zap.String("user_id", id.String()))
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	logger.WithCtx(ctx).Info("Сервис: удаление user", zap.String("user_id", id.String()))
	if err := s.repo.DeleteUserByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		logger.WithCtx(ctx).Error("Ошибка удаления users (service)", zap.String("user_id", id.String()), zap.Error(err))
		return err
	}
	return nil
}

// Status проверяет соединение с БД. Ошибка Ping возвращается вместе с заполненным статусом.
func (s *UserService) Status(ctx context.Context) (*models.DBStatus, error) {
	st := &models.DBStatus{Timestamp: s.now().UTC()}
	if err := s.repo.Ping(ctx); err != nil {
		st.Connection = "disconnected"
		st.Status = "unhealthy"
		logger.WithCtx(ctx).Error("БД недоступна", zap.Error(err))
		return st, err
	}
	st.Connection = "connected"
	st.Status = "healthy"

	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		logger.WithCtx(ctx).Warn("Не удалось посчитать пользователей", zap.Error(err))
	} else {
		st.TotalUsers = total
	}
	return st, nil
}
