package middleware

import (
	"context"
	"elearning/internal/logger"
	"elearning/internal/models"
	"elearning/internal/repository"
	"elearning/internal/reqctx"
	"elearning/internal/utils/helpers"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const msgNotAuthorized = "Not authorized to access this route"

type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// JWTAuth проверяет Bearer-токен и кладёт в контекст пользователя с ролью из БД.
func JWTAuth(tokens TokenVerifier, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				logger.WithCtx(r.Context()).Warn("JWTAuth: отсутствует access token")
				helpers.Error(w, http.StatusUnauthorized, msgNotAuthorized)
				return
			}
			tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

			userID, err := tokens.Verify(tokenString)
			if err != nil {
				logger.WithCtx(r.Context()).Warn("JWTAuth: неверный или просроченный токен", zap.Error(err))
				helpers.Error(w, http.StatusUnauthorized, msgNotAuthorized)
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				logger.WithCtx(r.Context()).Warn("JWTAuth: пользователь токена не найден",
					zap.String("user_id", userID.String()))
				helpers.Error(w, http.StatusUnauthorized, msgNotAuthorized)
				return
			case err != nil:
				logger.WithCtx(r.Context()).Error("JWTAuth: ошибка загрузки пользователя",
					zap.String("user_id", userID.String()), zap.Error(err))
				helpers.Error(w, http.StatusInternalServerError, "Server error")
				return
			}

			ctx := reqctx.WithIdentity(r.Context(), reqctx.Identity{UserID: user.ID, Role: string(user.Role)})
			logger.WithCtx(ctx).Debug("JWTAuth: токен валиден")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
