package handlers

import (
	"elearning/internal/logger"
	"elearning/internal/models"
	"elearning/internal/reqctx"
	"elearning/internal/services"
	"elearning/internal/utils/helpers"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Register godoc
// @Summary Регистрация нового пользователя
// @Tags auth
// @Accept json
// @Produce json
// @Param input body registerRequest true "Данные регистрации"
// @Success 201 {object} authResponse
// @Failure 400 {object} helpers.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.WithCtx(r.Context()).Warn("Ошибка декодирования JSON в Register", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.authService.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		writeAccountError(w, r, err, "Server error during registration")
		return
	}

	helpers.JSON(w, http.StatusCreated, authResponse{Success: true, Token: token, User: user.Summary()})
}

// CreateUser godoc
// @Summary Создание пользователя администратором
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body registerRequest true "Данные пользователя"
// @Success 201 {object} userResponse
// @Failure 400 {object} helpers.ErrorResponse
// @Failure 401 {object} helpers.ErrorResponse
// @Failure 403 {object} helpers.ErrorResponse
// @Router /users [post]
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.CreateUser(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		writeAccountError(w, r, err, "Server error")
		return
	}

	helpers.JSON(w, http.StatusCreated, userResponse{Success: true, Data: user})
}

func writeAccountError(w http.ResponseWriter, r *http.Request, err error, serverMsg string) {
	switch {
	case errors.Is(err, services.ErrMissingFields):
		helpers.Error(w, http.StatusBadRequest, "Please provide name, email and password")
	case errors.Is(err, services.ErrDuplicateEmail):
		helpers.Error(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, services.ErrPasswordTooShort):
		helpers.Error(w, http.StatusBadRequest, "Password must be at least 6 characters long")
	case errors.Is(err, services.ErrInvalidRole):
		helpers.Error(w, http.StatusBadRequest, "Invalid role")
	default:
		logger.WithCtx(r.Context()).Error("Ошибка создания пользователя", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, serverMsg)
	}
}

// Login godoc
// @Summary Авторизация пользователя
// @Tags auth
// @Accept json
// @Produce json
// @Param input body loginRequest true "Данные для входа"
// @Success 200 {object} authResponse
// @Failure 400 {object} helpers.ErrorResponse
// @Failure 401 {object} helpers.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.WithCtx(r.Context()).Warn("Ошибка декодирования JSON в Login", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			helpers.Error(w, http.StatusBadRequest, "Please provide email and password")
		case errors.Is(err, services.ErrInvalidCredentials):
			helpers.Error(w, http.StatusUnauthorized, "Invalid credentials")
		default:
			logger.WithCtx(r.Context()).Error("Ошибка входа", zap.Error(err))
			helpers.Error(w, http.StatusInternalServerError, "Server error during login")
		}
		return
	}

	helpers.JSON(w, http.StatusOK, authResponse{Success: true, Token: token, User: user.Summary()})
}

// Me godoc
// @Summary Текущий пользователь
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} userResponse
// @Failure 401 {object} helpers.ErrorResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := reqctx.GetUserID(r.Context())
	if !ok {
		helpers.Error(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	user, err := h.authService.Me(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			helpers.Error(w, http.StatusNotFound, "User not found")
			return
		}
		logger.WithCtx(r.Context()).Error("Ошибка получения профиля", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "Server error")
		return
	}

	helpers.JSON(w, http.StatusOK, userResponse{Success: true, Data: user})
}

// UpdatePassword godoc
// @Summary Смена пароля по текущему паролю
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body updatePasswordRequest true "Текущий и новый пароль"
// @Success 200 {object} helpers.MessageResponse
// @Failure 400 {object} helpers.ErrorResponse
// @Failure 401 {object} helpers.ErrorResponse
// @Router /auth/updatepassword [put]
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := reqctx.GetUserID(r.Context())
	if !ok {
		helpers.Error(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	var req updatePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.authService.UpdatePassword(r.Context(), id, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		helpers.Message(w, http.StatusOK, "Password updated successfully")
	case errors.Is(err, services.ErrMissingFields):
		helpers.Error(w, http.StatusBadRequest, "Please provide current and new passwords")
	case errors.Is(err, services.ErrUserNotFound):
		helpers.Error(w, http.StatusUnauthorized, "User not authorized")
	case errors.Is(err, services.ErrWrongPassword):
		helpers.Error(w, http.StatusUnauthorized, "Invalid current password")
	case errors.Is(err, services.ErrPasswordTooShort):
		helpers.Error(w, http.StatusBadRequest, "New password must be at least 6 characters long")
	default:
		logger.WithCtx(r.Context()).Error("Ошибка смены пароля", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "Server error")
	}
}

// DeleteAccount godoc
// @Summary Удаление своего аккаунта
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.MessageResponse
// @Failure 401 {object} helpers.ErrorResponse
// @Router /auth/deleteaccount [delete]
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := reqctx.GetUserID(r.Context())
	if !ok {
		helpers.Error(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	err := h.authService.DeleteAccount(r.Context(), id)
	switch {
	case err == nil:
		helpers.Message(w, http.StatusOK, "Account deleted successfully")
	case errors.Is(err, services.ErrUserNotFound):
		helpers.Error(w, http.StatusUnauthorized, "User not authorized")
	default:
		logger.WithCtx(r.Context()).Error("Ошибка удаления аккаунта", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "Server error")
	}
}
