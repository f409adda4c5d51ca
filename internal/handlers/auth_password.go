package handlers

import (
	"elearning/internal/logger"
	"elearning/internal/services"
	"elearning/internal/utils/helpers"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type PasswordHandler struct {
	service *services.PasswordService
	tokens  services.TokenIssuer
}

func NewPasswordHandler(service *services.PasswordService, tokens services.TokenIssuer) *PasswordHandler {
	return &PasswordHandler{service: service, tokens: tokens}
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// ForgotPassword godoc
// @Summary Запрос ссылки для сброса пароля
// @Tags auth
// @Accept json
// @Produce json
// @Param input body forgotPasswordRequest true "Email"
// @Success 200 {object} helpers.MessageResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Failure 500 {object} helpers.ErrorResponse
// @Router /auth/forgotpassword [post]
func (h *PasswordHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.service.RequestReset(r.Context(), req.Email)
	switch {
	case err == nil:
		helpers.Message(w, http.StatusOK, "Email sent with password reset instructions")
	case errors.Is(err, services.ErrMissingFields):
		helpers.Error(w, http.StatusBadRequest, "Please provide an email")
	case errors.Is(err, services.ErrUserNotFound):
		helpers.Error(w, http.StatusNotFound, "No user found with that email")
	case errors.Is(err, services.ErrEmailNotSent):
		helpers.Error(w, http.StatusInternalServerError, "Email could not be sent")
	default:
		logger.WithCtx(r.Context()).Error("Ошибка запроса сброса пароля", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "Server error")
	}
}

// ResetPassword godoc
// @Summary Установка нового пароля по токену из письма
// @Tags auth
// @Accept json
// @Produce json
// @Param resettoken path string true "Токен из письма"
// @Param input body resetPasswordRequest true "Новый пароль"
// @Success 200 {object} tokenResponse
// @Failure 400 {object} helpers.ErrorResponse
// @Router /auth/resetpassword/{resettoken} [put]
func (h *PasswordHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.ResetPassword(r.Context(), mux.Vars(r)["resettoken"], req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTokenExpiredOrInvalid):
			helpers.Error(w, http.StatusBadRequest, "Invalid token")
		case errors.Is(err, services.ErrPasswordTooShort):
			helpers.Error(w, http.StatusBadRequest, "Password must be at least 6 characters long")
		default:
			logger.WithCtx(r.Context()).Error("Ошибка сброса пароля", zap.Error(err))
			helpers.Error(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		logger.WithCtx(r.Context()).Error("Ошибка генерации токена после сброса", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "Server error")
		return
	}

	helpers.JSON(w, http.StatusOK, tokenResponse{Success: true, Token: token})
}
