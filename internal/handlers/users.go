package handlers

import (
	"elearning/internal/logger"
	"elearning/internal/models"
	"elearning/internal/reqctx"
	"elearning/internal/services"
	"elearning/internal/utils/helpers"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetUsers godoc
// @Summary Список пользователей (только admin)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Номер страницы" default(1)
// @Param limit query int false "Размер страницы" default(10)
// @Success 200 {object} usersListResponse
// @Failure 401 {object} helpers.ErrorResponse
// @Failure 403 {object} helpers.ErrorResponse
// @Router /users [get]
func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}

	users, total, err := h.userService.List(r.Context(), page, limit)
	if err != nil {
		logger.WithCtx(r.Context()).Error("Ошибка получения списка пользователей", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "Server error")
		return
	}

	helpers.JSON(w, http.StatusOK, usersListResponse{
		Success: true,
		Count:   len(users),
		Total:   total,
		Page:    page,
		Data:    users,
	})
}

// GetUser godoc
// @Summary Пользователь по ID
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Success 200 {object} userResponse
// @Failure 400 {object} helpers.ErrorResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, userResponse{Success: true, Data: user})
}

// UpdateUser godoc
// @Summary Обновление профиля (свой профиль или admin; роль меняет только admin)
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Param input body models.UpdateUserRequest true "Поля для обновления"
// @Success 200 {object} userResponse
// @Failure 400 {object} helpers.ErrorResponse
// @Failure 403 {object} helpers.ErrorResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	actor, ok := reqctx.GetIdentity(r.Context())
	if !ok {
		helpers.Error(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	var input models.UpdateUserRequest
	if err := decodeJSON(w, r, &input); err != nil {
		helpers.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.userService.Update(r.Context(), actor, id, &input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, userResponse{Success: true, Data: user})
}

// DeleteUser godoc
// @Summary Удаление пользователя (только admin)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Success 200 {object} helpers.MessageResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	helpers.Message(w, http.StatusOK, "User deleted successfully")
}

// DBStatus godoc
// @Summary Состояние подключения к БД (только admin)
// @Tags db-admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} statusResponse
// @Failure 503 {object} helpers.ErrorResponse
// @Router /db-admin/status [get]
func (h *UserHandler) DBStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.userService.Status(r.Context())
	if err != nil {
		helpers.Error(w, http.StatusServiceUnavailable, "Error checking database status")
		return
	}
	helpers.JSON(w, http.StatusOK, statusResponse{Success: true, Data: st})
}

func (h *UserHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		helpers.Error(w, http.StatusNotFound, "User not found")
	case errors.Is(err, services.ErrForbidden):
		helpers.Error(w, http.StatusForbidden, "Not authorized to update this user")
	case errors.Is(err, services.ErrInvalidRole):
		helpers.Error(w, http.StatusBadRequest, "Invalid role")
	case errors.Is(err, services.ErrMissingFields):
		helpers.Error(w, http.StatusBadRequest, "No fields to update")
	default:
		logger.WithCtx(r.Context()).Error("Ошибка операции над пользователем", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "Server error")
	}
}
