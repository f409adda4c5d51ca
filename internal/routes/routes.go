package routes

import (
	"elearning/internal/handlers"
	"elearning/internal/metrics"
	"elearning/internal/middleware"
	"elearning/internal/models"
	"net/http"

	"github.com/gorilla/mux"
)

func InitRoutes(
	router *mux.Router,
	authHandler *handlers.AuthHandler,
	passwordHandler *handlers.PasswordHandler,
	userHandler *handlers.UserHandler,
	tokens middleware.TokenVerifier,
	users middleware.UserLookup,
	m *metrics.Metrics,
) {
	router.Use(middleware.RequestID, middleware.Recoverer, middleware.Logging)
	if m != nil {
		router.Use(m.Middleware)
		router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()

	// --- Публичные маршруты ---
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/forgotpassword", passwordHandler.ForgotPassword).Methods(http.MethodPost)
	api.HandleFunc("/auth/resetpassword/{resettoken}", passwordHandler.ResetPassword).Methods(http.MethodPut)

	// --- Защищённые JWT ---
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.JWTAuth(tokens, users))

	protected.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet)
	protected.HandleFunc("/auth/updatepassword", authHandler.UpdatePassword).Methods(http.MethodPut)
	protected.HandleFunc("/auth/deleteaccount", authHandler.DeleteAccount).Methods(http.MethodDelete)

	onlyAdmin := middleware.RequireRoles(models.RoleAdmin)

	protected.Handle("/users", onlyAdmin(http.HandlerFunc(userHandler.GetUsers))).Methods(http.MethodGet)
	protected.Handle("/users", onlyAdmin(http.HandlerFunc(authHandler.CreateUser))).Methods(http.MethodPost)
	protected.HandleFunc("/users/{id}", userHandler.GetUser).Methods(http.MethodGet)
	protected.HandleFunc("/users/{id}", userHandler.UpdateUser).Methods(http.MethodPut)
	protected.Handle("/users/{id}", onlyAdmin(http.HandlerFunc(userHandler.DeleteUser))).Methods(http.MethodDelete)

	protected.Handle("/db-admin/status", onlyAdmin(http.HandlerFunc(userHandler.DBStatus))).Methods(http.MethodGet)
}
