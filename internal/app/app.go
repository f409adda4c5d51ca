package app

import (
	"context"
	"elearning/internal/config"
	"elearning/internal/db"
	"elearning/internal/handlers"
	"elearning/internal/logger"
	"elearning/internal/metrics"
	"elearning/internal/repository"
	"elearning/internal/routes"
	"elearning/internal/services"
	"elearning/internal/utils"
	"fmt"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type App struct {
	Router  *mux.Router
	Pool    *pgxpool.Pool
	Metrics *metrics.Metrics
}

func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func InitApp(ctx context.Context, cfg *config.Config) (*App, error) {
	conn, err := db.NewPostgresConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	// Репозитории
	userRepo := repository.NewUserRepository(conn)

	// Инфраструктура
	m := metrics.New()
	hasher := utils.NewPasswordHasher(cfg.BcryptCostInt(), cfg.HashWorkersInt())
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL())

	var mailer services.Mailer = services.LogMailer{}
	if cfg.SMTPConfigured() {
		mailer = services.NewEmailService(cfg)
	}

	// Сервисы
	authService := services.NewAuthService(userRepo, hasher, tokens, mailer, m)
	passwordService := services.NewPasswordService(userRepo, hasher, mailer, m, cfg.ClientURL, cfg.ResetTokenTTL())
	userService := services.NewUserService(userRepo)

	if err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		conn.Close()
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	// Хендлеры
	authHandler := handlers.NewAuthHandler(authService)
	passwordHandler := handlers.NewPasswordHandler(passwordService, tokens)
	userHandler := handlers.NewUserHandler(userService)

	// Маршруты
	router := mux.NewRouter()
	routes.InitRoutes(router, authHandler, passwordHandler, userHandler, tokens, userRepo, m)

	logger.Log.Info("Приложение инициализировано", zap.String("db", cfg.GetDSNSafe()))
	return &App{Router: router, Pool: conn, Metrics: m}, nil
}
