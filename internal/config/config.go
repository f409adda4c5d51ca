package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DbHost    string
	DbPort    string
	DbUser    string
	DbPass    string
	DbName    string
	DbSSLMode string

	JWTSecret string
	JWTExpire string

	PasswordResetTTLMin string
	BcryptCost          string
	HashWorkers         string

	Log      string
	LogLevel string
	Env      string // dev|prod

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	ClientURL string

	AdminEmail    string
	AdminPassword string
}

// LoadConfig загружает .env, читает переменные окружения и выставляет дефолты.
// Ничего не логирует.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	def := func(v, d string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return d
		}
		return v
	}

	cfg := &Config{
		Port:      def(os.Getenv("PORT"), "5000"),
		DbHost:    os.Getenv("DB_HOST"),
		DbPort:    def(os.Getenv("DB_PORT"), "5432"),
		DbUser:    os.Getenv("DB_USER"),
		DbPass:    os.Getenv("DB_PASSWORD"),
		DbName:    os.Getenv("DB_NAME"),
		DbSSLMode: def(os.Getenv("DB_SSLMODE"), "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTExpire: def(os.Getenv("JWT_EXPIRE"), "720h"),

		PasswordResetTTLMin: def(os.Getenv("PASSWORD_RESET_TTL_MIN"), "10"),
		BcryptCost:          def(os.Getenv("BCRYPT_COST"), "10"),
		HashWorkers:         def(os.Getenv("HASH_WORKERS"), "0"),

		Log:      os.Getenv("LOG"),
		LogLevel: strings.ToLower(def(os.Getenv("LOGLEVEL"), "info")),
		Env:      strings.ToLower(def(os.Getenv("ENV"), "prod")),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     def(os.Getenv("SMTP_PORT"), "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     os.Getenv("MAIL_FROM"),

		ClientURL: strings.TrimRight(def(os.Getenv("CLIENT_URL"), "http://localhost:3000"), "/"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUser
	}

	return cfg, nil
}

// Validate возвращает предупреждения и фатальную ошибку (если критично).
func (c *Config) Validate() (warnings []string, err error) {
	// Критичные: БД
	if c.DbHost == "" || c.DbUser == "" || c.DbName == "" {
		return nil, errors.New("incomplete DB config (DB_HOST/DB_USER/DB_NAME)")
	}

	// Без секрета токены подписывать нельзя
	if strings.TrimSpace(c.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is empty")
	}

	if _, err := time.ParseDuration(c.JWTExpire); err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRE %q: %w", c.JWTExpire, err)
	}

	if c.SMTPHost == "" || c.SMTPUser == "" {
		warnings = append(warnings, "SMTP is not fully configured, mail will only be logged")
	}

	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		warnings = append(warnings, "ADMIN_EMAIL and ADMIN_PASSWORD must be set together, admin seed skipped")
	}

	return warnings, nil
}

// TokenTTL: срок жизни bearer-токена.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTExpire)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// ResetTokenTTL: срок жизни ссылки для сброса пароля.
func (c *Config) ResetTokenTTL() time.Duration {
	return time.Duration(atoiDefault(c.PasswordResetTTLMin, 10)) * time.Minute
}

func (c *Config) BcryptCostInt() int {
	return atoiDefault(c.BcryptCost, 10)
}

// HashWorkersInt: сколько bcrypt-операций может идти параллельно.
func (c *Config) HashWorkersInt() int {
	n := atoiDefault(c.HashWorkers, 0)
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUser != ""
}

// GetDSN: полная DSN (с паролем)
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbPass, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

// GetDSNSafe: DSN без пароля (для логов)
func (c *Config) GetDSNSafe() string {
	return fmt.Sprintf(
		"postgres://%s:***@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

func atoiDefault(s string, d int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return d
	}
	return n
}
