package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_EXPIRE", "")
	t.Setenv("PASSWORD_RESET_TTL_MIN", "")
	t.Setenv("CLIENT_URL", "https://learn.example.com/")
	t.Setenv("SMTP_USER", "noreply@example.com")
	t.Setenv("MAIL_FROM", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 720*time.Hour, cfg.TokenTTL())
	assert.Equal(t, 10*time.Minute, cfg.ResetTokenTTL())
	assert.Equal(t, "https://learn.example.com", cfg.ClientURL)
	assert.Equal(t, "noreply@example.com", cfg.MailFrom)
}

func TestConfig_Validate(t *testing.T) {
	base := Config{
		DbHost:    "localhost",
		DbUser:    "app",
		DbName:    "elearning",
		JWTSecret: "secret",
		JWTExpire: "1h",
	}

	t.Run("ok with smtp warning", func(t *testing.T) {
		c := base
		warnings, err := c.Validate()
		require.NoError(t, err)
		assert.Len(t, warnings, 1)
	})

	t.Run("missing db", func(t *testing.T) {
		c := base
		c.DbHost = ""
		_, err := c.Validate()
		assert.Error(t, err)
	})

	t.Run("empty jwt secret", func(t *testing.T) {
		c := base
		c.JWTSecret = "  "
		_, err := c.Validate()
		assert.Error(t, err)
	})

	t.Run("bad jwt expire", func(t *testing.T) {
		c := base
		c.JWTExpire = "30 days"
		_, err := c.Validate()
		assert.Error(t, err)
	})

	t.Run("half admin seed", func(t *testing.T) {
		c := base
		c.SMTPHost, c.SMTPUser = "smtp", "user"
		c.AdminEmail = "admin@example.com"
		warnings, err := c.Validate()
		require.NoError(t, err)
		assert.Len(t, warnings, 1)
	})
}

func TestConfig_NumericFallbacks(t *testing.T) {
	c := Config{BcryptCost: "abc", HashWorkers: "3", PasswordResetTTLMin: "-5"}
	assert.Equal(t, 10, c.BcryptCostInt())
	assert.Equal(t, 3, c.HashWorkersInt())
	assert.Equal(t, 10*time.Minute, c.ResetTokenTTL())

	c.HashWorkers = ""
	assert.Positive(t, c.HashWorkersInt())
}

func TestConfig_GetDSNSafe(t *testing.T) {
	c := Config{DbUser: "u", DbPass: "p", DbHost: "h", DbPort: "5432", DbName: "n", DbSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", c.GetDSN())
	assert.NotContains(t, c.GetDSNSafe(), ":p@")
}
