package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vigia-auth/pkg/config"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 6, cfg.Auth.PasswordMinLength)
	assert.Equal(t, 30*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.True(t, cfg.Auth.ValidateCNPJCheckDigits)
	assert.Equal(t, 7, cfg.Auth.LoginMaxFailures)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 25, cfg.DB.MaxConns)
	assert.False(t, cfg.DB.ForceIPv4)
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("STORE_DRIVER", "memory")
	v.Set("PASSWORD_MIN_LENGTH", "10")
	v.Set("RESET_TOKEN_TTL", "45m")
	v.Set("LOGIN_LOCKOUT", "120")
	v.Set("CNPJ_VALIDATE_CHECK_DIGITS", "false")
	v.Set("REDIS_ADDR", "localhost:6379")
	v.Set("DB_MAX_CONNS", "10")
	v.Set("DB_FORCE_IPV4", "true")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.DB.Driver)
	assert.Equal(t, 10, cfg.Auth.PasswordMinLength)
	assert.Equal(t, 45*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, 2*time.Minute, cfg.Auth.LoginLockout)
	assert.False(t, cfg.Auth.ValidateCNPJCheckDigits)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 10, cfg.DB.MaxConns)
	assert.True(t, cfg.DB.ForceIPv4)
}

func TestFromViper_DriverInvalido(t *testing.T) {
	v := viper.New()
	v.Set("STORE_DRIVER", "sqlite")
	_, err := config.FromViper(v)
	assert.Error(t, err)
}

func TestFromViper_ProductionSinSecret(t *testing.T) {
	v := viper.New()
	v.Set("APP_ENV", "production")
	_, err := config.FromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "vigia", Password: "p@ss:w/rd", DBName: "vigia", SSLMode: "disable"}
	assert.Equal(t, "postgres://vigia:p%40ss%3Aw%2Frd@db:5432/vigia?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}
