package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("TokenTTL converts seconds to duration", func(t *testing.T) {
		cfg := &Config{TokenTTLSeconds: 120}
		assert.Equal(t, 120*time.Second, cfg.TokenTTL())
	})

	t.Run("MaxLiveDuration converts hours to duration", func(t *testing.T) {
		cfg := &Config{MaxLiveHours: 12}
		assert.Equal(t, 12*time.Hour, cfg.MaxLiveDuration())
	})
}

func TestValidate(t *testing.T) {
	t.Run("accepts sane config outside production", func(t *testing.T) {
		cfg := &Config{JitsiAppSecret: "short", TokenTTLSeconds: 120}
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects short secret in production", func(t *testing.T) {
		cfg := &Config{JitsiAppSecret: "short", TokenTTLSeconds: 120}
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("rejects weak secret in production", func(t *testing.T) {
		cfg := &Config{JitsiAppSecret: "change-me", TokenTTLSeconds: 120}
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("rejects too-small token TTL", func(t *testing.T) {
		cfg := &Config{TokenTTLSeconds: 5}
		assert.Error(t, cfg.Validate(false))
	})
}

func TestLoad(t *testing.T) {
	vars := []string{
		"PORT", "DATABASE_URL", "REDIS_URL", "JITSI_DOMAIN",
		"JITSI_APP_ID", "JITSI_APP_SECRET", "TOKEN_TTL_SECONDS", "LOG_LEVEL",
	}
	originalEnv := map[string]string{}
	for _, k := range vars {
		originalEnv[k] = os.Getenv(k)
	}
	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("JITSI_APP_ID", "fullmargin")
		os.Setenv("JITSI_APP_SECRET", "s3cret-s3cret-s3cret-s3cret-s3cret")
		os.Unsetenv("PORT")
		os.Unsetenv("JITSI_DOMAIN")
		os.Unsetenv("TOKEN_TTL_SECONDS")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "meet.jitsi", cfg.JitsiDomain)
		assert.Equal(t, 120, cfg.TokenTTLSeconds)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("fails when required values are missing", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}
