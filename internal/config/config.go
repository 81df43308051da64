package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port             int    `env:"PORT" envDefault:"8080"`
	DatabaseURL      string `env:"DATABASE_URL,required"`
	RedisURL         string `env:"REDIS_URL,required"`
	JitsiDomain      string `env:"JITSI_DOMAIN" envDefault:"meet.jitsi"`
	JitsiAppID       string `env:"JITSI_APP_ID,required"`
	JitsiAppSecret   string `env:"JITSI_APP_SECRET,required"`
	TokenTTLSeconds  int    `env:"TOKEN_TTL_SECONDS" envDefault:"120"`
	MaxLiveHours     int    `env:"MAX_LIVE_HOURS" envDefault:"12"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSeconds) * time.Second
}

func (c *Config) MaxLiveDuration() time.Duration {
	return time.Duration(c.MaxLiveHours) * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if isProduction {
		if err := validateSecret("JITSI_APP_SECRET", c.JitsiAppSecret); err != nil {
			return err
		}
	}
	if c.TokenTTLSeconds < 30 {
		return fmt.Errorf("TOKEN_TTL_SECONDS must be at least 30 (got %d)", c.TokenTTLSeconds)
	}
	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
