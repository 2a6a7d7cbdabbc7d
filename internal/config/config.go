package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading API.
type Config struct {
	AppName       string
	AppEnv        string
	AppPort       string
	DatabaseURL   string
	RedisURL      string
	NATSURL       string
	NATSSubject   string
	JWTSecret     string
	GradeCacheTTL time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ACADGRADE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "AcadGrade API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject", "acadgrade.submissions")
	v.SetDefault("grade.cache_ttl", "5m")

	ttlString := v.GetString("grade.cache_ttl")
	if ttlString == "" {
		ttlString = "5m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid grade cache ttl: %w", err)
	}

	cfg := Config{
		AppName:       v.GetString("app.name"),
		AppEnv:        v.GetString("app.env"),
		AppPort:       v.GetString("app.port"),
		DatabaseURL:   v.GetString("database.url"),
		RedisURL:      v.GetString("redis.url"),
		NATSURL:       v.GetString("nats.url"),
		NATSSubject:   v.GetString("nats.subject"),
		JWTSecret:     v.GetString("jwt.secret"),
		GradeCacheTTL: ttl,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}
