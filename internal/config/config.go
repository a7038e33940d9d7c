// Package config loads storefront settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every tunable of the storefront.
type Config struct {
	AppPort      string        `validate:"required"`
	APIURL       string        `validate:"required,url"`
	FetchTimeout time.Duration `validate:"gt=0"`
	RetryDelay   time.Duration `validate:"gte=0"`
	PageSize     int           `validate:"gt=0,lte=100"`
	SessionTTL   time.Duration `validate:"gt=0"`
	RabbitMQURL  string        `validate:"omitempty,url"`
	LogLevel     string        `validate:"oneof=debug info warn error"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("API_URL", "http://localhost:8000")
	v.SetDefault("FETCH_TIMEOUT", 30*time.Second)
	v.SetDefault("RETRY_DELAY", 5*time.Second)
	v.SetDefault("PAGE_SIZE", 8)
	v.SetDefault("SESSION_TTL", 30*time.Minute)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds and validates a Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:      v.GetString("APP_PORT"),
		APIURL:       v.GetString("API_URL"),
		FetchTimeout: v.GetDuration("FETCH_TIMEOUT"),
		RetryDelay:   v.GetDuration("RETRY_DELAY"),
		PageSize:     v.GetInt("PAGE_SIZE"),
		SessionTTL:   v.GetDuration("SESSION_TTL"),
		RabbitMQURL:  v.GetString("RABBITMQ_URL"),
		LogLevel:     v.GetString("LOG_LEVEL"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
