package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Feed FeedConfig
	App  AppConfig
}

// FeedConfig holds feed API client configuration
type FeedConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	UserEmail string
	PageSize  int
	TokenTTL  string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

func Load() (*Config, error) {
	// A .env file is a development convenience, not a requirement.
	_ = godotenv.Load()

	config := &Config{}

	pageSize, err := strconv.Atoi(getEnv("FEED_PAGE_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_PAGE_SIZE: %w", err)
	}

	config.Feed = FeedConfig{
		BaseURL:   getEnv("FEED_BASE_URL", "http://localhost:8080"),
		APIKey:    getEnv("FEED_API_KEY", ""),
		APISecret: getEnv("FEED_API_SECRET", ""),
		UserEmail: getEnv("FEED_USER_EMAIL", ""),
		PageSize:  pageSize,
		TokenTTL:  getEnv("FEED_TOKEN_TTL", "5m"),
	}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Feed.APIKey == "" {
		return fmt.Errorf("FEED_API_KEY is required")
	}
	if c.Feed.APISecret == "" {
		return fmt.Errorf("FEED_API_SECRET is required")
	}
	if c.Feed.UserEmail == "" {
		return fmt.Errorf("FEED_USER_EMAIL is required")
	}
	if c.Feed.PageSize < 1 {
		return fmt.Errorf("FEED_PAGE_SIZE must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
