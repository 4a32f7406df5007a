package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	OpenAIAPIKey     string
	GenerationModel  string
	GenerationTokens int
	RetryDelay       time.Duration
	MaxAttempts      int
	LocalCacheTTL    time.Duration
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
	v.SetEnvPrefix("ARAH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "ARAH API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("generation.model", "gpt-4o-mini")
	v.SetDefault("generation.max_tokens", 2048)
	v.SetDefault("generation.retry_delay", "2s")
	v.SetDefault("generation.max_attempts", 3)
	v.SetDefault("local_cache.ttl", "0")

	retryDelay, err := time.ParseDuration(v.GetString("generation.retry_delay"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid generation retry delay: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("local_cache.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid local cache ttl: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		OpenAIAPIKey:     v.GetString("openai_api_key"),
		GenerationModel:  v.GetString("generation.model"),
		GenerationTokens: v.GetInt("generation.max_tokens"),
		RetryDelay:       retryDelay,
		MaxAttempts:      v.GetInt("generation.max_attempts"),
		LocalCacheTTL:    cacheTTL,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	if cfg.GenerationTokens <= 0 {
		cfg.GenerationTokens = 2048
	}

	return cfg, nil
}
