// Package config loads application configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Messenger MessengerConfig
	Feed      FeedConfig
	Storage   StorageConfig
	Cache     CacheConfig
	TierMode  string `envconfig:"TIER_MODE" default:"vip"` // vip or open
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"8080"`
}

// Address returns the listen address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MessengerConfig holds chat-platform settings. An empty access token
// switches delivery to the mock provider.
type MessengerConfig struct {
	PageAccessToken string `envconfig:"PAGE_ACCESS_TOKEN" default:""`
	VerifyToken     string `envconfig:"VERIFY_TOKEN" default:"gagstock_verify"`
	AdminUserID     string `envconfig:"ADMIN_USER_ID" default:""`
	GraphBaseURL    string `envconfig:"GRAPH_BASE_URL" default:""`
}

// FeedConfig holds upstream feed and weather endpoints.
type FeedConfig struct {
	URL        string `envconfig:"FEED_URL" default:"wss://gagstock.gleeze.com"`
	WeatherURL string `envconfig:"WEATHER_URL" default:""`
}

// StorageConfig holds persistence settings. Bucket selects GCS; an empty
// bucket falls back to local files under LocalPath.
type StorageConfig struct {
	Bucket        string        `envconfig:"STORAGE_BUCKET" default:""`
	LocalPath     string        `envconfig:"LOCAL_STORAGE_PATH" default:"./data"`
	FlushInterval time.Duration `envconfig:"FLUSH_INTERVAL" default:"5m"`
}

// CacheConfig holds digest dedup cache settings.
type CacheConfig struct {
	Backend       string `envconfig:"CACHE_BACKEND" default:"memory"` // memory or redis
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
