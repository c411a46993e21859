package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all host configuration.
type Config struct {
	Server    ServerConfig
	Bus       BusConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds the debug HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"7654"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// BusConfig holds transport-core configuration.
type BusConfig struct {
	// DefaultBufferSize is the receiver region size used when a
	// connection registers without an explicit size.
	DefaultBufferSize uint64 `envconfig:"BUS_BUFFER_SIZE" default:"1048576"`
	// MaxMessageSize bounds a single inbound message.
	MaxMessageSize uint64 `envconfig:"BUS_MAX_MESSAGE_SIZE" default:"262144"`
	// MaxPinnedPages caps how many pages one transfer may pin at once.
	MaxPinnedPages int `envconfig:"BUS_MAX_PINNED_PAGES" default:"16384"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds debug API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "7654",
			Host: "127.0.0.1",
		},
		Bus: BusConfig{
			DefaultBufferSize: 1 << 20,
			MaxMessageSize:    256 << 10,
			MaxPinnedPages:    16384,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
