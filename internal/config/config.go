package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aiinpocket/n3n/editor/internal/persist"
)

// Config holds configuration settings for the editor service
type Config struct {
	// API Server
	APIHost  string
	APIPort  int
	LogLevel string

	// Execution engine
	EngineBaseURL string
	EngineTimeout time.Duration

	// Version store
	Store persist.RedisConfig

	// Editor behavior
	AutoSaveDelay   time.Duration
	HistoryDepth    int
	ShutdownTimeout time.Duration
}

const (
	DefaultAPIHost = "0.0.0.0"
	DefaultAPIPort = 8080
	MaxTCPPort     = 65535

	DefaultEngineBaseURL = "http://localhost:9090"
	DefaultEngineTimeout = 30 * time.Second

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "n3n"
	DefaultRedisDB       = 0

	DefaultAutoSaveDelaySeconds = 3
	MaxAutoSaveDelaySeconds     = 3600
	DefaultHistoryDepth         = 100
	MaxHistoryDepth             = 10_000
	DefaultShutdownTimeout      = 10 * time.Second
)

var (
	ErrInvalidAPIPort       = errors.New("invalid API port")
	ErrInvalidAutoSaveDelay = errors.New("autosave delay must be positive")
	ErrInvalidHistoryDepth  = errors.New("history depth must be positive")
	ErrEngineBaseURLEmpty   = errors.New("engine base URL empty")
)

// NewDefaultConfig creates a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:       DefaultAPIHost,
		APIPort:       DefaultAPIPort,
		LogLevel:      "info",
		EngineBaseURL: DefaultEngineBaseURL,
		EngineTimeout: DefaultEngineTimeout,
		Store: persist.RedisConfig{
			Addr:   DefaultRedisEndpoint,
			Prefix: DefaultRedisPrefix,
			DB:     DefaultRedisDB,
		},
		AutoSaveDelay:   DefaultAutoSaveDelaySeconds * time.Second,
		HistoryDepth:    DefaultHistoryDepth,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if engineURL := os.Getenv("ENGINE_BASE_URL"); engineURL != "" {
		c.EngineBaseURL = engineURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Store.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Store.Password = password
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		c.Store.Prefix = prefix
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err == nil {
			c.Store.DB = db
		}
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"HISTORY_DEPTH", &c.HistoryDepth, 0, MaxHistoryDepth,
	); err != nil {
		return err
	}

	delaySeconds := int(c.AutoSaveDelay / time.Second)
	if err := loadEnvInt(
		"AUTOSAVE_DELAY_SECONDS", &delaySeconds,
		0, MaxAutoSaveDelaySeconds,
	); err != nil {
		return err
	}
	c.AutoSaveDelay = time.Duration(delaySeconds) * time.Second

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if c.AutoSaveDelay <= 0 {
		return ErrInvalidAutoSaveDelay
	}
	if c.HistoryDepth <= 0 {
		return ErrInvalidHistoryDepth
	}
	if c.EngineBaseURL == "" {
		return ErrEngineBaseURLEmpty
	}
	return nil
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
