package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiinpocket/n3n/editor/internal/config"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := config.NewDefaultConfig()

	assert.Equal(t, config.DefaultAPIHost, cfg.APIHost)
	assert.Equal(t, config.DefaultAPIPort, cfg.APIPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, config.DefaultEngineBaseURL, cfg.EngineBaseURL)
	assert.Equal(t, config.DefaultRedisEndpoint, cfg.Store.Addr)
	assert.Equal(t, config.DefaultRedisPrefix, cfg.Store.Prefix)
	assert.Equal(t,
		config.DefaultAutoSaveDelaySeconds*time.Second, cfg.AutoSaveDelay,
	)
	assert.Equal(t, config.DefaultHistoryDepth, cfg.HistoryDepth)
	assert.Equal(t, config.DefaultShutdownTimeout, cfg.ShutdownTimeout)

	assert.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		configMod func(*config.Config)
		wantErr   error
	}{
		{
			name: "invalid_api_port_zero",
			configMod: func(c *config.Config) {
				c.APIPort = 0
			},
			wantErr: config.ErrInvalidAPIPort,
		},
		{
			name: "invalid_api_port_too_high",
			configMod: func(c *config.Config) {
				c.APIPort = 70000
			},
			wantErr: config.ErrInvalidAPIPort,
		},
		{
			name: "zero_autosave_delay",
			configMod: func(c *config.Config) {
				c.AutoSaveDelay = 0
			},
			wantErr: config.ErrInvalidAutoSaveDelay,
		},
		{
			name: "zero_history_depth",
			configMod: func(c *config.Config) {
				c.HistoryDepth = 0
			},
			wantErr: config.ErrInvalidHistoryDepth,
		},
		{
			name: "empty_engine_url",
			configMod: func(c *config.Config) {
				c.EngineBaseURL = ""
			},
			wantErr: config.ErrEngineBaseURLEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tt.configMod(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("API_HOST", "127.0.0.1")
	t.Setenv("API_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENGINE_BASE_URL", "http://engine:9090")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("REDIS_PREFIX", "staging")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("HISTORY_DEPTH", "50")
	t.Setenv("AUTOSAVE_DELAY_SECONDS", "10")

	cfg := config.NewDefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "127.0.0.1", cfg.APIHost)
	assert.Equal(t, 9000, cfg.APIPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http://engine:9090", cfg.EngineBaseURL)
	assert.Equal(t, "redis:6379", cfg.Store.Addr)
	assert.Equal(t, "hunter2", cfg.Store.Password)
	assert.Equal(t, "staging", cfg.Store.Prefix)
	assert.Equal(t, 3, cfg.Store.DB)
	assert.Equal(t, 50, cfg.HistoryDepth)
	assert.Equal(t, 10*time.Second, cfg.AutoSaveDelay)
}

func TestLoadFromEnvDefaultsWhenUnset(t *testing.T) {
	cfg := config.NewDefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, config.DefaultAPIPort, cfg.APIPort)
	assert.Equal(t,
		config.DefaultAutoSaveDelaySeconds*time.Second, cfg.AutoSaveDelay,
	)
}

func TestLoadFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("API_PORT", "not-a-port")
	cfg := config.NewDefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())

	t.Setenv("API_PORT", "70000")
	cfg = config.NewDefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())

	t.Setenv("API_PORT", "8080")
	t.Setenv("HISTORY_DEPTH", "-5")
	cfg = config.NewDefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())
}
