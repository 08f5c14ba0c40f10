package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"database_url": "postgres://localhost/codex",
		"workers": 8,
		"batch_concurrency": 5,
		"use_browser": true,
		"codex_dir": "codexes"
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/codex", cfg.DatabaseURL)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 5, cfg.BatchConcurrency)
	assert.True(t, cfg.UseBrowser)
	assert.Equal(t, "codexes", cfg.CodexDir)
}

func TestLoadConfig_Errors(t *testing.T) {
	invalid := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{ invalid json }`), 0644))

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "invalid json", path: invalid, wantErr: "failed to parse config JSON"},
		{name: "missing file", path: "/nonexistent/path/config.json", wantErr: "failed to read config file"},
		{name: "empty path", path: "", wantErr: "config path is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(tt.path)
			assert.Nil(t, cfg)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "zero config", cfg: Config{}},
		{name: "in range", cfg: Config{Workers: 64, BatchConcurrency: 32, GatewayTimeoutSeconds: 600, Port: 9000}},
		{name: "too many workers", cfg: Config{Workers: 65}, wantErr: "'workers' fails max=64"},
		{name: "batch concurrency", cfg: Config{BatchConcurrency: 33}, wantErr: "'batch_concurrency' fails max=32"},
		{name: "gateway timeout", cfg: Config{GatewayTimeoutSeconds: 601}, wantErr: "'gateway_timeout_seconds'"},
		{name: "short secret", cfg: Config{JWTSecret: "short"}, wantErr: "'jwt_secret' fails min=16"},
		{name: "negative port", cfg: Config{Port: -1}, wantErr: "'port'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("REDIS_URL", "redis://env:6379/0")
	t.Setenv("JWT_SECRET", "env-secret-0123456789")
	t.Setenv("JWT_EXPIRATION_HOURS", "")
	t.Setenv("PORT", "9090")

	cfg := &Config{APIKey: "file-key", Port: 8000}
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, "redis://env:6379/0", cfg.RedisURL)
	assert.Equal(t, "env-secret-0123456789", cfg.JWTSecret)
	assert.Equal(t, 9090, cfg.Port)
}

func TestApplyEnv_InvalidNumber(t *testing.T) {
	t.Setenv("PORT", "eighty")

	err := (&Config{}).ApplyEnv()
	assert.ErrorContains(t, err, "invalid PORT")
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Config{
		APIKey:      "default-key",
		DatabaseURL: "postgres://default/db",
		Workers:     2,
	}

	partial := Config{
		APIKey:           "custom-key",
		BatchConcurrency: 7,
	}

	merged := partial.MergeWithDefaults(defaults)

	assert.Equal(t, "custom-key", merged.APIKey)
	assert.Equal(t, 7, merged.BatchConcurrency)

	assert.Equal(t, "postgres://default/db", merged.DatabaseURL)
	assert.Equal(t, 2, merged.Workers)

	assert.Equal(t, DefaultPort, merged.Port)
	assert.Equal(t, DefaultQueueSize, merged.QueueSize)
	assert.Equal(t, DefaultGatewayTimeoutSeconds, merged.GatewayTimeoutSeconds)
	assert.Equal(t, DefaultJWTExpirationHours, merged.JWTExpirationHours)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{Workers: 3}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, 3, merged.Workers)
	assert.Equal(t, DefaultBatchConcurrency, merged.BatchConcurrency)
	assert.Empty(t, merged.DatabaseURL)
}
