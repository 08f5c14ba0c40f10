// Package config provides configuration loading and validation for the codex agent.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by MergeWithDefaults
const (
	DefaultPort                  = 8080
	DefaultWorkers               = 4
	DefaultQueueSize             = 256
	DefaultBatchConcurrency      = 3
	DefaultGatewayTimeoutSeconds = 60
	DefaultJWTExpirationHours    = 24
)

// Config represents the agent configuration that can be loaded from a JSON file.
// All fields are optional; environment variables and CLI flags fill the rest.
type Config struct {
	// Backends
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL; empty selects the in-memory store
	RedisURL    string `json:"redis_url,omitempty"`    // Redis URL for the read-through cache and fetched pages

	// HTTP
	Port               int    `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	JWTSecret          string `json:"jwt_secret,omitempty" validate:"omitempty,min=16"`
	JWTExpirationHours int    `json:"jwt_expiration_hours,omitempty" validate:"omitempty,min=1"`

	// Processing
	Workers               int `json:"workers,omitempty" validate:"omitempty,min=1,max=64"`
	QueueSize             int `json:"queue_size,omitempty" validate:"omitempty,min=1"`
	BatchConcurrency      int `json:"batch_concurrency,omitempty" validate:"omitempty,min=1,max=32"`
	GatewayTimeoutSeconds int `json:"gateway_timeout_seconds,omitempty" validate:"omitempty,min=1,max=600"`

	// Behavior
	UseBrowser bool   `json:"use_browser,omitempty"` // Render script-heavy pages with headless Chrome
	CodexDir   string `json:"codex_dir,omitempty"`   // Directory of extra codex JSON files loaded at startup
	LogJSON    bool   `json:"log_json,omitempty"`
	Debug      bool   `json:"debug,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from the environment. Set variables win over the file.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("JWT_EXPIRATION_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %w", err)
		}
		c.JWTExpirationHours = hours
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		c.Port = port
	}
	return nil
}

// Validate checks that the configuration has valid values.
// Zero values are allowed; they are filled by MergeWithDefaults.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config error: %w", err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("'%s' fails %s=%s", fe.Field(), fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("config error: %s", strings.Join(problems, "; "))
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults,
// then from the built-in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.RedisURL == "" {
		result.RedisURL = defaults.RedisURL
	}
	if result.JWTSecret == "" {
		result.JWTSecret = defaults.JWTSecret
	}
	if result.CodexDir == "" {
		result.CodexDir = defaults.CodexDir
	}

	result.Port = firstPositive(result.Port, defaults.Port, DefaultPort)
	result.JWTExpirationHours = firstPositive(result.JWTExpirationHours, defaults.JWTExpirationHours, DefaultJWTExpirationHours)
	result.Workers = firstPositive(result.Workers, defaults.Workers, DefaultWorkers)
	result.QueueSize = firstPositive(result.QueueSize, defaults.QueueSize, DefaultQueueSize)
	result.BatchConcurrency = firstPositive(result.BatchConcurrency, defaults.BatchConcurrency, DefaultBatchConcurrency)
	result.GatewayTimeoutSeconds = firstPositive(result.GatewayTimeoutSeconds, defaults.GatewayTimeoutSeconds, DefaultGatewayTimeoutSeconds)

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// JWT returns the token settings, or nil when no secret is configured
func (c *Config) JWT() *JWTConfig {
	if c.JWTSecret == "" {
		return nil
	}
	hours := c.JWTExpirationHours
	if hours <= 0 {
		hours = DefaultJWTExpirationHours
	}
	return &JWTConfig{Secret: c.JWTSecret, ExpirationHours: hours}
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
