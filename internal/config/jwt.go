package config

import "fmt"

// JWTConfig holds configuration for operator token signing and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// Validate checks that tokens can be signed with this configuration.
func (c *JWTConfig) Validate() error {
	if c == nil || c.Secret == "" {
		return fmt.Errorf("JWT secret is required but not set")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT expiration must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
