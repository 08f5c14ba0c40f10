package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJWTConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *JWTConfig
		wantErr string
	}{
		{name: "valid", cfg: &JWTConfig{Secret: "s3cret", ExpirationHours: 24}},
		{name: "nil", cfg: nil, wantErr: "secret is required"},
		{name: "empty secret", cfg: &JWTConfig{ExpirationHours: 24}, wantErr: "secret is required"},
		{name: "zero expiration", cfg: &JWTConfig{Secret: "s3cret"}, wantErr: "at least 1 hour"},
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

func TestConfig_JWT(t *testing.T) {
	assert.Nil(t, (&Config{}).JWT())

	jwt := (&Config{JWTSecret: "0123456789abcdef"}).JWT()
	if assert.NotNil(t, jwt) {
		assert.Equal(t, "0123456789abcdef", jwt.Secret)
		assert.Equal(t, DefaultJWTExpirationHours, jwt.ExpirationHours)
	}
}
