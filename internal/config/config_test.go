package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TOKEN_SIGNING_KEY", testKey)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, TokenProviderPaseto, cfg.Auth.TokenProvider)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenDuration)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address())
	assert.Contains(t, cfg.Database.ConnectionString(), "dbname=authapi")
	assert.Contains(t, cfg.Email.ActivationBaseURL, "/auth/accountVerification")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TOKEN_SIGNING_KEY", testKey)
	t.Setenv("TOKEN_PROVIDER", TokenProviderJWT)
	t.Setenv("ACCESS_TOKEN_DURATION", "600")
	t.Setenv("TRUSTED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("APP_ENV", "prod")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TokenProviderJWT, cfg.Auth.TokenProvider)
	assert.Equal(t, 10*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.TrustedOrigins)
	assert.False(t, cfg.Server.IsDevelopment())
}

func TestLoadRejectsBadSigningKey(t *testing.T) {
	t.Setenv("TOKEN_SIGNING_KEY", "too-short")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("TOKEN_SIGNING_KEY", testKey)
	t.Setenv("TOKEN_PROVIDER", "hmac-of-doom")

	_, err := Load()
	require.Error(t, err)
}
