package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, "LTI 1.3 example", cfg.ToolName)
	assert.Equal(t, 15*time.Minute, cfg.StateTTL)
	assert.Equal(t, 2*time.Hour, cfg.LaunchTTL)
	assert.Equal(t, "http://imsglobal.org", cfg.NonceExemptIssuer)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("PUBLIC_BASE_URL", "https://tool.example.com/")
	t.Setenv("STATE_TTL", "1m")
	t.Setenv("NONCE_EXEMPT_ISSUER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "https://tool.example.com", cfg.PublicBaseURL, "trailing slash is trimmed")
	assert.Equal(t, time.Minute, cfg.StateTTL)
	assert.Equal(t, "", cfg.NonceExemptIssuer, "exemption can be switched off")
}

func TestLoadValidation(t *testing.T) {
	t.Run("bad port", func(t *testing.T) {
		t.Setenv("PORT", "70000")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("relative base URL", func(t *testing.T) {
		t.Setenv("PUBLIC_BASE_URL", "not-a-url")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("non-positive TTL", func(t *testing.T) {
		t.Setenv("STATE_TTL", "-5m")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestDerivedURLs(t *testing.T) {
	cfg := &Config{PublicBaseURL: "https://tool.example.com"}
	assert.Equal(t, "https://tool.example.com/launch/", cfg.LaunchURL())
	assert.Equal(t, "https://tool.example.com/login/", cfg.LoginURL())
	assert.Equal(t, "https://tool.example.com/jwks/", cfg.JWKSURL())
}
