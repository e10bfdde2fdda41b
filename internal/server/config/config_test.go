package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, 7*24*time.Hour, c.TokenValidity)
	assert.Equal(t, 15*time.Minute, c.CodeTTL)
	assert.Equal(t, "st.niituniversity.in", c.InstitutionDomain)
	assert.Equal(t, "fs", c.BlobBackend)
	assert.Equal(t, "data", c.DataDir)
	assert.Equal(t, 60, c.AuthRatePerMinute)
	assert.Empty(t, c.SecretKey)
	assert.Empty(t, c.RedisAddr)
	assert.Empty(t, c.SMTPHost)
	assert.Equal(t, int64(32<<20), c.MaxUploadBytes)
}

func TestLoadConfig_DefaultsWithoutArgs(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"certhub"}

	c := LoadConfig()
	require.NotNil(t, c)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want.HTTPAddr, c.HTTPAddr)
	assert.Equal(t, want.TokenValidity, c.TokenValidity)
}

func TestLoadConfig_FlagsBeatEnv(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Setenv("CERTHUB_HTTP_ADDR", ":7000")
	t.Setenv("CERTHUB_LOG_LEVEL", "debug")
	os.Args = []string{"certhub", "-a", ":9000"}

	c := LoadConfig()
	assert.Equal(t, ":9000", c.HTTPAddr)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		panics bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero code ttl", func(c *Config) { c.CodeTTL = 0 }, true},
		{"negative code ttl", func(c *Config) { c.CodeTTL = -time.Minute }, true},
		{"zero token validity", func(c *Config) { c.TokenValidity = 0 }, true},
		{"proxy ip and cidr", func(c *Config) { c.TrustedProxies = []string{"10.0.0.1", "192.168.0.0/16"} }, false},
		{"bad proxy", func(c *Config) { c.TrustedProxies = []string{"proxy.local"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			if tt.panics {
				assert.Panics(t, func() { validate(&c) })
			} else {
				assert.NotPanics(t, func() { validate(&c) })
			}
		})
	}
}

func TestLoadConfig_ZeroCodeTTLFromEnvPanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Setenv("CERTHUB_CODE_TTL", "0s")
	os.Args = []string{"certhub"}

	assert.PanicsWithValue(t, "config: code TTL must be positive, got 0s", func() { LoadConfig() })
}
