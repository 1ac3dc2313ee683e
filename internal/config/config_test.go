package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_TOMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receiptsplit.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9000

[storage]
driver = "memory"

[session]
ttl = "90m"

[events]
brokers = ["kafka-1:9092"]
`), 0o600))

	t.Setenv("PORT", "9100")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("TOKEN_TTL", "2h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 90*time.Minute, cfg.Session.TTL.Duration)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Events.Brokers)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL.Duration)
	assert.Equal(t, ":9100", cfg.Server.Addr())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestApplyEnv_BadValues(t *testing.T) {
	tests := map[string]string{
		"PORT":        "eighty",
		"SESSION_TTL": "soon",
		"TOKEN_TTL":   "1 day",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			cfg := Default()
			err := cfg.applyEnv(func(k string) (string, bool) {
				if k == key {
					return value, true
				}
				return "", false
			})
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }},
		{"postgres without url", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"redis without addr", func(c *Config) { c.Session.Backend = "redis" }},
		{"unknown session backend", func(c *Config) { c.Session.Backend = "disk" }},
		{"zero session ttl", func(c *Config) { c.Session.TTL.Duration = 0 }},
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
