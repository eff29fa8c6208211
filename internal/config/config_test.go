package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend.test/api")
	t.Setenv("RECONCILE_INTERVAL", "2s")
	t.Setenv("CREDIT_BAN_THRESHOLD", "45")
	t.Setenv("REQUEST_TIMEOUT", "not-a-duration")

	cfg := LoadConfig()

	assert.Equal(t, "http://backend.test/api", cfg.BackendURL)
	assert.Equal(t, 2*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, 45, cfg.CreditBanThreshold)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			BackendURL:        "http://backend.test/api",
			SessionStore:      StoreMemory,
			SessionNotifier:   NotifierLocal,
			ReconcileInterval: time.Second,
			RequestTimeout:    time.Second,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"unknown store", func(c *Config) { c.SessionStore = "redis" }, false},
		{"unknown notifier", func(c *Config) { c.SessionNotifier = "kafka" }, false},
		{"postgres notifier needs postgres store", func(c *Config) { c.SessionNotifier = NotifierPostgres }, false},
		{"postgres pair", func(c *Config) {
			c.SessionStore = StorePostgres
			c.SessionNotifier = NotifierPostgres
		}, true},
		{"zero interval", func(c *Config) { c.ReconcileInterval = 0 }, false},
		{"empty backend", func(c *Config) { c.BackendURL = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
