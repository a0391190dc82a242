package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DISPATCH_ON_SUBMIT", "not-a-bool")

	cfg := LoadConfig()

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.DispatchOnSubmit)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MASTER_BACKEND", "db")
	t.Setenv("SNAPSHOT_BACKEND", "db")
	t.Setenv("DISPATCH_ON_SUBMIT", "true")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendDB, cfg.MasterBackend)
	assert.Equal(t, BackendDB, cfg.SnapshotBackend)
	assert.True(t, cfg.DispatchOnSubmit)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	cases := map[string]func(c *Config){
		"driver":   func(c *Config) { c.DBDriver = "mysql" },
		"snapshot": func(c *Config) { c.SnapshotBackend = "s3" },
		"master":   func(c *Config) { c.MasterBackend = "csv" },
		"dir":      func(c *Config) { c.SnapshotDir = "" },
		"file":     func(c *Config) { c.MasterFile = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := &Config{
				DBDriver:        DriverSQLite,
				SnapshotBackend: BackendFile,
				SnapshotDir:     "data",
				MasterBackend:   BackendXLSX,
				MasterFile:      "master.xlsx",
			}
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWhatsAppEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.WhatsAppEnabled())

	cfg.WhatsAppToken = "token"
	cfg.PhoneNumberID = "123"
	assert.True(t, cfg.WhatsAppEnabled())
}
