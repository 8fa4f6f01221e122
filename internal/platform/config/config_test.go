package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 100, cfg.Store.PageSize)
	assert.Equal(t, 5*time.Second, cfg.Store.ListTimeout)
	assert.Equal(t, EventsNone, cfg.Events.Driver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.Brokers)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "longtrees.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: postgres
  page_size: 20
  list_timeout: 2s
events:
  driver: kafka
  brokers: ["k1:9092"]
`), 0o600))

	t.Setenv("LONGTREES_STORE_DRIVER", "mongo")
	t.Setenv("LONGTREES_SERVER_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMongo, cfg.Store.Driver, "env overrides file")
	assert.Equal(t, 20, cfg.Store.PageSize, "file overrides defaults")
	assert.Equal(t, 2*time.Second, cfg.Store.ListTimeout)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"k1:9092"}, cfg.Events.Brokers)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown store driver", func(c *Config) { c.Store.Driver = "sqlite" }, "store.driver"},
		{"zero page size", func(c *Config) { c.Store.PageSize = 0 }, "store.page_size"},
		{"max below page size", func(c *Config) { c.Store.MaxPageSize = 1 }, "store.max_page_size"},
		{"unknown events driver", func(c *Config) { c.Events.Driver = "nats" }, "events.driver"},
		{"s3 without bucket", func(c *Config) { c.Export.Driver = ExportS3 }, "export.bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
