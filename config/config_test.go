package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Act
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	// Assert
	require.Error(t, err)
	assert.Nil(t, cfg)

	// Without an explicit file a missing config.yaml is fine
	t.Chdir(t.TempDir())
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.QueryTimeout)
	assert.Equal(t, "memory", cfg.Share.Backend)
	assert.Equal(t, 7, cfg.Share.KeyLength)
	assert.Equal(t, 10, cfg.Filter.MaxCodes)
	assert.Equal(t, []string{"HL471", "HL302"}, cfg.Filter.ForbiddenCodes)
	assert.Equal(t, []string{"900"}, cfg.Filter.ForbiddenInfixes)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9090"
  query_timeout: 2s
catalog:
  path: sections.csv
  format: csv
  delimiter: ";"
share:
  backend: redis
  ttl: 24h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("COMB_RANK_LIMIT", "5")
	t.Setenv("COMB_REDIS_ADDR", "cache:6379")

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.QueryTimeout)
	assert.Equal(t, ';', cfg.Catalog.DelimiterRune())
	assert.Equal(t, "redis", cfg.Share.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Share.TTL)
	assert.Equal(t, 5, cfg.Rank.Limit)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:  ServerConfig{Addr: ":8080", QueryTimeout: time.Second},
			Catalog: CatalogConfig{Format: "csv", Delimiter: ","},
			Share:   ShareConfig{Backend: "memory", KeyLength: 7},
			Filter:  FilterConfig{MaxCodes: 10},
		}
	}

	testCases := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"Empty address", func(cfg *Config) { cfg.Server.Addr = "" }},
		{"Non-positive timeout", func(cfg *Config) { cfg.Server.QueryTimeout = 0 }},
		{"Unknown catalog format", func(cfg *Config) { cfg.Catalog.Format = "xml" }},
		{"Long delimiter", func(cfg *Config) { cfg.Catalog.Delimiter = ";;" }},
		{"Unknown share backend", func(cfg *Config) { cfg.Share.Backend = "postgres" }},
		{"Short keys", func(cfg *Config) { cfg.Share.KeyLength = 2 }},
		{"No codes allowed", func(cfg *Config) { cfg.Filter.MaxCodes = 0 }},
		{"Negative rank limit", func(cfg *Config) { cfg.Rank.Limit = -1 }},
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			cfg := valid()
			testCase.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
