package botmother

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Subtests run in order: each layer builds on the previous one, since
// flag values stick to the package-level FlagSet once set.
func Test_LoadAndValidate_layers(t *testing.T) {
	// Scoped to the parent test so the config file written in the
	// "external file overrides defaults" subtest survives for the later
	// subtests that still read it through the sticky flag value.
	tempDir := t.TempDir()

	t.Run("embedded defaults", func(t *testing.T) {
		cfg, err := LoadAndValidate(FlagSet)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:11823", cfg.Server.Address)
		assert.Equal(t, "bot_token_pool.json", cfg.Pool.File)
		assert.Equal(t, "ollama", cfg.Provider.Name)
		assert.False(t, cfg.Pool.Recycle)
	})

	t.Run("external file overrides defaults", func(t *testing.T) {
		content := `
pool:
  file: /var/lib/botmother/pool.json
observability:
  enable: true
  exporter: prometheus
`
		path := filepath.Join(tempDir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		require.NoError(t, FlagSet.Set(FlagServerConfigFile, path))

		cfg, err := LoadAndValidate(FlagSet)
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/botmother/pool.json", cfg.Pool.File)
		assert.True(t, cfg.Observe.Enable)
		assert.Equal(t, "prometheus", cfg.Observe.Exporter)
		// untouched keys keep their defaults
		assert.Equal(t, "0.0.0.0:11823", cfg.Server.Address)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("BOTMOTHER_PROVIDER_MODEL", "llama3:8b")
		t.Setenv("BOTMOTHER_OBSERVABILITY_EXPORTER", "http")

		cfg, err := LoadAndValidate(FlagSet)
		require.NoError(t, err)
		assert.Equal(t, "llama3:8b", cfg.Provider.Model)
		assert.Equal(t, "http", cfg.Observe.Exporter)
	})

	t.Run("flag overrides env", func(t *testing.T) {
		t.Setenv("BOTMOTHER_SERVER_ADDRESS", "127.0.0.1:1111")
		require.NoError(t, FlagSet.Set(FlagServerAddress, "127.0.0.1:2222"))

		cfg, err := LoadAndValidate(FlagSet)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:2222", cfg.Server.Address)
	})
}

func Test_config_validate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{Address: "0.0.0.0:11823"},
			Pool:     PoolConfig{File: "pool.json"},
			Provider: Provider{Name: "ollama", Model: "qwen3:4b"},
		}
	}

	tTable := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing address", mutate: func(c *Config) { c.Server.Address = "" }, wantErr: "server address"},
		{name: "bad address", mutate: func(c *Config) { c.Server.Address = "no-port" }, wantErr: "address format"},
		{name: "missing pool file", mutate: func(c *Config) { c.Pool.File = "" }, wantErr: "pool file"},
		{name: "missing provider", mutate: func(c *Config) { c.Provider.Name = "" }, wantErr: "provider name"},
		{name: "missing model", mutate: func(c *Config) { c.Provider.Model = "" }, wantErr: "provider model"},
	}

	for _, tc := range tTable {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func Test_config_DumpYAML(t *testing.T) {
	cfg := Config{
		Server:   ServerConfig{Address: "0.0.0.0:11823"},
		Pool:     PoolConfig{File: "pool.json"},
		Provider: Provider{Name: "ollama", Model: "qwen3:4b"},
	}
	var buf bytes.Buffer
	require.NoError(t, cfg.DumpYAML(&buf))
	assert.Contains(t, buf.String(), "address: 0.0.0.0:11823")
	assert.Contains(t, buf.String(), "name: ollama")
}
