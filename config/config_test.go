package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mirarav/convocatorias/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Crawl.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Crawl.BaseBackoff)
	assert.True(t, cfg.Crawl.Headless)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 384, cfg.AI.Dimensions)
	assert.Equal(t, 32, cfg.AI.BatchSize)
	assert.Empty(t, cfg.Metrics.ListenAddr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "in memory without path", modify: func(c *Config) { c.Storage = StorageConfig{InMemory: true} }},
		{name: "missing path", modify: func(c *Config) { c.Storage.Path = "" }, wantErr: true},
		{name: "missing model", modify: func(c *Config) { c.AI.EmbeddingModel = "" }, wantErr: true},
		{name: "zero dimensions", modify: func(c *Config) { c.AI.Dimensions = 0 }, wantErr: true},
		{name: "zero attempts", modify: func(c *Config) { c.Crawl.MaxAttempts = 0 }, wantErr: true},
		{name: "negative backoff", modify: func(c *Config) { c.Crawl.BaseBackoff = -time.Second }, wantErr: true},
		{name: "overlap equals size", modify: func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }, wantErr: true},
		{name: "zero http timeout", modify: func(c *Config) { c.HTTP.Timeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convocatorias.yaml")
	content := `
storage:
  path: /var/lib/convocatorias
ai:
  embedding_host: http://embeddings:8080/v1
  embedding_model: paraphrase-multilingual-MiniLM-L12-v2
crawl:
  max_attempts: 5
  base_backoff: 500ms
  headless: false
http:
  requests_per_second: 0.5
chunking:
  size: 800
  overlap: 100
metrics:
  listen_addr: ":9108"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/convocatorias", cfg.Storage.Path)
	assert.Equal(t, "paraphrase-multilingual-MiniLM-L12-v2", cfg.AI.EmbeddingModel)
	assert.Equal(t, 384, cfg.AI.Dimensions, "unset keys keep defaults")
	assert.Equal(t, 5, cfg.Crawl.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Crawl.BaseBackoff)
	assert.False(t, cfg.Crawl.Headless)
	assert.Equal(t, 0.5, cfg.HTTP.RequestsPerSecond)
	assert.Equal(t, 800, cfg.Chunking.Size)
	assert.Equal(t, ":9108", cfg.Metrics.ListenAddr)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Storage.Path, cfg.Storage.Path)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("crawl: [unclosed"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("chunking:\n  size: 0\n"), 0644))
	_, err = Load(invalid)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONVOCATORIAS_STORAGE_PATH", "/tmp/env-db")
	t.Setenv("CONVOCATORIAS_CRAWL_BASE_BACKOFF", "3s")
	t.Setenv("CONVOCATORIAS_CRAWL_STATIC", "true")
	t.Setenv("CONVOCATORIAS_HTTP_RPS", "4")
	t.Setenv("CONVOCATORIAS_METRICS_LISTEN_ADDR", "127.0.0.1:9200")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env-db", cfg.Storage.Path)
	assert.Equal(t, 3*time.Second, cfg.Crawl.BaseBackoff)
	assert.True(t, cfg.Crawl.Static)
	assert.Equal(t, 4.0, cfg.HTTP.RequestsPerSecond)
	assert.Equal(t, "127.0.0.1:9200", cfg.Metrics.ListenAddr)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("CONVOCATORIAS_CHUNK_SIZE", "mil")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "CONVOCATORIAS_CHUNK_SIZE")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Crawl.SettleDelay = 1500 * time.Millisecond
	cfg.Metrics.ListenAddr = ":9108"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AI.EmbeddingHost = "http://localhost:8080"
	cfg.Crawl.UserAgent = "convocatorias-test"
	cfg.HTTP.RequestsPerSecond = 1

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://localhost:8080/v1", aiCfg.EmbeddingHost)

	chrome := cfg.ChromeConfig()
	assert.Equal(t, cfg.Crawl.NavigationTimeout, chrome.NavigationTimeout)
	assert.Equal(t, "convocatorias-test", chrome.UserAgent)

	assert.Equal(t, fetch.Config{
		Timeout:           cfg.HTTP.Timeout,
		MaxRetries:        cfg.HTTP.MaxRetries,
		RetryDelay:        cfg.HTTP.RetryDelay,
		RequestsPerSecond: 1,
		UserAgent:         "convocatorias-test",
	}, cfg.FetchConfig())
}
