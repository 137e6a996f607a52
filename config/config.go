// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the convocatorias YAML configuration and converts it
// into the option types of the packages it configures.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mirarav/convocatorias/ai"
	"github.com/mirarav/convocatorias/chunking"
	"github.com/mirarav/convocatorias/crawl"
	"github.com/mirarav/convocatorias/fetch"
	"github.com/mirarav/convocatorias/ingestion"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete application configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	AI       AIConfig       `yaml:"ai"`
	Crawl    CrawlConfig    `yaml:"crawl"`
	HTTP     HTTPConfig     `yaml:"http"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// StorageConfig locates the badger database.
type StorageConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// AIConfig selects the embedding service.
type AIConfig struct {
	EmbeddingHost  string `yaml:"embedding_host"`
	EmbeddingModel string `yaml:"embedding_model"`
	Dimensions     int    `yaml:"dimensions"`
	APIKey         string `yaml:"api_key"`
	// BatchSize is how many chunks go into one embedding request.
	BatchSize int `yaml:"batch_size"`
}

// CrawlConfig tunes call page discovery.
type CrawlConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseBackoff       time.Duration `yaml:"base_backoff"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	ClickDelay        time.Duration `yaml:"click_delay"`
	UserAgent         string        `yaml:"user_agent"`
	Headless          bool          `yaml:"headless"`
	// Static fetches call pages over plain HTTP instead of a browser.
	Static bool `yaml:"static"`
}

// HTTPConfig tunes the session used for PDF checks and downloads.
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// ChunkingConfig sizes prose chunks, in characters.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// MetricsConfig controls the Prometheus endpoint. An empty ListenAddr
// disables it.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	chrome := crawl.DefaultChromeConfig()
	httpCfg := fetch.DefaultConfig()
	aiCfg := ai.DefaultConfig()

	return &Config{
		Storage: StorageConfig{
			Path: "./convocatorias_db",
		},
		AI: AIConfig{
			EmbeddingHost:  aiCfg.EmbeddingHost,
			EmbeddingModel: aiCfg.EmbeddingModel,
			Dimensions:     aiCfg.Dimensions,
			APIKey:         aiCfg.APIKey,
			BatchSize:      ingestion.DefaultEmbeddingBatchSize,
		},
		Crawl: CrawlConfig{
			MaxAttempts:       crawl.DefaultMaxAttempts,
			BaseBackoff:       crawl.DefaultBaseDelay,
			NavigationTimeout: chrome.NavigationTimeout,
			SettleDelay:       chrome.SettleDelay,
			ClickDelay:        chrome.ClickDelay,
			UserAgent:         chrome.UserAgent,
			Headless:          chrome.Headless,
		},
		HTTP: HTTPConfig{
			Timeout:           httpCfg.Timeout,
			MaxRetries:        httpCfg.MaxRetries,
			RetryDelay:        httpCfg.RetryDelay,
			RequestsPerSecond: httpCfg.RequestsPerSecond,
		},
		Chunking: ChunkingConfig{
			Size:    chunking.DefaultChunkSize,
			Overlap: chunking.DefaultChunkOverlap,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case !c.Storage.InMemory && c.Storage.Path == "":
		return fmt.Errorf("%w: storage.path is required unless storage.in_memory is set", ErrInvalidConfig)
	case c.AI.EmbeddingHost == "":
		return fmt.Errorf("%w: ai.embedding_host is required", ErrInvalidConfig)
	case c.AI.EmbeddingModel == "":
		return fmt.Errorf("%w: ai.embedding_model is required", ErrInvalidConfig)
	case c.AI.Dimensions < 1:
		return fmt.Errorf("%w: ai.dimensions must be greater than 0", ErrInvalidConfig)
	case c.AI.BatchSize < 1:
		return fmt.Errorf("%w: ai.batch_size must be greater than 0", ErrInvalidConfig)
	case c.Crawl.MaxAttempts < 1:
		return fmt.Errorf("%w: crawl.max_attempts must be greater than 0", ErrInvalidConfig)
	case c.Crawl.BaseBackoff < 0:
		return fmt.Errorf("%w: crawl.base_backoff cannot be negative", ErrInvalidConfig)
	case c.HTTP.Timeout <= 0:
		return fmt.Errorf("%w: http.timeout must be positive", ErrInvalidConfig)
	case c.HTTP.MaxRetries < 0:
		return fmt.Errorf("%w: http.max_retries cannot be negative", ErrInvalidConfig)
	case c.Chunking.Size < 1:
		return fmt.Errorf("%w: chunking.size must be greater than 0", ErrInvalidConfig)
	case c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size:
		return fmt.Errorf("%w: chunking.overlap must be in [0, chunking.size)", ErrInvalidConfig)
	}
	return nil
}

// AIConfig converts the ai section for ai providers.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithDimensions(c.AI.Dimensions),
		ai.WithAPIKey(c.AI.APIKey),
	)
}

// ChromeConfig converts the crawl section for crawl.NewChromeRenderer.
func (c *Config) ChromeConfig() crawl.ChromeConfig {
	return crawl.ChromeConfig{
		NavigationTimeout: c.Crawl.NavigationTimeout,
		SettleDelay:       c.Crawl.SettleDelay,
		ClickDelay:        c.Crawl.ClickDelay,
		UserAgent:         c.Crawl.UserAgent,
		Headless:          c.Crawl.Headless,
	}
}

// FetchConfig converts the http section for fetch.NewHTTPClient.
func (c *Config) FetchConfig() fetch.Config {
	return fetch.Config{
		Timeout:           c.HTTP.Timeout,
		MaxRetries:        c.HTTP.MaxRetries,
		RetryDelay:        c.HTTP.RetryDelay,
		RequestsPerSecond: c.HTTP.RequestsPerSecond,
		UserAgent:         c.Crawl.UserAgent,
	}
}
