package config

import (
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "CONVOCATORIAS_"

type envSetter func(c *Config, value string) error

func setString(field func(*Config) *string) envSetter {
	return func(c *Config, value string) error {
		*field(c) = value
		return nil
	}
}

func setInt(field func(*Config) *int) envSetter {
	return func(c *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func setBool(field func(*Config) *bool) envSetter {
	return func(c *Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func setDuration(field func(*Config) *time.Duration) envSetter {
	return func(c *Config, value string) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

func setFloat(field func(*Config) *float64) envSetter {
	return func(c *Config, value string) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

// envOverrides maps variable names, without EnvPrefix, to the field they set.
var envOverrides = map[string]envSetter{
	"STORAGE_PATH":        setString(func(c *Config) *string { return &c.Storage.Path }),
	"STORAGE_IN_MEMORY":   setBool(func(c *Config) *bool { return &c.Storage.InMemory }),
	"EMBEDDING_HOST":      setString(func(c *Config) *string { return &c.AI.EmbeddingHost }),
	"EMBEDDING_MODEL":     setString(func(c *Config) *string { return &c.AI.EmbeddingModel }),
	"EMBEDDING_DIMS":      setInt(func(c *Config) *int { return &c.AI.Dimensions }),
	"EMBEDDING_BATCH":     setInt(func(c *Config) *int { return &c.AI.BatchSize }),
	"API_KEY":             setString(func(c *Config) *string { return &c.AI.APIKey }),
	"CRAWL_MAX_ATTEMPTS":  setInt(func(c *Config) *int { return &c.Crawl.MaxAttempts }),
	"CRAWL_BASE_BACKOFF":  setDuration(func(c *Config) *time.Duration { return &c.Crawl.BaseBackoff }),
	"CRAWL_NAV_TIMEOUT":   setDuration(func(c *Config) *time.Duration { return &c.Crawl.NavigationTimeout }),
	"CRAWL_HEADLESS":      setBool(func(c *Config) *bool { return &c.Crawl.Headless }),
	"CRAWL_STATIC":        setBool(func(c *Config) *bool { return &c.Crawl.Static }),
	"USER_AGENT":          setString(func(c *Config) *string { return &c.Crawl.UserAgent }),
	"HTTP_TIMEOUT":        setDuration(func(c *Config) *time.Duration { return &c.HTTP.Timeout }),
	"HTTP_MAX_RETRIES":    setInt(func(c *Config) *int { return &c.HTTP.MaxRetries }),
	"HTTP_RPS":            setFloat(func(c *Config) *float64 { return &c.HTTP.RequestsPerSecond }),
	"CHUNK_SIZE":          setInt(func(c *Config) *int { return &c.Chunking.Size }),
	"CHUNK_OVERLAP":       setInt(func(c *Config) *int { return &c.Chunking.Overlap }),
	"METRICS_LISTEN_ADDR": setString(func(c *Config) *string { return &c.Metrics.ListenAddr }),
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for name, set := range envOverrides {
		value, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		if err := set(c, value); err != nil {
			return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalidConfig, EnvPrefix, name, value, err)
		}
	}
	return nil
}
