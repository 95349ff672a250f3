// Package config loads govsense configuration from a YAML file and
// GOVSENSE_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mrtinhnguyen/govsense-tthc/internal/chunker"
	"github.com/mrtinhnguyen/govsense-tthc/internal/embedder"
	"github.com/mrtinhnguyen/govsense-tthc/internal/logging"
	"github.com/mrtinhnguyen/govsense-tthc/internal/searcher"
)

// Config is the complete runtime configuration
type Config struct {
	Storage  StorageConfig  `koanf:"storage"`
	Embedder EmbedderConfig `koanf:"embedder"`
	Chunker  ChunkerConfig  `koanf:"chunker"`
	Search   SearchConfig   `koanf:"search"`
	Import   ImportConfig   `koanf:"import"`
	Logging  logging.Config `koanf:"logging"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// StorageConfig locates the SQLite database
type StorageConfig struct {
	Path string `koanf:"path"`
}

// EmbedderConfig selects and tunes the embedding provider
type EmbedderConfig struct {
	Provider  string        `koanf:"provider"`
	APIKey    string        `koanf:"api_key"`
	Model     string        `koanf:"model"`
	BaseURL   string        `koanf:"base_url"`
	Dimension int           `koanf:"dimension"`
	CacheSize int           `koanf:"cache_size"`
	Timeout   time.Duration `koanf:"timeout"`
}

// ChunkerConfig controls splitting and fragment embedding
type ChunkerConfig struct {
	ChunkSize    int `koanf:"chunk_size"`
	ChunkOverlap int `koanf:"chunk_overlap"`
	BatchSize    int `koanf:"batch_size"`
	Concurrency  int `koanf:"concurrency"`
}

// SearchConfig holds retrieval defaults
type SearchConfig struct {
	TopK         int           `koanf:"top_k"`
	CacheEnabled bool          `koanf:"cache_enabled"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

// ImportConfig bounds bulk imports
type ImportConfig struct {
	MaxFileSize int64 `koanf:"max_file_size"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

const (
	// DefaultMaxFileSize caps import uploads
	DefaultMaxFileSize = 20 * 1024 * 1024

	defaultCacheSize = 10000
	defaultTimeout   = 30 * time.Second
)

// Default returns the configuration used when nothing is set
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills zero values
func applyDefaults(cfg *Config) {
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStoragePath()
	}

	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = embedder.ProviderLocal
	}
	cfg.Embedder.Provider = strings.ToLower(strings.TrimSpace(cfg.Embedder.Provider))
	if cfg.Embedder.APIKey == "" {
		cfg.Embedder.APIKey = providerKeyFromEnv(cfg.Embedder.Provider)
	}
	if cfg.Embedder.CacheSize == 0 {
		cfg.Embedder.CacheSize = defaultCacheSize
	}
	if cfg.Embedder.Timeout == 0 {
		cfg.Embedder.Timeout = defaultTimeout
	}

	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = chunker.DefaultChunkSize
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = min(chunker.DefaultChunkOverlap, cfg.Chunker.ChunkSize/10)
	}
	if cfg.Chunker.BatchSize == 0 {
		cfg.Chunker.BatchSize = chunker.DefaultBatchSize
	}
	if cfg.Chunker.Concurrency == 0 {
		cfg.Chunker.Concurrency = chunker.DefaultConcurrency
	}

	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = searcher.DefaultTopK
	}
	if cfg.Search.CacheTTL == 0 {
		cfg.Search.CacheTTL = searcher.DefaultCacheTTL
	}

	if cfg.Import.MaxFileSize == 0 {
		cfg.Import.MaxFileSize = DefaultMaxFileSize
	}

	def := logging.DefaultConfig()
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Format
	}
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "govsense.db"
	}
	return filepath.Join(home, ".govsense", "govsense.db")
}

// providerKeyFromEnv reads the conventional API key variable of a provider
func providerKeyFromEnv(provider string) string {
	switch provider {
	case embedder.ProviderJina:
		return os.Getenv("JINA_API_KEY")
	case embedder.ProviderOpenAI, embedder.ProviderCompatible:
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

// Validate checks the configuration for values no component can run with
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}

	if !slices.Contains(embedder.SupportedProviders(), c.Embedder.Provider) {
		errs = append(errs, fmt.Errorf("embedder.provider %q is not one of %s",
			c.Embedder.Provider, strings.Join(embedder.SupportedProviders(), ", ")))
	}
	if c.Embedder.Provider != embedder.ProviderLocal && c.Embedder.APIKey == "" {
		errs = append(errs, fmt.Errorf("embedder.api_key is required for provider %s", c.Embedder.Provider))
	}
	if c.Embedder.Provider == embedder.ProviderCompatible && c.Embedder.BaseURL == "" {
		errs = append(errs, errors.New("embedder.base_url is required for provider compatible"))
	}
	if c.Embedder.Dimension < 0 {
		errs = append(errs, errors.New("embedder.dimension must not be negative"))
	}
	if c.Embedder.Timeout < 0 {
		errs = append(errs, errors.New("embedder.timeout must not be negative"))
	}

	if c.Chunker.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunker.chunk_size must be positive"))
	}
	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		errs = append(errs, errors.New("chunker.chunk_overlap must be in [0, chunk_size)"))
	}
	if c.Chunker.BatchSize <= 0 || c.Chunker.BatchSize > embedder.MaxBatchSize {
		errs = append(errs, fmt.Errorf("chunker.batch_size must be between 1 and %d", embedder.MaxBatchSize))
	}
	if c.Chunker.Concurrency <= 0 {
		errs = append(errs, errors.New("chunker.concurrency must be positive"))
	}

	if c.Search.TopK < 1 || c.Search.TopK > searcher.MaxTopK {
		errs = append(errs, fmt.Errorf("search.top_k must be between 1 and %d", searcher.MaxTopK))
	}

	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, errors.New("import.max_file_size must be positive"))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// EmbedderConfig converts the section to the embedder factory's config
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedder.Provider,
		APIKey:    c.Embedder.APIKey,
		Model:     c.Embedder.Model,
		BaseURL:   c.Embedder.BaseURL,
		Dimension: c.Embedder.Dimension,
		CacheSize: c.Embedder.CacheSize,
		Timeout:   c.Embedder.Timeout,
	}
}

// SplitterConfig converts the chunker section to a splitter config
func (c *Config) SplitterConfig() chunker.SplitterConfig {
	return chunker.SplitterConfig{
		ChunkSize:    c.Chunker.ChunkSize,
		ChunkOverlap: c.Chunker.ChunkOverlap,
	}
}
