// Package config provides the docqa configuration. It is stored in
// ~/.config/docqa/config.yaml and every field has a usable default, so a
// missing file is not an error.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/natefinch/atomic"

	"github.com/docker/docqa/pkg/paths"
	"github.com/docker/docqa/pkg/rag/chunk"
)

// CurrentVersion is the current version of the config format
const CurrentVersion = "v1"

// Config is the complete docqa configuration.
type Config struct {
	Version   string                 `yaml:"version,omitempty"`
	Chunking  Chunking               `yaml:"chunking"`
	Embedding Embedding              `yaml:"embedding"`
	Retrieval Retrieval              `yaml:"retrieval"`
	Store     Store                  `yaml:"store"`
	Uploads   Uploads                `yaml:"uploads"`
	Catalog   Catalog                `yaml:"catalog"`
	Server    Server                 `yaml:"server"`
	Models    map[string]ModelConfig `yaml:"models,omitempty"`
}

// Chunking controls how normalized text is cut into word windows.
type Chunking struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// Embedding selects and tunes the embedding backend.
type Embedding struct {
	// Provider is one of hashing, ollama, openai or google.
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model,omitempty"`
	BaseURL        string `yaml:"base_url,omitempty"`
	Dimension      int    `yaml:"dimension"`
	BatchSize      int    `yaml:"batch_size"`
	MaxConcurrency int    `yaml:"max_concurrency"`
	// QueryCacheTTL is a Go duration; "0" disables the query cache.
	QueryCacheTTL string `yaml:"query_cache_ttl,omitempty"`
}

type Retrieval struct {
	TopK int `yaml:"top_k"`
}

type Store struct {
	Dir string `yaml:"dir"`
}

type Uploads struct {
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern,omitempty"`
}

type Catalog struct {
	// Path of the SQLite catalog. Empty disables the catalog.
	Path string `yaml:"path"`
}

type Server struct {
	Listen string `yaml:"listen"`
}

// ModelConfig configures one generative backend.
type ModelConfig struct {
	// Provider is the API family: openai, google, ollama or anthropic.
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url,omitempty"`
	MaxTokens   *int64   `yaml:"max_tokens,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

func ptr[T any](v T) *T {
	return &v
}

// DefaultModels mirrors the generative backends the application offers.
func DefaultModels() map[string]ModelConfig {
	return map[string]ModelConfig{
		"gpt": {
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			MaxTokens:   ptr(int64(1500)),
			Temperature: ptr(0.7),
		},
		"gemini": {
			Provider: "google",
			Model:    "gemini-2.5-flash",
		},
		"deepseek": {
			Provider: "ollama",
			Model:    "deepseek-r1:8b",
		},
		"llama": {
			Provider: "ollama",
			Model:    "llama3.1:8b",
		},
		"claude": {
			Provider:  "anthropic",
			Model:     "claude-3-5-haiku-latest",
			MaxTokens: ptr(int64(1500)),
		},
	}
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Chunking: Chunking{
			Size:    chunk.DefaultSize,
			Overlap: chunk.DefaultOverlap,
		},
		Embedding: Embedding{
			Provider:       "ollama",
			Model:          "all-minilm",
			Dimension:      384,
			BatchSize:      50,
			MaxConcurrency: 5,
			QueryCacheTTL:  "10m",
		},
		Retrieval: Retrieval{TopK: 4},
		Store:     Store{Dir: filepath.Join("uploads", "indices")},
		Uploads:   Uploads{Dir: "uploads", Pattern: "**/*.{pdf,txt,md}"},
		Catalog:   Catalog{Path: filepath.Join("uploads", "catalog.db")},
		Server:    Server{Listen: ":8080"},
		Models:    DefaultModels(),
	}
}

// Path returns the path to the config file
func Path() string {
	return filepath.Join(paths.GetConfigDir(), "config.yaml")
}

// Load reads the config file at path on top of the defaults. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration atomically.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	c.Version = CurrentVersion

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return atomic.WriteFile(path, bytes.NewReader(data))
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	def := Default()

	if c.Chunking.Size == 0 {
		c.Chunking.Size = def.Chunking.Size
	}
	if c.Embedding.Provider == "" {
		c.Embedding = def.Embedding
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = def.Embedding.Dimension
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = def.Embedding.BatchSize
	}
	if c.Embedding.MaxConcurrency == 0 {
		c.Embedding.MaxConcurrency = def.Embedding.MaxConcurrency
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = def.Retrieval.TopK
	}
	if c.Store.Dir == "" {
		c.Store.Dir = def.Store.Dir
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = def.Uploads.Dir
	}
	if c.Uploads.Pattern == "" {
		c.Uploads.Pattern = def.Uploads.Pattern
	}
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Models == nil {
		c.Models = make(map[string]ModelConfig)
	}
	for name, m := range def.Models {
		if _, ok := c.Models[name]; !ok {
			c.Models[name] = m
		}
	}
}

func (c *Config) applyEnv() {
	if p := os.Getenv("DOCQA_EMBEDDING_PROVIDER"); p != "" {
		c.Embedding.Provider = p
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" && c.Embedding.Provider == "ollama" && c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = host
	}
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	var errs []error

	if err := chunk.Validate(c.Chunking.Size, c.Chunking.Overlap); err != nil {
		errs = append(errs, fmt.Errorf("chunking: %w", err))
	}

	switch c.Embedding.Provider {
	case "hashing", "ollama", "openai", "google":
	default:
		errs = append(errs, fmt.Errorf("embedding: unknown provider %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding: dimension must be positive, got %d", c.Embedding.Dimension))
	}
	if c.Embedding.BatchSize <= 0 || c.Embedding.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("embedding: batch_size and max_concurrency must be positive"))
	}
	if _, err := c.Embedding.CacheTTL(); err != nil {
		errs = append(errs, fmt.Errorf("embedding: %w", err))
	}

	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval: top_k must be positive, got %d", c.Retrieval.TopK))
	}

	if sameDir(c.Store.Dir, filepath.Dir(c.Catalog.Path)) && c.Catalog.Path != "" {
		errs = append(errs, errors.New("catalog: path must not be inside the index store directory"))
	}

	for name, m := range c.Models {
		switch m.Provider {
		case "openai", "google", "ollama", "anthropic":
		default:
			errs = append(errs, fmt.Errorf("models.%s: unknown provider %q", name, m.Provider))
		}
		if strings.TrimSpace(m.Model) == "" {
			errs = append(errs, fmt.Errorf("models.%s: model is required", name))
		}
	}

	return errors.Join(errs...)
}

// CacheTTL parses QueryCacheTTL. Zero means caching is disabled.
func (e Embedding) CacheTTL() (time.Duration, error) {
	if e.QueryCacheTTL == "" || e.QueryCacheTTL == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(e.QueryCacheTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid query_cache_ttl %q: %w", e.QueryCacheTTL, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("query_cache_ttl must not be negative: %s", e.QueryCacheTTL)
	}
	return d, nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
