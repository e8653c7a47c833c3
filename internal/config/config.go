package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the demo configuration. The database URL is threaded from
// here into the composition root explicitly; nothing reads it from a
// package-level global.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// EmbeddingConfig points at an OpenAI-compatible embeddings endpoint that
// serves the same model family the dataset was embedded with.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SearchConfig holds ranking defaults.
type SearchConfig struct {
	DefaultLimit      int     `yaml:"default_limit"`
	CandidateLimit    int     `yaml:"candidate_limit"`
	RRFK              int     `yaml:"rrf_k"`
	VectorWeight      float64 `yaml:"vector_weight"`
	TextWeight        float64 `yaml:"text_weight"`
	DefaultTimeWindow string  `yaml:"default_time_window"`
}

// HTTPConfig holds serve-mode settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // local, prod (default: local)
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from a YAML file. An empty path yields the
// defaults with DATABASE_URL taken from the environment, which is enough to
// run the demo without a config file at all.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		data = expandEnvVars(data)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

var envVarRe = regexp.MustCompile(`\$\{(\w+)\}`)

// expandEnvVars substitutes ${VAR} references with environment values.
func expandEnvVars(data []byte) []byte {
	return envVarRe.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envVarRe.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func (c *Config) ApplyDefaults() {
	if c.Database.URL == "" {
		c.Database.URL = os.Getenv("DATABASE_URL")
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 4
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "all-mpnet-base-v2"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 60
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 5
	}
	if c.Search.CandidateLimit <= 0 {
		c.Search.CandidateLimit = 20
	}
	if c.Search.RRFK <= 0 {
		c.Search.RRFK = 60
	}
	if c.Search.VectorWeight == 0 && c.Search.TextWeight == 0 {
		c.Search.VectorWeight = 0.5
		c.Search.TextWeight = 0.5
	}
	if c.Search.DefaultTimeWindow == "" {
		c.Search.DefaultTimeWindow = "12 months"
	}
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 15
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "local"
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("database url is required (set database.url or DATABASE_URL)")
	}
	if c.Search.VectorWeight < 0 || c.Search.TextWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	if c.Search.CandidateLimit < c.Search.DefaultLimit {
		return fmt.Errorf("candidate_limit (%d) must be >= default_limit (%d)",
			c.Search.CandidateLimit, c.Search.DefaultLimit)
	}
	return nil
}

// IsTigerCloud reports whether the configured database is a Tiger Cloud
// service, which changes only what the restore tool prints.
func (c *Config) IsTigerCloud() bool {
	return strings.Contains(c.Database.URL, "tsdb.cloud.timescale.com")
}
