package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the knowdex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Stores    StoresConfig    `yaml:"stores"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API keys for the /v1 ops routes.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds ops server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Database drivers.
const (
	DriverRedis  = "redis"
	DriverValkey = "valkey"
	DriverQdrant = "qdrant"
	DriverMemory = "memory"
)

// DatabaseConfig holds document store connection settings.
type DatabaseConfig struct {
	Driver           string       `yaml:"driver"` // redis, valkey, qdrant, memory (default: valkey)
	Addrs            []string     `yaml:"addrs"`
	Username         string       `yaml:"username"`
	Password         string       `yaml:"password"`
	DB               int          `yaml:"db"`
	ReadinessTimeout int          `yaml:"readiness_timeout_sec"`
	Qdrant           QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds Qdrant gRPC settings.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
	// KeywordCandidates caps token matches scored per keyword query.
	KeywordCandidates int `yaml:"keyword_candidates"`
}

// StorageConfig holds key naming settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// EmbeddingConfig selects the embedding provider. An empty provider runs
// every store without embeddings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai, ollama or empty
	Name       string `yaml:"name"`     // metrics label, e.g. "nebius"
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
	// Instruction is prepended to every embedded text, records and queries alike.
	Instruction string      `yaml:"instruction"`
	Cache       CacheConfig `yaml:"cache"`
}

// CacheConfig controls the Redis embedding cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLHour int  `yaml:"ttl_hours"` // 0 = no expiry
}

// SearchConfig holds hybrid ranking weights.
type SearchConfig struct {
	SemanticWeight float64 `yaml:"semantic_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	HybridBonus    float64 `yaml:"hybrid_bonus"`
}

// StoresConfig configures the three knowledge stores.
type StoresConfig struct {
	Capabilities StoreConfig `yaml:"capabilities"`
	Patterns     StoreConfig `yaml:"patterns"`
	Policies     StoreConfig `yaml:"policies"`
}

// StoreConfig configures one store.
type StoreConfig struct {
	Collection  string `yaml:"collection"`
	Degradation string `yaml:"degradation"` // strict, graceful
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML with ${VAR} expansion, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 9090
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.Qdrant.Port == 0 {
		c.Database.Qdrant.Port = 6334
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.KeywordCandidates <= 0 {
		c.Index.KeywordCandidates = 1000
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "knowdex:"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Embedding.Name == "" {
		c.Embedding.Name = c.Embedding.Provider
	}
	if c.Search == (SearchConfig{}) {
		c.Search = SearchConfig{SemanticWeight: 1.0, KeywordWeight: 0.6, HybridBonus: 0.1}
	}
	for _, s := range []struct {
		cfg  *StoreConfig
		name string
	}{
		{&c.Stores.Capabilities, "capabilities"},
		{&c.Stores.Patterns, "patterns"},
		{&c.Stores.Policies, "policies"},
	} {
		if s.cfg.Collection == "" {
			s.cfg.Collection = s.name
		}
		if s.cfg.Degradation == "" {
			s.cfg.Degradation = "graceful"
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverQdrant:
		if c.Database.Qdrant.Host == "" {
			return fmt.Errorf("database.qdrant.host is required for driver %q", DriverQdrant)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of redis, valkey, qdrant, memory, got %q", c.Database.Driver)
	}

	switch c.Embedding.Provider {
	case "":
	case ProviderOpenAI, ProviderOllama:
		if c.Embedding.Dimensions <= 0 {
			return fmt.Errorf("embedding.dimensions is required for provider %q", c.Embedding.Provider)
		}
	default:
		return fmt.Errorf("embedding.provider must be \"openai\", \"ollama\" or empty, got %q", c.Embedding.Provider)
	}
	if c.Embedding.Cache.Enabled && c.Database.Driver != DriverRedis && c.Database.Driver != DriverValkey {
		return fmt.Errorf("embedding.cache requires a redis or valkey database, got %q", c.Database.Driver)
	}

	if c.Search.SemanticWeight < 0 || c.Search.KeywordWeight < 0 || c.Search.HybridBonus < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	if c.Search.SemanticWeight < 1 {
		return fmt.Errorf("search.semantic_weight must be at least 1, got %v", c.Search.SemanticWeight)
	}

	for name, s := range map[string]StoreConfig{
		"capabilities": c.Stores.Capabilities,
		"patterns":     c.Stores.Patterns,
		"policies":     c.Stores.Policies,
	} {
		switch s.Degradation {
		case "strict", "graceful":
		default:
			return fmt.Errorf("stores.%s.degradation must be \"strict\" or \"graceful\", got %q", name, s.Degradation)
		}
	}
	if c.Stores.Capabilities.Collection == c.Stores.Patterns.Collection ||
		c.Stores.Capabilities.Collection == c.Stores.Policies.Collection ||
		c.Stores.Patterns.Collection == c.Stores.Policies.Collection {
		return fmt.Errorf("stores must use distinct collections")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
