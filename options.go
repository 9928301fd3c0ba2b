package knowdex

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type backend string

const (
	backendNone   backend = ""
	backendRedis  backend = "redis"
	backendValkey backend = "valkey"
	backendQdrant backend = "qdrant"
	backendMemory backend = "memory"
)

type embedderKind string

const (
	embedderNone   embedderKind = ""
	embedderOpenAI embedderKind = "openai"
	embedderOllama embedderKind = "ollama"
	embedderCustom embedderKind = "custom"
)

type clientConfig struct {
	backend          backend
	addrs            []string
	username         string
	password         string
	db               int
	readinessTimeout time.Duration
	qdrant           QdrantConfig

	embedder     embedderKind
	openai       OpenAIConfig
	ollama       OllamaConfig
	custom       Embedder
	providerName string
	model        string
	dimensions   int
	instruction  string
	cacheEnabled bool
	cacheTTL     time.Duration

	keyPrefix         string
	hnswM             int
	hnswEFConstruct   int
	keywordCandidates int
	vectorDimensions  int

	weights     Weights
	degradation map[StoreName]Degradation
	collections map[StoreName]string

	logger          *zap.Logger
	registerMetrics bool
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		readinessTimeout: 10 * time.Second,
		vectorDimensions: DefaultVectorDimensions,
		degradation:      map[StoreName]Degradation{},
		collections:      map[StoreName]string{},
		logger:           zap.NewNop(),
	}
}

// QdrantConfig holds Qdrant gRPC connection settings.
type QdrantConfig struct {
	Host   string
	Port   int // default 6334
	APIKey string
	UseTLS bool
}

// OpenAIConfig configures an OpenAI-compatible embeddings API.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions of the returned vectors. Required.
	Dimensions int
	// Name labels metrics and logs, e.g. "nebius". Defaults to "openai".
	Name    string
	Timeout time.Duration
}

// OllamaConfig configures a local Ollama server.
type OllamaConfig struct {
	BaseURL string
	Model   string
	// Dimensions of the returned vectors. Required.
	Dimensions int
	Timeout    time.Duration
}

// WithRedis stores documents in Redis 8+ with the query engine.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = backendRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey stores documents in Valkey with valkey-search.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = backendValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisCluster sets every seed address, credentials and logical DB for
// Redis or Valkey. It keeps the flavor picked by WithRedis or WithValkey and
// defaults to Valkey.
func WithRedisCluster(addrs []string, username, password string, db int) Option {
	return optionFunc(func(c *clientConfig) {
		if c.backend != backendRedis {
			c.backend = backendValkey
		}
		c.addrs = append([]string(nil), addrs...)
		c.username = username
		c.password = password
		c.db = db
	})
}

// WithReadinessTimeout bounds how long New waits for Redis or Valkey to answer PING.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithQdrant stores documents in Qdrant.
func WithQdrant(cfg QdrantConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = backendQdrant
		c.qdrant = cfg
	})
}

// WithMemory keeps documents in process memory. Useful for tests and demos.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = backendMemory
	})
}

// WithOpenAI embeds through an OpenAI-compatible API.
func WithOpenAI(cfg OpenAIConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = embedderOpenAI
		c.openai = cfg
		c.providerName = cfg.Name
		c.model = cfg.Model
		c.dimensions = cfg.Dimensions
	})
}

// WithOllama embeds through a local Ollama server.
func WithOllama(cfg OllamaConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = embedderOllama
		c.ollama = cfg
		c.providerName = "ollama"
		c.model = cfg.Model
		c.dimensions = cfg.Dimensions
	})
}

// WithEmbedder plugs in a custom embedder producing dims-sized vectors.
func WithEmbedder(name string, e Embedder, dims int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = embedderCustom
		c.custom = e
		c.providerName = name
		c.model = name
		c.dimensions = dims
	})
}

// WithInstruction prepends text to everything that gets embedded.
func WithInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.instruction = instruction
	})
}

// WithEmbeddingCache caches embeddings in Redis or Valkey. Zero ttl never expires.
// Ignored for other backends.
func WithEmbeddingCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheEnabled = true
		c.cacheTTL = ttl
	})
}

// WithKeyPrefix namespaces Redis keys and Qdrant collections.
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithKeywordCandidates caps how many token matches each keyword query scores.
func WithKeywordCandidates(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.keywordCandidates = n
	})
}

// WithVectorDimensions sizes collections when no embedder is configured.
// Defaults to 1536 (text-embedding-3-small).
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithWeights overrides the hybrid ranking weights of every store.
func WithWeights(w Weights) Option {
	return optionFunc(func(c *clientConfig) {
		c.weights = w
	})
}

// WithDegradation sets the degradation mode of every store.
func WithDegradation(d Degradation) Option {
	return optionFunc(func(c *clientConfig) {
		for _, s := range storeNames {
			c.degradation[s] = d
		}
	})
}

// WithStoreDegradation sets the degradation mode of one store.
func WithStoreDegradation(store StoreName, d Degradation) Option {
	return optionFunc(func(c *clientConfig) {
		c.degradation[store] = d
	})
}

// WithCollection renames the collection backing one store.
func WithCollection(store StoreName, collection string) Option {
	return optionFunc(func(c *clientConfig) {
		c.collections[store] = collection
	})
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		if l != nil {
			c.logger = l
		}
	})
}

// WithMetrics registers embedding and engine metrics on the default
// Prometheus registry.
func WithMetrics() Option {
	return optionFunc(func(c *clientConfig) {
		c.registerMetrics = true
	})
}
