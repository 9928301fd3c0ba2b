// Package knowdex is an embeddable hybrid search engine over three knowledge
// stores: resource capabilities, deployment patterns and policy intents.
//
// Every store blends vector similarity with keyword overlap. When no
// embedding provider is reachable a store either falls back to keyword search
// (Graceful) or fails fast (Strict).
//
//	client, err := knowdex.New(
//		knowdex.WithValkey("localhost:6379", ""),
//		knowdex.WithOllama(knowdex.OllamaConfig{Model: "nomic-embed-text", Dimensions: 768}),
//	)
//	if err != nil { ... }
//	defer client.Close()
//	if err := client.Initialize(ctx); err != nil { ... }
//	hits, err := client.Capabilities().Search(ctx, "postgres database", knowdex.SearchOptions[knowdex.Capability]{Limit: 5})
package knowdex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	dbRedis "github.com/kailas-cloud/knowdex/internal/db/redis"
	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/capability"
	"github.com/kailas-cloud/knowdex/internal/domain/pattern"
	"github.com/kailas-cloud/knowdex/internal/domain/policy"
	"github.com/kailas-cloud/knowdex/internal/metrics"
	"github.com/kailas-cloud/knowdex/internal/repository/docstore"
	"github.com/kailas-cloud/knowdex/internal/repository/embcache"
	"github.com/kailas-cloud/knowdex/internal/repository/memory"
	qdrantrepo "github.com/kailas-cloud/knowdex/internal/repository/qdrant"
	ollamaTransport "github.com/kailas-cloud/knowdex/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/knowdex/internal/transport/openai"
	"github.com/kailas-cloud/knowdex/internal/usecase/embedding"
	"github.com/kailas-cloud/knowdex/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/knowdex/internal/usecase/health"
)

// StoreName identifies one of the three knowledge stores.
type StoreName string

// Store names. They double as default collection names.
const (
	StoreCapabilities StoreName = "capabilities"
	StorePatterns     StoreName = "patterns"
	StorePolicies     StoreName = "policies"
)

var storeNames = []StoreName{StoreCapabilities, StorePatterns, StorePolicies}

// DefaultVectorDimensions sizes collections when no embedder is configured.
const DefaultVectorDimensions = 1536

// Client owns the three knowledge stores and their shared backends.
type Client struct {
	capabilities *engine.Engine[capability.Capability]
	patterns     *engine.Engine[pattern.Pattern]
	policies     *engine.Engine[policy.Intent]

	provider *embedding.Provider
	health   *healthuc.Service
	closers  []func()
	logger   *zap.Logger
}

// New connects to the configured backend and builds the stores.
// Collections are not touched until Initialize.
func New(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.backend == backendNone {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, ErrNoBackend)
	}
	if cfg.registerMetrics {
		metrics.RegisterEmbeddingMetrics()
		metrics.RegisterEngineMetrics()
	}

	c := &Client{logger: cfg.logger}
	stores, cache, err := c.openBackend(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.provider, err = buildProvider(cfg, cache)
	if err != nil {
		c.Close()
		return nil, err
	}

	if err := c.buildEngines(cfg, stores); err != nil {
		c.Close()
		return nil, err
	}

	var embChecker healthuc.Checker
	if c.provider.IsAvailable() {
		embChecker = c.provider
	}
	c.health = healthuc.New(map[string]healthuc.Checker{
		string(StoreCapabilities): c.capabilities,
		string(StorePatterns):     c.patterns,
		string(StorePolicies):     c.policies,
	}, embChecker)

	cfg.logger.Info("knowdex client ready",
		zap.String("backend", string(cfg.backend)),
		zap.String("embedding", c.provider.Status().ProviderName),
		zap.Bool("semantic", c.provider.IsAvailable()),
	)
	return c, nil
}

func (c *Client) openBackend(cfg *clientConfig) (map[StoreName]engine.DocumentStore, *dbRedis.Store, error) {
	stores := make(map[StoreName]engine.DocumentStore, len(storeNames))

	switch cfg.backend {
	case backendRedis, backendValkey:
		flavor := dbRedis.FlavorValkey
		if cfg.backend == backendRedis {
			flavor = dbRedis.FlavorRedis
		}
		rs, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
			DB:       cfg.db,
			Flavor:   flavor,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrStoreConnectivity, err)
		}
		c.closers = append(c.closers, rs.Close)

		if cfg.readinessTimeout > 0 {
			if err := rs.WaitForReady(context.Background(), cfg.readinessTimeout); err != nil {
				return nil, nil, fmt.Errorf("%w: %w", domain.ErrStoreConnectivity, err)
			}
		}

		for _, name := range storeNames {
			ds, err := docstore.New(rs, docstore.Config{
				Collection: cfg.collection(name),
				KeyPrefix:  cfg.keyPrefix,
				HNSW: docstore.HNSWConfig{
					M:           cfg.hnswM,
					EFConstruct: cfg.hnswEFConstruct,
				},
				KeywordCandidates: cfg.keywordCandidates,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("store %s: %w", name, err)
			}
			stores[name] = ds
		}
		return stores, rs, nil

	case backendQdrant:
		qc, err := qdrantrepo.Dial(cfg.qdrant.Host, cfg.qdrant.port(), cfg.qdrant.APIKey, cfg.qdrant.UseTLS)
		if err != nil {
			return nil, nil, err
		}
		c.closers = append(c.closers, func() { _ = qc.Close() })

		for _, name := range storeNames {
			qs, err := qdrantrepo.New(qc, qdrantrepo.Config{
				Collection:        cfg.collection(name),
				Prefix:            strings.ReplaceAll(cfg.keyPrefix, ":", "_"),
				KeywordCandidates: cfg.keywordCandidates,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("store %s: %w", name, err)
			}
			stores[name] = qs
		}
		return stores, nil, nil

	case backendMemory:
		for _, name := range storeNames {
			stores[name] = memory.New()
		}
		return stores, nil, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidConfig, cfg.backend)
}

// buildProvider assembles transport -> cache -> instrumentation -> instruction.
func buildProvider(cfg *clientConfig, cache *dbRedis.Store) (*embedding.Provider, error) {
	var (
		inner domain.Embedder
		name  = cfg.providerName
		model = cfg.model
	)
	switch cfg.embedder {
	case embedderNone:
		return embedding.Disabled("none", cfg.vectorDimensions, "no embedding provider configured"), nil
	case embedderOpenAI:
		e := openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.openai.APIKey,
			BaseURL:    cfg.openai.BaseURL,
			Model:      cfg.openai.Model,
			Dimensions: cfg.openai.Dimensions,
			Provider:   cfg.openai.Name,
			Timeout:    cfg.openai.Timeout,
			Logger:     cfg.logger,
		})
		inner, name, model = e, e.Name(), e.Model()
	case embedderOllama:
		e := ollamaTransport.NewEmbedder(ollamaTransport.Config{
			BaseURL:    cfg.ollama.BaseURL,
			Model:      cfg.ollama.Model,
			Dimensions: cfg.ollama.Dimensions,
			Timeout:    cfg.ollama.Timeout,
			Logger:     cfg.logger,
		})
		inner, name, model = e, e.Name(), e.Model()
	case embedderCustom:
		if cfg.custom == nil {
			return nil, fmt.Errorf("%w: custom embedder is nil", domain.ErrInvalidConfig)
		}
		inner = cfg.custom
	}

	if cfg.cacheEnabled {
		if cache == nil {
			cfg.logger.Warn("Embedding cache needs redis or valkey, running uncached",
				zap.String("backend", string(cfg.backend)))
		} else {
			inner = embcache.New(inner, cache, embcache.Options{
				KeyPrefix: cfg.cachePrefix(),
				Model:     model,
				TTL:       cfg.cacheTTL,
			}, metrics.EmbeddingCacheTotal, cfg.logger)
		}
	}
	inner = embedding.NewInstrumentedEmbedder(inner, name, model, cfg.logger)
	if cfg.instruction != "" {
		inner = domain.NewInstructionEmbedder(inner, cfg.instruction)
	}

	p, err := embedding.NewProvider(inner, name, cfg.dimensions)
	if err != nil {
		return nil, fmt.Errorf("embedding provider %s: %w", name, err)
	}
	return p, nil
}

func (c *Client) buildEngines(cfg *clientConfig, stores map[StoreName]engine.DocumentStore) error {
	engineCfg := func(name StoreName) engine.Config {
		return engine.Config{
			Collection: cfg.collection(name),
			Mode:       cfg.mode(name),
			Weights:    cfg.weights,
			VectorDim:  cfg.vectorDimensions,
		}
	}

	var err error
	c.capabilities, err = engine.New[capability.Capability](
		stores[StoreCapabilities], c.provider, capability.Codec{}, engineCfg(StoreCapabilities), cfg.logger)
	if err != nil {
		return fmt.Errorf("capabilities engine: %w", err)
	}
	c.patterns, err = engine.New[pattern.Pattern](
		stores[StorePatterns], c.provider, pattern.Codec{}, engineCfg(StorePatterns), cfg.logger)
	if err != nil {
		return fmt.Errorf("patterns engine: %w", err)
	}
	c.policies, err = engine.New[policy.Intent](
		stores[StorePolicies], c.provider, policy.Codec{}, engineCfg(StorePolicies), cfg.logger)
	if err != nil {
		return fmt.Errorf("policies engine: %w", err)
	}
	return nil
}

// Initialize creates the three collections concurrently. It is idempotent.
func (c *Client) Initialize(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.capabilities.Initialize(gctx) })
	g.Go(func() error { return c.patterns.Initialize(gctx) })
	g.Go(func() error { return c.policies.Initialize(gctx) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return nil
}

// Capabilities returns the resource capability store.
func (c *Client) Capabilities() *Engine[Capability] { return c.capabilities }

// Patterns returns the deployment pattern store.
func (c *Client) Patterns() *Engine[Pattern] { return c.patterns }

// Policies returns the policy intent store.
func (c *Client) Policies() *Engine[PolicyIntent] { return c.policies }

// SearchModes reports semantic availability per store.
func (c *Client) SearchModes() map[StoreName]SearchMode {
	return map[StoreName]SearchMode{
		StoreCapabilities: c.capabilities.SearchMode(),
		StorePatterns:     c.patterns.SearchMode(),
		StorePolicies:     c.policies.SearchMode(),
	}
}

// EmbeddingStatus reports the configured provider.
func (c *Client) EmbeddingStatus() ProviderStatus { return c.provider.Status() }

// Health checks every store and the embedding provider.
func (c *Client) Health(ctx context.Context) HealthReport { return c.health.Check(ctx) }

// Close releases backend connections. Safe to call more than once.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// ErrNoBackend is returned by New when none of WithRedis, WithValkey,
// WithQdrant or WithMemory was given.
var ErrNoBackend = errors.New("no backend configured")

func (c *clientConfig) collection(name StoreName) string {
	if col, ok := c.collections[name]; ok && col != "" {
		return col
	}
	return string(name)
}

func (c *clientConfig) mode(name StoreName) Degradation {
	if d, ok := c.degradation[name]; ok && d != "" {
		return d
	}
	return Graceful
}

func (c *clientConfig) cachePrefix() string {
	if c.keyPrefix != "" {
		return c.keyPrefix
	}
	return docstore.DefaultKeyPrefix
}

func (q QdrantConfig) port() int {
	if q.Port > 0 {
		return q.Port
	}
	return 6334
}
