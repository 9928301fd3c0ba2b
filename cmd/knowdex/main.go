package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/knowdex"
	"github.com/kailas-cloud/knowdex/internal/config"
	logpkg "github.com/kailas-cloud/knowdex/internal/logger"
	chiTransport "github.com/kailas-cloud/knowdex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/knowdex/internal/usecase/health"
	"github.com/kailas-cloud/knowdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting knowdex",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	client, err := knowdex.New(clientOptions(cfg, logger)...)
	if err != nil {
		logger.Fatal("Failed to create client", zap.Error(err))
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.Initialize(ctx); err != nil {
		logger.Fatal("Failed to initialize stores", zap.Error(err))
	}
	for name, m := range client.SearchModes() {
		logger.Info("Store ready",
			zap.String("store", string(name)),
			zap.String("collection", m.Collection),
			zap.Bool("semantic", m.Semantic),
			zap.String("degradation", string(m.Degradation)),
		)
	}

	server := chiTransport.NewServer(map[string]chiTransport.StoreReporter{
		string(knowdex.StoreCapabilities): client.Capabilities(),
		string(knowdex.StorePatterns):     client.Patterns(),
		string(knowdex.StorePolicies):     client.Policies(),
	}, healthFunc(client.Health), logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// healthFunc adapts Client.Health to the ops server.
type healthFunc func(ctx context.Context) healthuc.Report

func (f healthFunc) Check(ctx context.Context) healthuc.Report { return f(ctx) }

// clientOptions translates the file config into client options.
func clientOptions(cfg config.Config, logger *zap.Logger) []knowdex.Option {
	db := cfg.Database
	opts := []knowdex.Option{
		knowdex.WithLogger(logger),
		knowdex.WithMetrics(),
		knowdex.WithKeyPrefix(cfg.Storage.KeyPrefix),
		knowdex.WithHNSW(cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct),
		knowdex.WithKeywordCandidates(cfg.Index.KeywordCandidates),
		knowdex.WithWeights(knowdex.Weights{
			Semantic:    cfg.Search.SemanticWeight,
			Keyword:     cfg.Search.KeywordWeight,
			HybridBonus: cfg.Search.HybridBonus,
		}),
	}

	switch db.Driver {
	case config.DriverRedis:
		opts = append(opts,
			knowdex.WithRedis(db.Addrs[0], db.Password),
			knowdex.WithRedisCluster(db.Addrs, db.Username, db.Password, db.DB))
	case config.DriverValkey:
		opts = append(opts,
			knowdex.WithValkey(db.Addrs[0], db.Password),
			knowdex.WithRedisCluster(db.Addrs, db.Username, db.Password, db.DB))
	case config.DriverQdrant:
		opts = append(opts, knowdex.WithQdrant(knowdex.QdrantConfig{
			Host:   db.Qdrant.Host,
			Port:   db.Qdrant.Port,
			APIKey: db.Qdrant.APIKey,
			UseTLS: db.Qdrant.UseTLS,
		}))
	case config.DriverMemory:
		opts = append(opts, knowdex.WithMemory())
	}
	opts = append(opts, knowdex.WithReadinessTimeout(time.Duration(db.ReadinessTimeout)*time.Second))

	emb := cfg.Embedding
	timeout := time.Duration(emb.TimeoutSec) * time.Second
	switch emb.Provider {
	case config.ProviderOpenAI:
		opts = append(opts, knowdex.WithOpenAI(knowdex.OpenAIConfig{
			APIKey:     emb.APIKey,
			BaseURL:    emb.BaseURL,
			Model:      emb.Model,
			Dimensions: emb.Dimensions,
			Name:       emb.Name,
			Timeout:    timeout,
		}))
	case config.ProviderOllama:
		opts = append(opts, knowdex.WithOllama(knowdex.OllamaConfig{
			BaseURL:    emb.BaseURL,
			Model:      emb.Model,
			Dimensions: emb.Dimensions,
			Timeout:    timeout,
		}))
	}
	if emb.Instruction != "" {
		opts = append(opts, knowdex.WithInstruction(emb.Instruction))
	}
	if emb.Cache.Enabled {
		opts = append(opts, knowdex.WithEmbeddingCache(time.Duration(emb.Cache.TTLHour)*time.Hour))
	}

	for name, s := range map[knowdex.StoreName]config.StoreConfig{
		knowdex.StoreCapabilities: cfg.Stores.Capabilities,
		knowdex.StorePatterns:     cfg.Stores.Patterns,
		knowdex.StorePolicies:     cfg.Stores.Policies,
	} {
		opts = append(opts,
			knowdex.WithCollection(name, s.Collection),
			knowdex.WithStoreDegradation(name, knowdex.Degradation(s.Degradation)))
	}
	return opts
}
