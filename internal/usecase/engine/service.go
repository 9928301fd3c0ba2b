// Package engine implements the hybrid search engine shared by every
// knowledge store: records go in through a Codec, come back ranked by a
// blend of vector similarity and keyword overlap.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/document"
	"github.com/kailas-cloud/knowdex/internal/domain/identity"
	"github.com/kailas-cloud/knowdex/internal/domain/search/mode"
	"github.com/kailas-cloud/knowdex/internal/domain/search/result"
	"github.com/kailas-cloud/knowdex/internal/domain/search/tokenize"
	"github.com/kailas-cloud/knowdex/internal/metrics"
)

// Engine stores and searches records of type R in one collection.
// It holds no mutable state and is safe for concurrent use.
type Engine[R any] struct {
	store  DocumentStore
	embed  EmbeddingProvider
	codec  Codec[R]
	cfg    Config
	filter tokenize.Filter
	logger *zap.Logger
}

// New creates an engine. A nil provider means embeddings are not configured.
func New[R any](
	store DocumentStore, embed EmbeddingProvider, codec Codec[R],
	cfg Config, logger *zap.Logger,
) (*Engine[R], error) {
	if store == nil {
		return nil, fmt.Errorf("%w: document store is required", domain.ErrInvalidConfig)
	}
	if codec == nil {
		return nil, fmt.Errorf("%w: codec is required", domain.ErrInvalidConfig)
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if embed == nil {
		embed = noProvider{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	filter := cfg.TokenFilter
	if filter == nil {
		filter = codec.TokenFilter()
	}

	return &Engine[R]{
		store:  store,
		embed:  embed,
		codec:  codec,
		cfg:    cfg,
		filter: filter,
		logger: logger.With(zap.String("collection", cfg.Collection)),
	}, nil
}

// Collection returns the collection name.
func (e *Engine[R]) Collection() string { return e.cfg.Collection }

// Initialize creates the collection sized to the provider's dimension.
// Calling it again with the same dimension is a no-op.
func (e *Engine[R]) Initialize(ctx context.Context) (err error) {
	defer e.observe("initialize", time.Now(), &err)

	dim := e.embed.Dimensions()
	if dim <= 0 {
		dim = e.cfg.VectorDim
	}
	if dim <= 0 {
		return fmt.Errorf("%w: no vector dimension for %s", domain.ErrInvalidConfig, e.cfg.Collection)
	}
	if err = e.store.InitializeCollection(ctx, dim); err != nil {
		return fmt.Errorf("initialize %s: %w", e.cfg.Collection, err)
	}
	e.logger.Info("Collection initialized", zap.Int("dim", dim), zap.String("mode", string(e.cfg.Mode)))
	return nil
}

// Store writes a record, replacing any earlier record with the same natural key.
func (e *Engine[R]) Store(ctx context.Context, rec R) (err error) {
	defer e.observe("store", time.Now(), &err)

	key := e.codec.Identity(rec)
	if key == "" {
		return fmt.Errorf("store: %w: empty natural key", domain.ErrInvalidPayload)
	}
	if v, ok := any(&rec).(Validator); ok {
		if err = v.Validate(); err != nil {
			return fmt.Errorf("store %q: %w: %w", key, domain.ErrInvalidPayload, err)
		}
	}
	id := identity.DeriveID(key)
	text := e.codec.SearchText(rec)

	vector, err := e.embedForStore(ctx, key, text)
	if err != nil {
		return err
	}

	doc := document.New(id, vector, e.codec.Encode(rec), text)
	if err = e.store.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("store %q: %w", key, err)
	}
	return nil
}

func (e *Engine[R]) embedForStore(ctx context.Context, key, text string) ([]float32, error) {
	if !e.embed.IsAvailable() {
		if e.cfg.Mode == mode.Strict {
			return nil, fmt.Errorf("store %q: %w: %s", key, domain.ErrEmbeddingUnavailable, e.embed.Status().Reason)
		}
		e.degraded("store")
		e.logger.Debug("Storing without embedding", zap.String("key", key))
		return nil, nil
	}

	vector, err := e.embed.Embed(ctx, text)
	if err == nil {
		return vector, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("store %q: %w", key, ctxErr)
	}
	if e.cfg.Mode == mode.Strict {
		return nil, fmt.Errorf("store %q: %w: %w", key, domain.ErrEmbeddingGenerationFailed, err)
	}
	e.degraded("store")
	e.logger.Warn("Embedding failed, storing without vector",
		zap.String("key", key),
		zap.Error(err),
	)
	return nil, nil
}

// Get looks a record up by natural key or by document id.
// Canonical UUID input is treated as an id. Returns (nil, nil) when absent.
func (e *Engine[R]) Get(ctx context.Context, keyOrID string) (*result.Entry[R], error) {
	id := keyOrID
	if !identity.IsID(keyOrID) {
		id = identity.DeriveID(keyOrID)
	}

	doc, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", keyOrID, err)
	}
	if doc == nil {
		return nil, nil
	}
	rec, err := e.codec.Decode(doc.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	return &result.Entry[R]{ID: doc.ID, Record: rec}, nil
}

// GetAll returns up to limit records in store order. Zero means all.
func (e *Engine[R]) GetAll(ctx context.Context, limit int) ([]result.Entry[R], error) {
	docs, err := e.store.GetAll(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("get all: %w", err)
	}
	out := make([]result.Entry[R], 0, len(docs))
	for i := range docs {
		rec, err := e.codec.Decode(docs[i].Payload)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", docs[i].ID, err)
		}
		out = append(out, result.Entry[R]{ID: docs[i].ID, Record: rec})
	}
	return out, nil
}

// Delete removes a document by id. Unknown ids are not an error.
func (e *Engine[R]) Delete(ctx context.Context, id string) (err error) {
	defer e.observe("delete", time.Now(), &err)

	if err = e.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// DeleteByKey removes the record stored under a natural key.
func (e *Engine[R]) DeleteByKey(ctx context.Context, key string) error {
	return e.Delete(ctx, identity.DeriveID(key))
}

// Count returns the number of stored records. When the store cannot report
// collection metadata it falls back to counting GetAll.
func (e *Engine[R]) Count(ctx context.Context) (int, error) {
	info, err := e.store.CollectionInfo(ctx)
	if err == nil {
		return info.Count, nil
	}
	if errors.Is(err, domain.ErrNotInitialized) {
		return 0, fmt.Errorf("count: %w", err)
	}

	e.logger.Warn("Count fallback: collection info unavailable", zap.Error(err))
	docs, err := e.store.GetAll(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return len(docs), nil
}

// DeleteAll removes every record from the collection.
func (e *Engine[R]) DeleteAll(ctx context.Context) (err error) {
	defer e.observe("delete_all", time.Now(), &err)

	if r, ok := e.store.(Resetter); ok {
		if err = r.Reset(ctx); err != nil {
			return fmt.Errorf("delete all: %w", err)
		}
		return nil
	}

	docs, err := e.store.GetAll(ctx, 0)
	if err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	for i := range docs {
		if err = e.store.Delete(ctx, docs[i].ID); err != nil {
			return fmt.Errorf("delete all: %s: %w", docs[i].ID, err)
		}
	}
	return nil
}

// SearchMode describes how searches are currently answered.
type SearchMode struct {
	Collection  string                `json:"collection"`
	Semantic    bool                  `json:"semantic"`
	Degradation mode.Degradation      `json:"degradation"`
	Provider    domain.ProviderStatus `json:"provider"`
}

// SearchMode reports whether searches use embeddings right now.
func (e *Engine[R]) SearchMode() SearchMode {
	st := e.embed.Status()
	return SearchMode{
		Collection:  e.cfg.Collection,
		Semantic:    e.embed.IsAvailable(),
		Degradation: e.cfg.Mode,
		Provider:    st,
	}
}

// HealthCheck pings the document store.
func (e *Engine[R]) HealthCheck(ctx context.Context) error {
	if err := e.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%s health: %w", e.cfg.Collection, err)
	}
	return nil
}

func (e *Engine[R]) degraded(op string) {
	metrics.EngineDegradedTotal.WithLabelValues(e.cfg.Collection, op).Inc()
}

func (e *Engine[R]) observe(op string, start time.Time, errp *error) {
	status := "ok"
	if *errp != nil {
		status = "error"
	}
	metrics.EngineOperationsTotal.WithLabelValues(e.cfg.Collection, op, status).Inc()
	metrics.EngineOperationDuration.WithLabelValues(e.cfg.Collection, op).Observe(time.Since(start).Seconds())
}

type noProvider struct{}

func (noProvider) IsAvailable() bool { return false }
func (noProvider) Dimensions() int   { return 0 }
func (noProvider) Embed(context.Context, string) ([]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}
func (noProvider) Status() domain.ProviderStatus {
	return domain.ProviderStatus{ProviderName: "none", Reason: "no embedding provider configured"}
}
