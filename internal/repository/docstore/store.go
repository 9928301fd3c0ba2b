// Package docstore implements the engine's document store on Redis 8+ or
// Valkey hashes with an FT index for KNN and token lookups.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/knowdex/internal/db"
	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/document"
	"github.com/kailas-cloud/knowdex/internal/domain/search/tokenize"
)

// store is the consumer interface for the document store (ISP).
//
//nolint:interfacebloat // documents + index lifecycle + search live in one collection
type store interface {
	Ping(ctx context.Context) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HReplace(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchTags(ctx context.Context, q *db.TagQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "knowdex:"

const (
	defaultKeywordCandidates = 1000
	listPageSize             = 500
)

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Config configures one collection.
type Config struct {
	Collection string
	KeyPrefix  string
	HNSW       HNSWConfig
	// KeywordCandidates caps how many token matches are scored per keyword query.
	KeywordCandidates int
}

// Store is a DocumentStore over one collection.
type Store struct {
	store store
	cfg   Config
	dim   atomic.Int64 // zero until InitializeCollection succeeds
}

// New creates a store for cfg.Collection.
func New(s store, cfg Config) (*Store, error) {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.HNSW.M <= 0 {
		cfg.HNSW.M = 16
	}
	if cfg.HNSW.EFConstruct <= 0 {
		cfg.HNSW.EFConstruct = 200
	}
	if cfg.KeywordCandidates <= 0 {
		cfg.KeywordCandidates = defaultKeywordCandidates
	}
	if !db.IsValidIdentifier(cfg.Collection) || strings.Contains(cfg.Collection, ":") {
		return nil, fmt.Errorf("%w: invalid collection name %q", domain.ErrInvalidConfig, cfg.Collection)
	}
	// metadata hashes live under <prefix>collection:
	if cfg.Collection == "collection" {
		return nil, fmt.Errorf("%w: collection name %q is reserved", domain.ErrInvalidConfig, cfg.Collection)
	}
	return &Store{store: s, cfg: cfg}, nil
}

// InitializeCollection records the collection metadata and creates the FT index.
// Re-initializing with the same dimension is a no-op.
func (s *Store) InitializeCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidConfig)
	}

	meta, err := s.store.HGetAll(ctx, s.metaKey())
	if err != nil {
		return s.backendErr("hgetall collection", err)
	}

	if len(meta) > 0 {
		stored, err := strconv.Atoi(meta[metaVectorDim])
		if err != nil {
			return fmt.Errorf("%w: collection %s has vector_dim %q", domain.ErrInvalidPayload, s.cfg.Collection, meta[metaVectorDim])
		}
		if stored != dim {
			return fmt.Errorf("%w: collection %s has %d, requested %d",
				domain.ErrDimensionMismatch, s.cfg.Collection, stored, dim)
		}
		if err := s.ensureIndex(ctx, dim); err != nil {
			return err
		}
		s.dim.Store(int64(dim))
		return nil
	}

	// HSET metadata, then FT.CREATE; roll back the HSET if the index fails.
	if err := s.store.HSet(ctx, s.metaKey(), collectionToHash(s.cfg.Collection, dim, time.Now())); err != nil {
		return s.backendErr("hset collection", err)
	}
	if err := s.createIndex(ctx, dim); err != nil {
		cleanupErr := s.store.Del(ctx, s.metaKey())
		return errors.Join(err, cleanupErr)
	}

	s.dim.Store(int64(dim))
	return nil
}

func (s *Store) ensureIndex(ctx context.Context, dim int) error {
	exists, err := s.store.IndexExists(ctx, s.indexName())
	if err != nil {
		return s.backendErr("check index", err)
	}
	if exists {
		return nil
	}
	return s.createIndex(ctx, dim)
}

func (s *Store) createIndex(ctx context.Context, dim int) error {
	def, err := buildIndex(s.indexName(), s.docPrefix(), dim, s.cfg.HNSW)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := s.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return s.backendErr("create index", err)
	}
	return nil
}

// Upsert writes the document hash, replacing any previous version.
func (s *Store) Upsert(ctx context.Context, doc document.Stored) error {
	dim, err := s.ready()
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	if doc.Vector != nil && len(doc.Vector) != dim {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(doc.Vector), dim)
	}

	fields, err := toHash(doc)
	if err != nil {
		return err
	}

	// The old hash goes with the write: a stale vector must never sit next to hasEmbedding=false.
	key := s.docKey(doc.ID)
	if err := s.store.HReplace(ctx, key, fields); err != nil {
		return s.backendErr("replace "+key, err)
	}
	return nil
}

// Get returns the document or nil.
func (s *Store) Get(ctx context.Context, id string) (*document.Stored, error) {
	if _, err := s.ready(); err != nil {
		return nil, err
	}
	key := s.docKey(id)
	m, err := s.store.HGetAll(ctx, key)
	if err != nil {
		return nil, s.backendErr("hgetall "+key, err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	doc, err := fromHash(id, m)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes a document; unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.ready(); err != nil {
		return err
	}
	key := s.docKey(id)
	if err := s.store.Del(ctx, key); err != nil {
		return s.backendErr("del "+key, err)
	}
	return nil
}

// GetAll returns up to limit documents. Zero means all.
func (s *Store) GetAll(ctx context.Context, limit int) ([]document.Stored, error) {
	if _, err := s.ready(); err != nil {
		return nil, err
	}

	var out []document.Stored
	for offset := 0; ; offset += listPageSize {
		page := listPageSize
		if limit > 0 {
			page = min(page, limit-len(out))
		}
		res, err := s.store.SearchList(ctx, s.indexName(), "*", offset, page, nil)
		if err != nil {
			return nil, s.backendErr("list", err)
		}
		for _, e := range res.Entries {
			doc, err := fromHash(s.idFromKey(e.Key), e.Fields)
			if err != nil {
				return nil, err
			}
			out = append(out, doc)
		}
		if len(res.Entries) < page || (limit > 0 && len(out) >= limit) {
			break
		}
	}
	return out, nil
}

// SearchSimilar runs a KNN query and drops hits below threshold.
func (s *Store) SearchSimilar(
	ctx context.Context, vector []float32, limit int, threshold float64,
) ([]document.Scored, error) {
	dim, err := s.ready()
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d, want %d", domain.ErrDimensionMismatch, len(vector), dim)
	}
	if limit <= 0 {
		return nil, nil
	}

	res, err := s.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    s.indexName(),
		Field:        vectorAlias,
		Vector:       vector,
		K:            limit,
		ReturnFields: []string{fieldPayload},
	})
	if err != nil {
		return nil, s.backendErr("knn", err)
	}

	hits := make([]document.Scored, 0, len(res.Entries))
	for _, e := range res.Entries {
		if e.Score < threshold {
			continue
		}
		payload, err := decodePayload(e.Fields[fieldPayload])
		if err != nil {
			return nil, err
		}
		hits = append(hits, document.Scored{ID: s.idFromKey(e.Key), Score: e.Score, Payload: payload})
	}
	return rank(hits, limit), nil
}

// SearchByKeywords fetches documents sharing a token with the query and
// scores them by the share of query tokens found in their search text.
func (s *Store) SearchByKeywords(
	ctx context.Context, tokens []string, limit int, threshold float64,
) ([]document.Scored, error) {
	if _, err := s.ready(); err != nil {
		return nil, err
	}
	if len(tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	res, err := s.store.SearchTags(ctx, &db.TagQuery{
		IndexName:    s.indexName(),
		Field:        fieldTokens,
		Tags:         tokens,
		Limit:        s.cfg.KeywordCandidates,
		ReturnFields: []string{fieldPayload, fieldText},
	})
	if err != nil {
		return nil, s.backendErr("tag search", err)
	}

	hits := make([]document.Scored, 0, len(res.Entries))
	for _, e := range res.Entries {
		score := tokenize.Overlap(tokens, e.Fields[fieldText])
		if score == 0 || score < threshold {
			continue
		}
		payload, err := decodePayload(e.Fields[fieldPayload])
		if err != nil {
			return nil, err
		}
		hits = append(hits, document.Scored{ID: s.idFromKey(e.Key), Score: score, Payload: payload})
	}
	return rank(hits, limit), nil
}

// CollectionInfo reports the document count and dimension.
func (s *Store) CollectionInfo(ctx context.Context) (document.Info, error) {
	dim, err := s.ready()
	if err != nil {
		return document.Info{}, err
	}
	n, err := s.store.SearchCount(ctx, s.indexName(), "*")
	if err != nil {
		return document.Info{}, s.backendErr("count", err)
	}
	return document.Info{Count: n, VectorDim: dim}, nil
}

// HealthCheck pings the server.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return s.backendErr("ping", err)
	}
	return nil
}

// Reset deletes every document of the collection. Metadata and index stay.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.ready(); err != nil {
		return err
	}
	keys, err := s.store.Scan(ctx, s.docPrefix()+"*")
	if err != nil {
		return s.backendErr("scan", err)
	}
	if err := s.store.DelMulti(ctx, keys); err != nil {
		return s.backendErr("del", err)
	}
	return nil
}

func (s *Store) ready() (int, error) {
	dim := int(s.dim.Load())
	if dim == 0 {
		return 0, domain.ErrNotInitialized
	}
	return dim, nil
}

func (s *Store) backendErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", s.cfg.Collection, op, err)
	}
	return fmt.Errorf("%w: %s %s: %w", domain.ErrStoreConnectivity, s.cfg.Collection, op, err)
}

func rank(hits []document.Scored, limit int) []document.Scored {
	slices.SortStableFunc(hits, func(a, b document.Scored) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Key patterns: knowdex:collection:{name}, knowdex:{name}:idx, knowdex:{name}:{id}

func (s *Store) metaKey() string   { return s.cfg.KeyPrefix + "collection:" + s.cfg.Collection }
func (s *Store) indexName() string { return s.cfg.KeyPrefix + s.cfg.Collection + ":idx" }
func (s *Store) docPrefix() string { return s.cfg.KeyPrefix + s.cfg.Collection + ":" }

func (s *Store) docKey(id string) string { return s.docPrefix() + id }

func (s *Store) idFromKey(key string) string { return strings.TrimPrefix(key, s.docPrefix()) }
