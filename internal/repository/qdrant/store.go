// Package qdrant implements the engine's document store on a Qdrant
// collection with one named dense vector and a keyword index on tokens.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/knowdex/internal/db"
	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/document"
	"github.com/kailas-cloud/knowdex/internal/domain/search/tokenize"
)

// client is the subset of *qdrant.Client the store uses.
//
//nolint:interfacebloat // collection lifecycle + points + search
type client interface {
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	GetCollectionInfo(ctx context.Context, name string) (*qdrant.CollectionInfo, error)
	DeleteCollection(ctx context.Context, name string) error
	CreateFieldIndex(ctx context.Context, req *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Get(ctx context.Context, req *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error)
	Delete(ctx context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Scroll(ctx context.Context, req *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Count(ctx context.Context, req *qdrant.CountPoints) (uint64, error)
}

// Defaults.
const (
	DefaultPrefix     = "knowdex_"
	DefaultVectorName = "dense"

	defaultKeywordCandidates = 1000
	scrollPageSize           = 256
)

// Config configures one collection.
type Config struct {
	Collection string
	// Prefix is prepended to Collection to form the Qdrant collection name.
	Prefix     string
	VectorName string
	// KeywordCandidates caps how many token matches are scored per keyword query.
	KeywordCandidates int
}

// Store is a DocumentStore over one Qdrant collection.
type Store struct {
	client client
	cfg    Config
	name   string
	dim    atomic.Int64
}

// New creates a store. c is usually a *qdrant.Client.
func New(c client, cfg Config) (*Store, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.VectorName == "" {
		cfg.VectorName = DefaultVectorName
	}
	if cfg.KeywordCandidates <= 0 {
		cfg.KeywordCandidates = defaultKeywordCandidates
	}
	if !db.IsValidIdentifier(cfg.Collection) {
		return nil, fmt.Errorf("%w: invalid collection name %q", domain.ErrInvalidConfig, cfg.Collection)
	}
	return &Store{client: c, cfg: cfg, name: cfg.Prefix + cfg.Collection}, nil
}

// Dial connects to Qdrant over gRPC.
func Dial(host string, port int, apiKey string, useTLS bool) (*qdrant.Client, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant %s:%d: %w", domain.ErrStoreConnectivity, host, port, err)
	}
	return c, nil
}

// InitializeCollection creates the collection and its token index, or checks
// that an existing one has the requested dimension.
func (s *Store) InitializeCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidConfig)
	}

	exists, err := s.client.CollectionExists(ctx, s.name)
	if err != nil {
		return s.backendErr("collection exists", err)
	}

	if exists {
		info, err := s.client.GetCollectionInfo(ctx, s.name)
		if err != nil {
			return s.backendErr("collection info", err)
		}
		params := info.GetConfig().GetParams().GetVectorsConfig().GetParamsMap().GetMap()[s.cfg.VectorName]
		if params == nil {
			return fmt.Errorf("%w: collection %s has no vector %q",
				domain.ErrDimensionMismatch, s.name, s.cfg.VectorName)
		}
		if int(params.GetSize()) != dim {
			return fmt.Errorf("%w: collection %s has %d, requested %d",
				domain.ErrDimensionMismatch, s.name, params.GetSize(), dim)
		}
		s.dim.Store(int64(dim))
		return nil
	}

	if err := s.create(ctx, dim); err != nil {
		return err
	}
	s.dim.Store(int64(dim))
	return nil
}

func (s *Store) create(ctx context.Context, dim int) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			s.cfg.VectorName: {Size: uint64(dim), Distance: qdrant.Distance_Cosine},
		}),
	})
	if err != nil {
		return s.backendErr("create collection", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.name,
		Wait:           qdrant.PtrOf(true),
		FieldName:      payloadTokens,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		cleanupErr := s.client.DeleteCollection(ctx, s.name)
		return errors.Join(s.backendErr("create token index", err), cleanupErr)
	}
	return nil
}

// Upsert replaces the point for doc.ID.
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

	point, err := toPoint(doc, s.cfg.VectorName, tokenize.Tokens(doc.SearchText(), nil))
	if err != nil {
		return err
	}
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.name,
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return s.backendErr("upsert "+doc.ID, err)
	}
	return nil
}

// Get returns the document or nil.
func (s *Store) Get(ctx context.Context, id string) (*document.Stored, error) {
	if _, err := s.ready(); err != nil {
		return nil, err
	}
	pid, _ := pointID(id)
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.name,
		Ids:            []*qdrant.PointId{pid},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, s.backendErr("get "+id, err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	doc := fromRetrieved(points[0], s.cfg.VectorName)
	return &doc, nil
}

// Delete removes a document; unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.ready(); err != nil {
		return err
	}
	pid, _ := pointID(id)
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.name,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pid),
	})
	if err != nil {
		return s.backendErr("delete "+id, err)
	}
	return nil
}

// GetAll scrolls the collection. Zero limit means all documents.
func (s *Store) GetAll(ctx context.Context, limit int) ([]document.Stored, error) {
	if _, err := s.ready(); err != nil {
		return nil, err
	}

	var (
		out    []document.Stored
		offset *qdrant.PointId
	)
	for {
		page := scrollPageSize
		if limit > 0 {
			page = min(page, limit-len(out))
		}
		// one extra point tells whether another page exists and where it starts
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.name,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(page + 1)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, s.backendErr("scroll", err)
		}

		more := len(points) > page
		if more {
			offset = points[page].GetId()
			points = points[:page]
		}
		for _, p := range points {
			out = append(out, fromRetrieved(p, s.cfg.VectorName))
		}
		if !more || (limit > 0 && len(out) >= limit) {
			return out, nil
		}
	}
}

// SearchSimilar runs a nearest-neighbour query on the dense vector.
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

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.name,
		Query:          qdrant.NewQuery(vector...),
		Using:          qdrant.PtrOf(s.cfg.VectorName),
		Limit:          qdrant.PtrOf(uint64(limit)),
		ScoreThreshold: qdrant.PtrOf(float32(threshold)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, s.backendErr("query", err)
	}

	hits := make([]document.Scored, 0, len(points))
	for _, p := range points {
		hit := fromScored(p)
		hit.Score = min(1, max(0, hit.Score))
		if hit.Score < threshold {
			continue
		}
		hits = append(hits, hit)
	}
	return rank(hits, limit), nil
}

// SearchByKeywords scrolls points sharing a token with the query and scores
// them by the share of query tokens found in their search text.
func (s *Store) SearchByKeywords(
	ctx context.Context, tokens []string, limit int, threshold float64,
) ([]document.Scored, error) {
	if _, err := s.ready(); err != nil {
		return nil, err
	}
	if len(tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.name,
		Filter: &qdrant.Filter{
			Should: []*qdrant.Condition{qdrant.NewMatchKeywords(payloadTokens, tokens...)},
		},
		Limit:       qdrant.PtrOf(uint32(s.cfg.KeywordCandidates)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, s.backendErr("keyword scroll", err)
	}

	hits := make([]document.Scored, 0, len(points))
	for _, p := range points {
		doc := fromRetrieved(p, s.cfg.VectorName)
		score := tokenize.Overlap(tokens, doc.SearchText())
		if score == 0 || score < threshold {
			continue
		}
		hits = append(hits, document.Scored{ID: doc.ID, Score: score, Payload: doc.Payload})
	}
	return rank(hits, limit), nil
}

// CollectionInfo reports the exact point count and dimension.
func (s *Store) CollectionInfo(ctx context.Context) (document.Info, error) {
	dim, err := s.ready()
	if err != nil {
		return document.Info{}, err
	}
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return document.Info{}, s.backendErr("count", err)
	}
	return document.Info{Count: int(n), VectorDim: dim}, nil
}

// HealthCheck calls the Qdrant health endpoint.
func (s *Store) HealthCheck(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return s.backendErr("health", err)
	}
	return nil
}

// Reset drops and recreates the collection.
func (s *Store) Reset(ctx context.Context) error {
	dim, err := s.ready()
	if err != nil {
		return err
	}
	if err := s.client.DeleteCollection(ctx, s.name); err != nil {
		return s.backendErr("drop collection", err)
	}
	return s.create(ctx, dim)
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
		return fmt.Errorf("%s %s: %w", s.name, op, err)
	}
	return fmt.Errorf("%w: %s %s: %w", domain.ErrStoreConnectivity, s.name, op, err)
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
