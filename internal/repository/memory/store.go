// Package memory is an in-process document store for tests, local runs and
// deployments without a database.
package memory

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/document"
	"github.com/kailas-cloud/knowdex/internal/domain/search/tokenize"
)

// Store keeps one collection in memory. Documents are returned in insertion order.
type Store struct {
	mu          sync.RWMutex
	initialized bool
	dim         int
	order       []string
	docs        map[string]document.Stored
}

// New creates an empty, uninitialized store.
func New() *Store {
	return &Store{docs: make(map[string]document.Stored)}
}

// InitializeCollection fixes the vector dimension.
func (s *Store) InitializeCollection(ctx context.Context, dim int) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // context error
	}
	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		if s.dim != dim {
			return fmt.Errorf("%w: collection has %d, requested %d", domain.ErrDimensionMismatch, s.dim, dim)
		}
		return nil
	}
	s.initialized = true
	s.dim = dim
	return nil
}

// Upsert stores a copy of the document.
func (s *Store) Upsert(ctx context.Context, doc document.Stored) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // context error
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	payload, err := document.Normalize(doc.Payload)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", doc.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return domain.ErrNotInitialized
	}
	if doc.Vector != nil && len(doc.Vector) != s.dim {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(doc.Vector), s.dim)
	}
	if _, exists := s.docs[doc.ID]; !exists {
		s.order = append(s.order, doc.ID)
	}
	s.docs[doc.ID] = document.Stored{ID: doc.ID, Vector: cloneVector(doc.Vector), Payload: payload}
	return nil
}

// Get returns the document or nil.
func (s *Store) Get(ctx context.Context, id string) (*document.Stored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, domain.ErrNotInitialized
	}
	d, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	c := clone(d)
	return &c, nil
}

// Delete removes a document; unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // context error
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return domain.ErrNotInitialized
	}
	if _, ok := s.docs[id]; !ok {
		return nil
	}
	delete(s.docs, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

// GetAll returns up to limit documents. Zero means all.
func (s *Store) GetAll(ctx context.Context, limit int) ([]document.Stored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, domain.ErrNotInitialized
	}
	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]document.Stored, 0, n)
	for _, id := range s.order[:n] {
		out = append(out, clone(s.docs[id]))
	}
	return out, nil
}

// SearchSimilar ranks documents with vectors by cosine similarity clamped to [0, 1].
func (s *Store) SearchSimilar(
	ctx context.Context, vector []float32, limit int, threshold float64,
) ([]document.Scored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, domain.ErrNotInitialized
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query has %d, want %d", domain.ErrDimensionMismatch, len(vector), s.dim)
	}

	var hits []document.Scored
	for _, id := range s.order {
		d := s.docs[id]
		if d.Vector == nil {
			continue
		}
		score := cosine(vector, d.Vector)
		if score < threshold {
			continue
		}
		hits = append(hits, document.Scored{ID: id, Score: score, Payload: d.Payload})
	}
	return topN(hits, limit), nil
}

// SearchByKeywords ranks documents by the share of tokens found in their search text.
func (s *Store) SearchByKeywords(
	ctx context.Context, tokens []string, limit int, threshold float64,
) ([]document.Scored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, domain.ErrNotInitialized
	}

	var hits []document.Scored
	for _, id := range s.order {
		d := s.docs[id]
		score := tokenize.Overlap(tokens, d.SearchText())
		if score == 0 || score < threshold {
			continue
		}
		hits = append(hits, document.Scored{ID: id, Score: score, Payload: d.Payload})
	}
	return topN(hits, limit), nil
}

// CollectionInfo reports the document count and dimension.
func (s *Store) CollectionInfo(ctx context.Context) (document.Info, error) {
	if err := ctx.Err(); err != nil {
		return document.Info{}, err //nolint:wrapcheck // context error
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return document.Info{}, domain.ErrNotInitialized
	}
	return document.Info{Count: len(s.docs), VectorDim: s.dim}, nil
}

// HealthCheck always succeeds.
func (s *Store) HealthCheck(_ context.Context) error { return nil }

// Reset drops every document but keeps the collection initialized.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // context error
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return domain.ErrNotInitialized
	}
	s.docs = make(map[string]document.Stored)
	s.order = nil
	return nil
}

func topN(hits []document.Scored, limit int) []document.Scored {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(0, math.Min(1, sim))
}

func clone(d document.Stored) document.Stored {
	p := make(map[string]any, len(d.Payload))
	for k, v := range d.Payload {
		p[k] = v
	}
	return document.Stored{ID: d.ID, Vector: cloneVector(d.Vector), Payload: p}
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
