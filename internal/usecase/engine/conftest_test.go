package engine

import (
	"context"
	"errors"
	"hash/fnv"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/capability"
	"github.com/kailas-cloud/knowdex/internal/domain/document"
	"github.com/kailas-cloud/knowdex/internal/domain/search/mode"
	"github.com/kailas-cloud/knowdex/internal/domain/search/tokenize"
	"github.com/kailas-cloud/knowdex/internal/repository/memory"
)

const testDim = 16

// --- Mocks ---

// fakeProvider embeds text as a hashed bag of words, so texts sharing
// tokens have similar vectors.
type fakeProvider struct {
	available bool
	err       error
	calls     atomic.Int32
}

func (p *fakeProvider) IsAvailable() bool { return p.available }
func (p *fakeProvider) Dimensions() int   { return testDim }

func (p *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return bagOfWords(text), nil
}

func (p *fakeProvider) Status() domain.ProviderStatus {
	if p.available {
		return domain.ProviderStatus{Available: true, ProviderName: "fake"}
	}
	return domain.ProviderStatus{ProviderName: "fake", Reason: "disabled in test"}
}

func bagOfWords(text string) []float32 {
	v := make([]float32, testDim)
	for _, tok := range tokenize.Tokens(text, nil) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		v[h.Sum32()%testDim]++
	}
	return v
}

// countingStore wraps the in-memory store and counts every call.
type countingStore struct {
	inner *memory.Store

	reads  atomic.Int32
	writes atomic.Int32

	upserts  atomic.Int32
	similar  atomic.Int32
	keywords atomic.Int32
	infos    atomic.Int32
	getAlls  atomic.Int32
	deletes  atomic.Int32
}

func newCountingStore() *countingStore { return &countingStore{inner: memory.New()} }

func (s *countingStore) InitializeCollection(ctx context.Context, dim int) error {
	return s.inner.InitializeCollection(ctx, dim)
}

func (s *countingStore) Upsert(ctx context.Context, doc document.Stored) error {
	s.writes.Add(1)
	s.upserts.Add(1)
	return s.inner.Upsert(ctx, doc)
}

func (s *countingStore) Get(ctx context.Context, id string) (*document.Stored, error) {
	s.reads.Add(1)
	return s.inner.Get(ctx, id)
}

func (s *countingStore) Delete(ctx context.Context, id string) error {
	s.writes.Add(1)
	s.deletes.Add(1)
	return s.inner.Delete(ctx, id)
}

func (s *countingStore) GetAll(ctx context.Context, limit int) ([]document.Stored, error) {
	s.reads.Add(1)
	s.getAlls.Add(1)
	return s.inner.GetAll(ctx, limit)
}

func (s *countingStore) SearchSimilar(
	ctx context.Context, vector []float32, limit int, threshold float64,
) ([]document.Scored, error) {
	s.reads.Add(1)
	s.similar.Add(1)
	return s.inner.SearchSimilar(ctx, vector, limit, threshold)
}

func (s *countingStore) SearchByKeywords(
	ctx context.Context, tokens []string, limit int, threshold float64,
) ([]document.Scored, error) {
	s.reads.Add(1)
	s.keywords.Add(1)
	return s.inner.SearchByKeywords(ctx, tokens, limit, threshold)
}

func (s *countingStore) CollectionInfo(ctx context.Context) (document.Info, error) {
	s.reads.Add(1)
	s.infos.Add(1)
	return s.inner.CollectionInfo(ctx)
}

func (s *countingStore) HealthCheck(ctx context.Context) error { return s.inner.HealthCheck(ctx) }

// stubStore answers searches with canned hits; used for merge-level tests.
type stubStore struct {
	similarHits []document.Scored
	similarErr  error
	keywordHits []document.Scored
	keywordErr  error
	infoErr     error
	all         []document.Stored
	deleted     []string
	onSimilar   func(ctx context.Context)
	onKeywords  func(ctx context.Context)
}

func (s *stubStore) InitializeCollection(context.Context, int) error { return nil }
func (s *stubStore) Upsert(context.Context, document.Stored) error  { return nil }
func (s *stubStore) Get(context.Context, string) (*document.Stored, error) {
	return nil, nil
}

func (s *stubStore) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubStore) GetAll(context.Context, int) ([]document.Stored, error) { return s.all, nil }

func (s *stubStore) SearchSimilar(ctx context.Context, _ []float32, _ int, _ float64) ([]document.Scored, error) {
	if s.onSimilar != nil {
		s.onSimilar(ctx)
	}
	return s.similarHits, s.similarErr
}

func (s *stubStore) SearchByKeywords(ctx context.Context, _ []string, _ int, _ float64) ([]document.Scored, error) {
	if s.onKeywords != nil {
		s.onKeywords(ctx)
	}
	return s.keywordHits, s.keywordErr
}

func (s *stubStore) CollectionInfo(context.Context) (document.Info, error) {
	if s.infoErr != nil {
		return document.Info{}, s.infoErr
	}
	return document.Info{Count: len(s.all)}, nil
}

func (s *stubStore) HealthCheck(context.Context) error { return nil }

// --- Helpers ---

var errProvider = errors.New("provider exploded")

func newCapabilityEngine(
	t *testing.T, store DocumentStore, provider EmbeddingProvider, m mode.Degradation,
) *Engine[capability.Capability] {
	t.Helper()
	e, err := New[capability.Capability](store, provider, capability.Codec{}, Config{
		Collection: "capabilities",
		Mode:       m,
		VectorDim:  testDim,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return e
}

func sqlCapability() capability.Capability {
	return capability.Capability{
		ResourceName: "sql.example.org",
		Capabilities: []string{"postgresql", "database"},
		Providers:    []string{"aws"},
		Description:  "Managed relational database",
		Confidence:   0.9,
	}
}

func bucketCapability() capability.Capability {
	return capability.Capability{
		ResourceName: "bucket.example.org",
		Capabilities: []string{"object", "storage"},
		Providers:    []string{"gcp"},
		Description:  "Blob storage bucket",
		Confidence:   0.7,
	}
}

func payload(name string) map[string]any {
	return map[string]any{"resourceName": name}
}
