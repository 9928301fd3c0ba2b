package engine

import (
	"context"

	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/document"
	"github.com/kailas-cloud/knowdex/internal/domain/search/tokenize"
)

// DocumentStore persists documents of a single collection and answers
// similarity and keyword queries over them.
//
// Every method except InitializeCollection and HealthCheck returns
// domain.ErrNotInitialized until InitializeCollection succeeded.
// Get returns (nil, nil) for an unknown id; Delete of an unknown id is a no-op.
// Scores are normalized to [0, 1]. Keyword scores are the fraction of query
// tokens present in the document's search text; non-matching documents are
// never returned.
type DocumentStore interface {
	InitializeCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, doc document.Stored) error
	Get(ctx context.Context, id string) (*document.Stored, error)
	Delete(ctx context.Context, id string) error
	GetAll(ctx context.Context, limit int) ([]document.Stored, error)
	SearchSimilar(ctx context.Context, vector []float32, limit int, threshold float64) ([]document.Scored, error)
	SearchByKeywords(ctx context.Context, tokens []string, limit int, threshold float64) ([]document.Scored, error)
	CollectionInfo(ctx context.Context) (document.Info, error)
	HealthCheck(ctx context.Context) error
}

// Resetter is implemented by stores that can purge a collection in bulk.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Validator is implemented by records that can reject themselves before a write.
// Store checks it on a pointer to the record.
type Validator interface {
	Validate() error
}

// EmbeddingProvider turns text into vectors of a fixed dimension.
type EmbeddingProvider interface {
	IsAvailable() bool
	Dimensions() int
	Embed(ctx context.Context, text string) ([]float32, error)
	Status() domain.ProviderStatus
}

// Codec adapts a record type to the engine. All methods must be pure.
type Codec[R any] interface {
	SearchText(r R) string
	Identity(r R) string
	Encode(r R) map[string]any
	Decode(payload map[string]any) (R, error)
	TokenFilter() tokenize.Filter
}
