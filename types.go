package knowdex

import (
	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/capability"
	"github.com/kailas-cloud/knowdex/internal/domain/pattern"
	"github.com/kailas-cloud/knowdex/internal/domain/policy"
	"github.com/kailas-cloud/knowdex/internal/domain/search/mode"
	"github.com/kailas-cloud/knowdex/internal/domain/search/request"
	"github.com/kailas-cloud/knowdex/internal/domain/search/result"
	"github.com/kailas-cloud/knowdex/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/knowdex/internal/usecase/health"
)

// Records.
type (
	// Capability describes what an infrastructure resource kind can do.
	Capability = capability.Capability
	// Complexity is the operational complexity of a resource.
	Complexity = capability.Complexity
	// Pattern is a reusable deployment recipe.
	Pattern = pattern.Pattern
	// PolicyIntent is an organizational policy intent.
	PolicyIntent = policy.Intent
	// Enforcement tells whether an intent is guidance or a hard rule.
	Enforcement = policy.Enforcement
	// DeployedPolicy is a concrete policy generated from an intent.
	DeployedPolicy = policy.Deployed
)

// Complexity levels.
const (
	ComplexityLow    = capability.Low
	ComplexityMedium = capability.Medium
	ComplexityHigh   = capability.High
)

// Enforcement levels.
const (
	Advisory = policy.Advisory
	Enforced = policy.Enforced
)

// Search.
type (
	// Engine stores and searches one kind of record.
	Engine[R any] = engine.Engine[R]
	// SearchOptions controls a single search.
	SearchOptions[R any] = request.Options[R]
	// Filter is a record predicate applied after ranking.
	Filter[R any] = request.Filter[R]
	// Result is one search hit.
	Result[R any] = result.Result[R]
	// Entry is a stored record with its document id.
	Entry[R any] = result.Entry[R]
	// MatchType tells which retrieval methods produced a hit.
	MatchType = mode.MatchType
	// Degradation decides what happens when embeddings are unavailable.
	Degradation = mode.Degradation
	// Weights shape the merged hybrid score.
	Weights = engine.Weights
	// SearchMode describes a store's semantic search availability.
	SearchMode = engine.SearchMode
)

// Match types.
const (
	MatchHybrid   = mode.Hybrid
	MatchSemantic = mode.Semantic
	MatchKeyword  = mode.Keyword
)

// Degradation modes.
const (
	Strict   = mode.Strict
	Graceful = mode.Graceful
)

// DefaultWeights returns the default hybrid ranking weights.
func DefaultWeights() Weights { return engine.DefaultWeights() }

// Embedding.
type (
	// Embedder turns text into a vector.
	Embedder = domain.Embedder
	// EmbeddingResult is an embedding plus token usage.
	EmbeddingResult = domain.EmbeddingResult
	// ProviderStatus reports whether semantic search is possible.
	ProviderStatus = domain.ProviderStatus
)

// Health.
type (
	// HealthReport is the outcome of a health check across stores and the embedder.
	HealthReport = healthuc.Report
	// HealthStatus is the overall health verdict.
	HealthStatus = healthuc.Status
)

// Capability filters.
var (
	CapabilityByComplexity  = capability.ByComplexity
	CapabilityByProvider    = capability.ByProvider
	CapabilityMinConfidence = capability.MinConfidence
)

// Pattern filters.
var (
	PatternByTrigger        = pattern.ByTrigger
	PatternSuggestsResource = pattern.SuggestsResource
)

// Policy intent filters.
var (
	PolicyByEnforcement  = policy.ByEnforcement
	PolicyByTrigger      = policy.ByTrigger
	PolicyHasDeployments = policy.HasDeployments
)

// Errors returned by the engines. Match them with errors.Is.
var (
	ErrNotInitialized            = domain.ErrNotInitialized
	ErrDimensionMismatch         = domain.ErrDimensionMismatch
	ErrEmbeddingUnavailable      = domain.ErrEmbeddingUnavailable
	ErrEmbeddingGenerationFailed = domain.ErrEmbeddingGenerationFailed
	ErrSemanticSearchFailed      = domain.ErrSemanticSearchFailed
	ErrStoreConnectivity         = domain.ErrStoreConnectivity
	ErrEmbeddingProviderError    = domain.ErrEmbeddingProviderError
	ErrInvalidPayload            = domain.ErrInvalidPayload
	ErrInvalidConfig             = domain.ErrInvalidConfig
)
