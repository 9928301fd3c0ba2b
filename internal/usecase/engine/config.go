package engine

import (
	"fmt"

	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/search/mode"
	"github.com/kailas-cloud/knowdex/internal/domain/search/tokenize"
)

// Default scoring weights.
const (
	DefaultSemanticWeight = 1.0
	DefaultKeywordWeight  = 0.6
	DefaultHybridBonus    = 0.1
)

// Weights shape the merged score.
//
//	hybrid:  clamp(semantic*Semantic + keyword*Keyword + HybridBonus, 0, 1)
//	vector:  semantic
//	keyword: keyword*Keyword
//
// Semantic must be at least 1 so that a hybrid hit never ranks below
// either of its single-path scores.
type Weights struct {
	Semantic    float64
	Keyword     float64
	HybridBonus float64
}

// DefaultWeights returns the default scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Semantic:    DefaultSemanticWeight,
		Keyword:     DefaultKeywordWeight,
		HybridBonus: DefaultHybridBonus,
	}
}

// Config configures one engine instance.
type Config struct {
	Collection string
	Mode       mode.Degradation
	// Weights zero value means DefaultWeights.
	Weights Weights
	// VectorDim sizes the collection when the provider reports no dimension.
	VectorDim int
	// TokenFilter overrides the codec's token policy when set.
	TokenFilter tokenize.Filter
}

func (c Config) withDefaults() Config {
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights()
	}
	return c
}

func (c Config) validate() error {
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name is required", domain.ErrInvalidConfig)
	}
	if !c.Mode.IsValid() {
		return fmt.Errorf("%w: degradation mode %q", domain.ErrInvalidConfig, c.Mode)
	}
	w := c.Weights
	if w.Semantic < 0 || w.Keyword < 0 || w.HybridBonus < 0 {
		return fmt.Errorf("%w: weights must not be negative", domain.ErrInvalidConfig)
	}
	if w.Semantic < 1 {
		return fmt.Errorf("%w: semantic weight %v is below 1", domain.ErrInvalidConfig, w.Semantic)
	}
	if c.VectorDim < 0 {
		return fmt.Errorf("%w: vector dimension must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}
