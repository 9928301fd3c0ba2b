// Package embedding assembles embedding providers for the search engine
// from a transport-level Embedder and its decorators.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/knowdex/internal/domain"
)

// Provider adapts a domain.Embedder to a fixed-dimension provider.
// A Provider without an inner embedder is permanently unavailable.
type Provider struct {
	inner  domain.Embedder
	name   string
	dims   int
	reason string
}

// NewProvider creates an available provider producing dims-sized vectors.
func NewProvider(inner domain.Embedder, name string, dims int) (*Provider, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: embedder is required", domain.ErrInvalidConfig)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %d", domain.ErrInvalidConfig, dims)
	}
	return &Provider{inner: inner, name: name, dims: dims}, nil
}

// Disabled creates a provider that reports itself unavailable with reason.
func Disabled(name string, dims int, reason string) *Provider {
	return &Provider{name: name, dims: dims, reason: reason}
}

// IsAvailable reports whether Embed can be called.
func (p *Provider) IsAvailable() bool { return p.inner != nil }

// Dimensions returns the vector dimension of every embedding.
func (p *Provider) Dimensions() int { return p.dims }

// Embed returns the vector for text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.inner == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmbeddingUnavailable, p.reason)
	}
	res, err := p.inner.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err //nolint:wrapcheck // context error
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	if len(res.Embedding) != p.dims {
		return nil, fmt.Errorf("%w: provider %s returned %d, want %d",
			domain.ErrDimensionMismatch, p.name, len(res.Embedding), p.dims)
	}
	return res.Embedding, nil
}

// Status reports availability for diagnostics.
func (p *Provider) Status() domain.ProviderStatus {
	return domain.ProviderStatus{
		Available:    p.IsAvailable(),
		ProviderName: p.name,
		Reason:       p.reason,
	}
}

// HealthCheck probes the inner embedder when it supports health checks.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if p.inner == nil {
		return fmt.Errorf("%w: %s", domain.ErrEmbeddingUnavailable, p.reason)
	}
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
		}
	}
	return nil
}
