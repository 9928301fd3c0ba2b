package capability

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/knowdex/internal/domain/search/request"
)

// ByComplexity keeps capabilities of the given complexity.
func ByComplexity(c Complexity) request.Filter[Capability] {
	return func(r Capability) bool { return r.Complexity == c }
}

// ByProvider keeps capabilities listing the provider, case-insensitively.
func ByProvider(provider string) request.Filter[Capability] {
	provider = strings.ToLower(provider)
	return func(r Capability) bool {
		return slices.ContainsFunc(r.Providers, func(p string) bool {
			return strings.ToLower(p) == provider
		})
	}
}

// MinConfidence keeps capabilities inferred with at least the given confidence.
func MinConfidence(threshold float64) request.Filter[Capability] {
	return func(r Capability) bool { return r.Confidence >= threshold }
}
