package capability

import (
	"fmt"

	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/document"
	"github.com/kailas-cloud/knowdex/internal/domain/search/tokenize"
)

// Payload keys.
const (
	keyResourceName = "resourceName"
	keyAPIVersion   = "apiVersion"
	keyGroup        = "group"
	keyCapabilities = "capabilities"
	keyProviders    = "providers"
	keyAbstractions = "abstractions"
	keyComplexity   = "complexity"
	keyDescription  = "description"
	keyUseCase      = "useCase"
	keyConfidence   = "confidence"
	keyAnalyzedAt   = "analyzedAt"
)

// DefaultComplexity is assumed for records stored without one.
const DefaultComplexity = Medium

// Codec maps capabilities to stored documents.
//
// Decode defaults: missing lists decode to empty slices, complexity to
// DefaultComplexity, confidence to 0, analyzedAt to the zero time, strings to "".
type Codec struct{}

// SearchText joins resource name, capabilities, providers, abstractions,
// complexity, description and use case, lowercased.
func (Codec) SearchText(c Capability) string {
	parts := make([]string, 0, 4+len(c.Capabilities)+len(c.Providers)+len(c.Abstractions))
	parts = append(parts, c.ResourceName)
	parts = append(parts, c.Capabilities...)
	parts = append(parts, c.Providers...)
	parts = append(parts, c.Abstractions...)
	parts = append(parts, string(complexityOrDefault(c.Complexity)), c.Description, c.UseCase)
	return document.JoinText(parts...)
}

// Identity returns the resource name.
func (Codec) Identity(c Capability) string { return c.ResourceName }

// Encode returns the persisted fields.
func (Codec) Encode(c Capability) map[string]any {
	return map[string]any{
		keyResourceName: c.ResourceName,
		keyAPIVersion:   c.APIVersion,
		keyGroup:        c.Group,
		keyCapabilities: orEmpty(c.Capabilities),
		keyProviders:    orEmpty(c.Providers),
		keyAbstractions: orEmpty(c.Abstractions),
		keyComplexity:   string(complexityOrDefault(c.Complexity)),
		keyDescription:  c.Description,
		keyUseCase:      c.UseCase,
		keyConfidence:   c.Confidence,
		keyAnalyzedAt:   document.FormatTime(c.AnalyzedAt),
	}
}

// Decode rebuilds a capability from a stored payload.
func (Codec) Decode(p map[string]any) (Capability, error) {
	name, _ := document.String(p, keyResourceName)
	if name == "" {
		return Capability{}, fmt.Errorf("capability: missing %s: %w", keyResourceName, domain.ErrInvalidPayload)
	}
	confidence, _ := document.Float(p, keyConfidence)
	return Capability{
		ResourceName: name,
		APIVersion:   document.StringOr(p, keyAPIVersion, ""),
		Group:        document.StringOr(p, keyGroup, ""),
		Capabilities: document.Strings(p, keyCapabilities),
		Providers:    document.Strings(p, keyProviders),
		Abstractions: document.Strings(p, keyAbstractions),
		Complexity:   complexityOrDefault(Complexity(document.StringOr(p, keyComplexity, ""))),
		Description:  document.StringOr(p, keyDescription, ""),
		UseCase:      document.StringOr(p, keyUseCase, ""),
		Confidence:   confidence,
		AnalyzedAt:   document.Time(p, keyAnalyzedAt),
	}, nil
}

// TokenFilter drops tokens of two characters or fewer.
func (Codec) TokenFilter() tokenize.Filter { return tokenize.MinLength(3) }

func complexityOrDefault(c Complexity) Complexity {
	if c.IsValid() {
		return c
	}
	return DefaultComplexity
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
