package pattern

import (
	"fmt"

	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/document"
	"github.com/kailas-cloud/knowdex/internal/domain/search/tokenize"
)

const (
	keyName               = "name"
	keyDescription        = "description"
	keyTriggers           = "triggers"
	keySuggestedResources = "suggestedResources"
	keyRationale          = "rationale"
	keyCreatedBy          = "createdBy"
	keyCreatedAt          = "createdAt"
)

// UnknownAuthor is decoded when a pattern was stored without an author.
const UnknownAuthor = "unknown"

// Codec maps patterns to stored documents.
type Codec struct{}

// SearchText joins name, triggers, suggested resources, description and rationale.
func (Codec) SearchText(p Pattern) string {
	parts := make([]string, 0, 3+len(p.Triggers)+len(p.SuggestedResources))
	parts = append(parts, p.Name)
	parts = append(parts, p.Triggers...)
	parts = append(parts, p.SuggestedResources...)
	parts = append(parts, p.Description, p.Rationale)
	return document.JoinText(parts...)
}

// Identity returns the pattern name.
func (Codec) Identity(p Pattern) string { return p.Name }

// Encode returns the persisted fields.
func (Codec) Encode(p Pattern) map[string]any {
	return map[string]any{
		keyName:               p.Name,
		keyDescription:        p.Description,
		keyTriggers:           orEmpty(p.Triggers),
		keySuggestedResources: orEmpty(p.SuggestedResources),
		keyRationale:          p.Rationale,
		keyCreatedBy:          p.CreatedBy,
		keyCreatedAt:          document.FormatTime(p.CreatedAt),
	}
}

// Decode rebuilds a pattern. Missing lists become empty, a missing author
// becomes UnknownAuthor and a missing timestamp the zero time.
func (Codec) Decode(m map[string]any) (Pattern, error) {
	name, _ := document.String(m, keyName)
	if name == "" {
		return Pattern{}, fmt.Errorf("pattern: missing %s: %w", keyName, domain.ErrInvalidPayload)
	}
	return Pattern{
		Name:               name,
		Description:        document.StringOr(m, keyDescription, ""),
		Triggers:           document.Strings(m, keyTriggers),
		SuggestedResources: document.Strings(m, keySuggestedResources),
		Rationale:          document.StringOr(m, keyRationale, ""),
		CreatedBy:          document.StringOr(m, keyCreatedBy, UnknownAuthor),
		CreatedAt:          document.Time(m, keyCreatedAt),
	}, nil
}

// TokenFilter drops common English stop words.
func (Codec) TokenFilter() tokenize.Filter {
	return tokenize.StopWords(tokenize.EnglishStopWords...)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
