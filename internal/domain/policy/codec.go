package policy

import (
	"fmt"

	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/document"
	"github.com/kailas-cloud/knowdex/internal/domain/search/tokenize"
)

const (
	keyName             = "name"
	keyDescription      = "description"
	keyTriggers         = "triggers"
	keyRationale        = "rationale"
	keyEnforcement      = "enforcement"
	keyCreatedBy        = "createdBy"
	keyCreatedAt        = "createdAt"
	keyDeployedPolicies = "deployedPolicies"
	keyAppliedAt        = "appliedAt"
)

// Decode defaults.
const (
	DefaultEnforcement = Advisory
	UnknownAuthor      = "unknown"
)

// Codec maps policy intents to stored documents.
type Codec struct{}

// SearchText joins name, triggers, enforcement, description and rationale.
func (Codec) SearchText(i Intent) string {
	parts := make([]string, 0, 4+len(i.Triggers))
	parts = append(parts, i.Name)
	parts = append(parts, i.Triggers...)
	parts = append(parts, string(enforcementOrDefault(i.Enforcement)), i.Description, i.Rationale)
	return document.JoinText(parts...)
}

// Identity returns the intent name.
func (Codec) Identity(i Intent) string { return i.Name }

// Encode returns the persisted fields.
func (Codec) Encode(i Intent) map[string]any {
	triggers := i.Triggers
	if triggers == nil {
		triggers = []string{}
	}
	deployed := make([]map[string]any, 0, len(i.DeployedPolicies))
	for _, d := range i.DeployedPolicies {
		deployed = append(deployed, map[string]any{
			keyName:      d.Name,
			keyAppliedAt: document.FormatTime(d.AppliedAt),
		})
	}
	return map[string]any{
		keyName:             i.Name,
		keyDescription:      i.Description,
		keyTriggers:         triggers,
		keyRationale:        i.Rationale,
		keyEnforcement:      string(enforcementOrDefault(i.Enforcement)),
		keyCreatedBy:        i.CreatedBy,
		keyCreatedAt:        document.FormatTime(i.CreatedAt),
		keyDeployedPolicies: deployed,
	}
}

// Decode rebuilds an intent. Deployed entries without a name are dropped.
func (Codec) Decode(m map[string]any) (Intent, error) {
	name, _ := document.String(m, keyName)
	if name == "" {
		return Intent{}, fmt.Errorf("policy intent: missing %s: %w", keyName, domain.ErrInvalidPayload)
	}

	objs := document.Objects(m, keyDeployedPolicies)
	deployed := make([]Deployed, 0, len(objs))
	for _, o := range objs {
		n, _ := document.String(o, keyName)
		if n == "" {
			continue
		}
		deployed = append(deployed, Deployed{Name: n, AppliedAt: document.Time(o, keyAppliedAt)})
	}

	return Intent{
		Name:             name,
		Description:      document.StringOr(m, keyDescription, ""),
		Triggers:         document.Strings(m, keyTriggers),
		Rationale:        document.StringOr(m, keyRationale, ""),
		Enforcement:      enforcementOrDefault(Enforcement(document.StringOr(m, keyEnforcement, ""))),
		CreatedBy:        document.StringOr(m, keyCreatedBy, UnknownAuthor),
		CreatedAt:        document.Time(m, keyCreatedAt),
		DeployedPolicies: deployed,
	}, nil
}

// TokenFilter drops common English stop words.
func (Codec) TokenFilter() tokenize.Filter {
	return tokenize.StopWords(tokenize.EnglishStopWords...)
}

func enforcementOrDefault(e Enforcement) Enforcement {
	if e.IsValid() {
		return e
	}
	return DefaultEnforcement
}
