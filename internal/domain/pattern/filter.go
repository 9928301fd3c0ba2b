package pattern

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/knowdex/internal/domain/search/request"
)

// ByTrigger keeps patterns that declare the trigger, case-insensitively.
func ByTrigger(trigger string) request.Filter[Pattern] {
	return func(p Pattern) bool { return containsFold(p.Triggers, trigger) }
}

// SuggestsResource keeps patterns that suggest the resource.
func SuggestsResource(resource string) request.Filter[Pattern] {
	return func(p Pattern) bool { return containsFold(p.SuggestedResources, resource) }
}

func containsFold(list []string, s string) bool {
	return slices.ContainsFunc(list, func(v string) bool { return strings.EqualFold(v, s) })
}
