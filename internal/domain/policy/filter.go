package policy

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/knowdex/internal/domain/search/request"
)

// ByEnforcement keeps intents with the given enforcement level.
func ByEnforcement(e Enforcement) request.Filter[Intent] {
	return func(i Intent) bool { return i.Enforcement == e }
}

// ByTrigger keeps intents declaring the trigger, case-insensitively.
func ByTrigger(trigger string) request.Filter[Intent] {
	return func(i Intent) bool {
		return slices.ContainsFunc(i.Triggers, func(t string) bool { return strings.EqualFold(t, trigger) })
	}
}

// HasDeployments keeps intents that already produced at least one deployed policy.
func HasDeployments() request.Filter[Intent] {
	return func(i Intent) bool { return len(i.DeployedPolicies) > 0 }
}
