// Package policy models organizational policy intents and the concrete
// policies deployed from them.
package policy

import (
	"fmt"
	"time"
)

// Enforcement tells whether an intent is guidance or a hard rule.
type Enforcement string

// Enforcement levels.
const (
	Advisory Enforcement = "advisory"
	Enforced Enforcement = "enforced"
)

// IsValid checks if the enforcement is one of the supported levels.
func (e Enforcement) IsValid() bool { return e == Advisory || e == Enforced }

// Deployed is a concrete policy generated from an intent and applied to a cluster.
type Deployed struct {
	Name      string
	AppliedAt time.Time
}

// Intent is a policy intent. Name is the natural key.
type Intent struct {
	Name             string
	Description      string
	Triggers         []string
	Rationale        string
	Enforcement      Enforcement
	CreatedBy        string
	CreatedAt        time.Time
	DeployedPolicies []Deployed
}

// Validate checks required fields.
func (i *Intent) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("policy intent name is required")
	}
	if i.Enforcement != "" && !i.Enforcement.IsValid() {
		return fmt.Errorf("invalid enforcement %q", i.Enforcement)
	}
	for _, d := range i.DeployedPolicies {
		if d.Name == "" {
			return fmt.Errorf("policy intent %q: deployed policy without name", i.Name)
		}
	}
	return nil
}
