// Package capability models inferred capabilities of infrastructure resource kinds.
package capability

import (
	"fmt"
	"time"
)

// Complexity is the operational complexity of using a resource.
type Complexity string

// Complexity levels.
const (
	Low    Complexity = "low"
	Medium Complexity = "medium"
	High   Complexity = "high"
)

// IsValid checks if the complexity is one of the supported levels.
func (c Complexity) IsValid() bool {
	return c == Low || c == Medium || c == High
}

// Capability describes what a resource kind can do.
// ResourceName is the natural key, e.g. "sqls.devopstoolkit.live".
type Capability struct {
	ResourceName string
	APIVersion   string
	Group        string
	Capabilities []string
	Providers    []string
	Abstractions []string
	Complexity   Complexity
	Description  string
	UseCase      string
	Confidence   float64
	AnalyzedAt   time.Time
}

// Validate checks required fields and ranges.
func (c *Capability) Validate() error {
	if c.ResourceName == "" {
		return fmt.Errorf("resource name is required")
	}
	if c.Complexity != "" && !c.Complexity.IsValid() {
		return fmt.Errorf("invalid complexity %q", c.Complexity)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1")
	}
	return nil
}
