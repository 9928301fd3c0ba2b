// Package pattern models reusable deployment patterns.
package pattern

import (
	"fmt"
	"strings"
	"time"
)

// Pattern is an organizational recipe: when a request mentions one of the
// triggers, the suggested resources are a good starting point.
type Pattern struct {
	Name               string
	Description        string
	Triggers           []string
	SuggestedResources []string
	Rationale          string
	CreatedBy          string
	CreatedAt          time.Time
}

// Validate checks required fields and rejects blank triggers.
func (p *Pattern) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("pattern name is required")
	}
	for _, t := range p.Triggers {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("pattern %q has a blank trigger", p.Name)
		}
	}
	return nil
}
