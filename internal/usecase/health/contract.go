package health

import "context"

// Checker reports whether a component is reachable.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
