package request

import "fmt"

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 10
	MaxLimit       = 100
)

// Filter is a domain predicate applied to decoded records after merging.
type Filter[R any] func(R) bool

// Options tunes a single search call.
type Options[R any] struct {
	// Limit caps the returned results. Zero means DefaultLimit; values above
	// MaxLimit are lowered to MaxLimit, so at most MaxLimit results come back.
	Limit int
	// ScoreThreshold drops results scoring below it. Must be within [0, 1].
	ScoreThreshold float64
	Filters        []Filter[R]
}

// Normalize validates the options and fills defaults.
func (o Options[R]) Normalize() (Options[R], error) {
	if o.Limit < 0 {
		return o, fmt.Errorf("limit must not be negative")
	}
	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.ScoreThreshold < 0 || o.ScoreThreshold > 1 {
		return o, fmt.Errorf("score threshold must be between 0 and 1")
	}
	return o, nil
}

// Accept reports whether the record passes every filter.
func (o Options[R]) Accept(r R) bool {
	for _, f := range o.Filters {
		if f != nil && !f(r) {
			return false
		}
	}
	return true
}

// ValidateQuery rejects queries longer than MaxQueryLength.
func ValidateQuery(q string) error {
	if len(q) > MaxQueryLength {
		return fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	return nil
}
