package result

import "github.com/kailas-cloud/knowdex/internal/domain/search/mode"

// Result is a single search hit carrying the decoded record.
type Result[R any] struct {
	Record    R
	ID        string
	Score     float64
	MatchType mode.MatchType
}

// Entry is a stored record together with its document id.
type Entry[R any] struct {
	ID     string
	Record R
}

// Records strips scores and returns the records in result order.
func Records[R any](rs []Result[R]) []R {
	out := make([]R, len(rs))
	for i := range rs {
		out[i] = rs[i].Record
	}
	return out
}
