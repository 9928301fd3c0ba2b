package engine

import (
	"github.com/kailas-cloud/knowdex/internal/domain/document"
	"github.com/kailas-cloud/knowdex/internal/domain/search/mode"
)

type candidate struct {
	id      string
	payload map[string]any
	score   float64
	match   mode.MatchType
}

// merge combines vector and keyword hits by document id.
// Output order: vector hits in store order, then keyword-only hits in store order.
// A repeated id within one list keeps its first occurrence.
func merge(vector, keyword []document.Scored, w Weights) []candidate {
	kwByID := make(map[string]document.Scored, len(keyword))
	for _, h := range keyword {
		if _, dup := kwByID[h.ID]; !dup {
			kwByID[h.ID] = h
		}
	}

	out := make([]candidate, 0, len(vector)+len(keyword))
	seen := make(map[string]struct{}, len(vector)+len(keyword))

	for _, h := range vector {
		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}

		if kw, ok := kwByID[h.ID]; ok {
			out = append(out, candidate{
				id:      h.ID,
				payload: h.Payload,
				score:   clamp01(h.Score*w.Semantic + kw.Score*w.Keyword + w.HybridBonus),
				match:   mode.Hybrid,
			})
			continue
		}
		out = append(out, candidate{id: h.ID, payload: h.Payload, score: clamp01(h.Score), match: mode.Semantic})
	}

	for _, h := range keyword {
		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}
		out = append(out, candidate{id: h.ID, payload: h.Payload, score: clamp01(h.Score * w.Keyword), match: mode.Keyword})
	}

	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
