package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/document"
	"github.com/kailas-cloud/knowdex/internal/domain/search/mode"
	"github.com/kailas-cloud/knowdex/internal/domain/search/request"
	"github.com/kailas-cloud/knowdex/internal/domain/search/result"
	"github.com/kailas-cloud/knowdex/internal/domain/search/tokenize"
	"github.com/kailas-cloud/knowdex/internal/metrics"
)

// Search paths reported in metrics.
const (
	pathHybrid      = "hybrid"
	pathKeywordOnly = "keyword_only"
	pathEmpty       = "empty"
)

// Search ranks stored records against a free-text query.
//
// Both retrieval methods fetch twice the limit so that merging and
// post-filtering still leave enough candidates. A blank query returns an
// empty list without touching the store.
func (e *Engine[R]) Search(
	ctx context.Context, query string, opts request.Options[R],
) (_ []result.Result[R], err error) {
	defer e.observe("search", time.Now(), &err)

	opts, err = opts.Normalize()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if strings.TrimSpace(query) == "" {
		metrics.EngineSearchPathTotal.WithLabelValues(e.cfg.Collection, pathEmpty).Inc()
		return []result.Result[R]{}, nil
	}
	if err = request.ValidateQuery(query); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	tokens := tokenize.Tokens(query, e.filter)

	vector, err := e.embedForSearch(ctx, query)
	if err != nil {
		return nil, err
	}

	path := pathHybrid
	if vector == nil {
		path = pathKeywordOnly
	}
	metrics.EngineSearchPathTotal.WithLabelValues(e.cfg.Collection, path).Inc()

	fetch := 2 * opts.Limit
	vecHits, kwHits, err := e.retrieve(ctx, vector, tokens, fetch)
	if err != nil {
		return nil, err
	}

	results, err := e.rank(merge(vecHits, kwHits, e.cfg.Weights), opts)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Search completed",
		zap.String("path", path),
		zap.Int("tokens", len(tokens)),
		zap.Int("vector_hits", len(vecHits)),
		zap.Int("keyword_hits", len(kwHits)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// embedForSearch returns the query vector, or nil when the search must
// continue on keywords only.
func (e *Engine[R]) embedForSearch(ctx context.Context, query string) ([]float32, error) {
	if !e.embed.IsAvailable() {
		if e.cfg.Mode == mode.Strict {
			return nil, fmt.Errorf("search: %w: %s", domain.ErrEmbeddingUnavailable, e.embed.Status().Reason)
		}
		e.degraded("search")
		return nil, nil
	}

	vector, err := e.embed.Embed(ctx, query)
	if err == nil {
		return vector, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("search: %w", ctxErr)
	}
	if e.cfg.Mode == mode.Strict {
		return nil, fmt.Errorf("search: %w: %w", domain.ErrSemanticSearchFailed, err)
	}
	e.degraded("search")
	e.logger.Warn("Query embedding failed, falling back to keyword search", zap.Error(err))
	return nil, nil
}

// retrieve issues the vector and keyword queries concurrently.
// A nil vector or empty token list skips the corresponding query.
func (e *Engine[R]) retrieve(
	ctx context.Context, vector []float32, tokens []string, fetch int,
) (vecHits, kwHits []document.Scored, err error) {
	g, gctx := errgroup.WithContext(ctx)

	if vector != nil {
		g.Go(func() error {
			hits, err := e.store.SearchSimilar(gctx, vector, fetch, 0)
			if err != nil {
				return fmt.Errorf("vector search: %w", err)
			}
			vecHits = hits
			return nil
		})
	}
	if len(tokens) > 0 {
		g.Go(func() error {
			hits, err := e.store.SearchByKeywords(gctx, tokens, fetch, 0)
			if err != nil {
				return fmt.Errorf("keyword search: %w", err)
			}
			kwHits = hits
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("search %s: %w", e.cfg.Collection, err)
	}
	// Partial results from a cancelled search are never returned.
	if err = ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("search %s: %w", e.cfg.Collection, err)
	}
	return vecHits, kwHits, nil
}

// rank decodes candidates, applies domain filters and the score threshold,
// then sorts by score (stable) and truncates to the limit.
func (e *Engine[R]) rank(cands []candidate, opts request.Options[R]) ([]result.Result[R], error) {
	out := make([]result.Result[R], 0, len(cands))
	for _, c := range cands {
		rec, err := e.codec.Decode(c.payload)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.id, err)
		}
		if !opts.Accept(rec) {
			continue
		}
		if c.score < opts.ScoreThreshold {
			continue
		}
		out = append(out, result.Result[R]{Record: rec, ID: c.id, Score: c.score, MatchType: c.match})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}
