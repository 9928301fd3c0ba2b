package redis

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/knowdex/internal/db"
)

const scanFetchBatch = 100

// scanList implements listing via SCAN + HGETALL for valkey-search
// which does not support bare FT.SEARCH without KNN.
func (s *Store) scanList(
	ctx context.Context, index string, offset, limit int, fields []string,
) (*db.SearchResult, error) {
	keys, err := s.Scan(ctx, indexToKeyPrefix(index)+"*")
	if err != nil {
		return nil, fmt.Errorf("scan for list: %w", err)
	}

	slices.Sort(keys) // deterministic ordering

	total := len(keys)
	if offset >= total {
		return &db.SearchResult{Total: total}, nil
	}

	end := min(offset+limit, total)
	pageKeys := keys[offset:end]

	entries := make([]db.SearchEntry, 0, len(pageKeys))
	for _, key := range pageKeys {
		m, err := s.HGetAll(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", key, err)
		}
		if len(m) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		entries = append(entries, db.SearchEntry{Key: key, Fields: pick(m, fields)})
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func (s *Store) scanCount(ctx context.Context, index string) (int, error) {
	keys, err := s.Scan(ctx, indexToKeyPrefix(index)+"*")
	if err != nil {
		return 0, fmt.Errorf("scan for count: %w", err)
	}
	return len(keys), nil
}

// scanTags answers a TAG query by reading every hash under the index prefix.
func (s *Store) scanTags(ctx context.Context, q *db.TagQuery) (*db.SearchResult, error) {
	keys, err := s.Scan(ctx, indexToKeyPrefix(q.IndexName)+"*")
	if err != nil {
		return nil, fmt.Errorf("scan for tags: %w", err)
	}
	slices.Sort(keys)

	want := make(map[string]struct{}, len(q.Tags))
	for _, t := range q.Tags {
		want[strings.ToLower(t)] = struct{}{}
	}

	var entries []db.SearchEntry
	for start := 0; start < len(keys); start += scanFetchBatch {
		batch := keys[start:min(start+scanFetchBatch, len(keys))]
		hashes, err := s.HGetAllMulti(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("fetch for tags: %w", err)
		}
		for i, m := range hashes {
			if !hasAnyTag(m[q.Field], want) {
				continue
			}
			entries = append(entries, db.SearchEntry{Key: batch[i], Fields: pick(m, q.ReturnFields)})
		}
	}

	total := len(entries)
	if len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func hasAnyTag(field string, want map[string]struct{}) bool {
	if field == "" {
		return false
	}
	for _, t := range strings.Split(field, ",") {
		if _, ok := want[strings.ToLower(strings.TrimSpace(t))]; ok {
			return true
		}
	}
	return false
}

// pick returns only the requested fields, or all of m when none are requested.
func pick(m map[string]string, fields []string) map[string]string {
	if len(fields) == 0 {
		return m
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := m[f]; ok {
			out[f] = v
		}
	}
	return out
}

// indexToKeyPrefix converts index name to a SCAN prefix.
// "knowdex:patterns:idx" -> "knowdex:patterns:"
func indexToKeyPrefix(index string) string {
	if strings.HasSuffix(index, ":idx") {
		return index[:len(index)-3]
	}
	return index + ":"
}
