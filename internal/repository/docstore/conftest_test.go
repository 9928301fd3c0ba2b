package docstore

import (
	"context"
	"math"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/knowdex/internal/db"
	"github.com/kailas-cloud/knowdex/internal/domain/document"
)

// fakeStore is an in-memory stand-in for the Redis layer. It keeps hashes
// and answers FT queries over keys that start with the index prefix.
type fakeStore struct {
	mu      sync.Mutex
	hashes  map[string]map[string]string
	indexes map[string]*db.IndexDefinition
	fail    map[string]error // method name → error

	tagQueries []db.TagQuery
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hashes:  make(map[string]map[string]string),
		indexes: make(map[string]*db.IndexDefinition),
		fail:    make(map[string]error),
	}
}

func (f *fakeStore) Ping(_ context.Context) error { return f.fail["Ping"] }

func (f *fakeStore) HSet(_ context.Context, key string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["HSet"]; err != nil {
		return err
	}
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (f *fakeStore) HReplace(_ context.Context, key string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["HReplace"]; err != nil {
		return err
	}
	h := make(map[string]string, len(fields))
	for k, v := range fields {
		h[k] = v
	}
	f.hashes[key] = h
	return nil
}

func (f *fakeStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["HGetAll"]; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(f.hashes[key]))
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["Del"]; err != nil {
		return err
	}
	delete(f.hashes, key)
	return nil
}

func (f *fakeStore) DelMulti(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if err := f.Del(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) Scan(_ context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range f.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (f *fakeStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["CreateIndex"]; err != nil {
		return err
	}
	if _, ok := f.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	f.indexes[def.Name] = def
	return nil
}

func (f *fakeStore) IndexExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.indexes[name]
	return ok, nil
}

// docs returns the indexed hashes in key order.
func (f *fakeStore) docs(index string) []db.SearchEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	def := f.indexes[index]
	if def == nil {
		return nil
	}
	var out []db.SearchEntry
	for k, h := range f.hashes {
		if strings.HasPrefix(k, def.Prefixes[0]) {
			fields := make(map[string]string, len(h))
			for n, v := range h {
				fields[n] = v
			}
			out = append(out, db.SearchEntry{Key: k, Fields: fields})
		}
	}
	slices.SortFunc(out, func(a, b db.SearchEntry) int { return strings.Compare(a.Key, b.Key) })
	return out
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := f.fail["SearchKNN"]; err != nil {
		return nil, err
	}
	var hits []db.SearchEntry
	for _, e := range f.docs(q.IndexName) {
		raw, ok := e.Fields[fieldVector]
		if !ok {
			continue
		}
		vec, _ := bytesToVector(raw)
		e.Score = cosine(q.Vector, vec)
		hits = append(hits, e)
	}
	slices.SortStableFunc(hits, func(a, b db.SearchEntry) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(hits) > q.K {
		hits = hits[:q.K]
	}
	return &db.SearchResult{Total: len(hits), Entries: hits}, nil
}

func (f *fakeStore) SearchTags(_ context.Context, q *db.TagQuery) (*db.SearchResult, error) {
	f.mu.Lock()
	f.tagQueries = append(f.tagQueries, *q)
	f.mu.Unlock()
	if err := f.fail["SearchTags"]; err != nil {
		return nil, err
	}
	var hits []db.SearchEntry
	for _, e := range f.docs(q.IndexName) {
		have := strings.Split(e.Fields[q.Field], tokenSeparator)
		for _, t := range q.Tags {
			if slices.Contains(have, t) {
				hits = append(hits, e)
				break
			}
		}
	}
	total := len(hits)
	if len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return &db.SearchResult{Total: total, Entries: hits}, nil
}

func (f *fakeStore) SearchList(
	_ context.Context, index, _ string, offset, limit int, _ []string,
) (*db.SearchResult, error) {
	if err := f.fail["SearchList"]; err != nil {
		return nil, err
	}
	all := f.docs(index)
	if offset >= len(all) {
		return &db.SearchResult{Total: len(all)}, nil
	}
	end := min(offset+limit, len(all))
	return &db.SearchResult{Total: len(all), Entries: all[offset:end]}, nil
}

func (f *fakeStore) SearchCount(_ context.Context, index, _ string) (int, error) {
	if err := f.fail["SearchCount"]; err != nil {
		return 0, err
	}
	return len(f.docs(index)), nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Max(0, dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

func newTestStore(t *testing.T, f *fakeStore) *Store {
	t.Helper()
	s, err := New(f, Config{Collection: "patterns"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.InitializeCollection(context.Background(), 3); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func doc(id string, vec []float32, text string) document.Stored {
	return document.New(id, vec, map[string]any{"name": id}, text)
}
