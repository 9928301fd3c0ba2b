package qdrant

import (
	"context"
	"math"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/knowdex/internal/domain/document"
)

type fakePoint struct {
	id      *qdrant.PointId
	vectors map[string][]float32
	payload map[string]*qdrant.Value
}

// fakeClient keeps a single collection in memory.
type fakeClient struct {
	mu       sync.Mutex
	exists   bool
	vectors  *qdrant.VectorsConfig
	indexed  []string
	points   map[string]*fakePoint
	fail     map[string]error // method name → error
	scrolls  []*qdrant.ScrollPoints
	lastName string
}

func newFakeClient() *fakeClient {
	return &fakeClient{points: make(map[string]*fakePoint), fail: make(map[string]error)}
}

func (f *fakeClient) HealthCheck(_ context.Context) (*qdrant.HealthCheckReply, error) {
	if err := f.fail["HealthCheck"]; err != nil {
		return nil, err
	}
	return &qdrant.HealthCheckReply{Title: "qdrant", Version: "1.17.0"}, nil
}

func (f *fakeClient) CollectionExists(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists, f.fail["CollectionExists"]
}

func (f *fakeClient) CreateCollection(_ context.Context, req *qdrant.CreateCollection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["CreateCollection"]; err != nil {
		return err
	}
	f.exists = true
	f.lastName = req.GetCollectionName()
	f.vectors = req.GetVectorsConfig()
	f.points = make(map[string]*fakePoint)
	return nil
}

func (f *fakeClient) GetCollectionInfo(_ context.Context, _ string) (*qdrant.CollectionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &qdrant.CollectionInfo{
		Config: &qdrant.CollectionConfig{Params: &qdrant.CollectionParams{VectorsConfig: f.vectors}},
	}, nil
}

func (f *fakeClient) DeleteCollection(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exists = false
	f.indexed = nil
	f.points = make(map[string]*fakePoint)
	return nil
}

func (f *fakeClient) CreateFieldIndex(
	_ context.Context, req *qdrant.CreateFieldIndexCollection,
) (*qdrant.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["CreateFieldIndex"]; err != nil {
		return nil, err
	}
	f.indexed = append(f.indexed, req.GetFieldName())
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeClient) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["Upsert"]; err != nil {
		return nil, err
	}
	for _, p := range req.GetPoints() {
		vecs := make(map[string][]float32)
		for name, v := range p.GetVectors().GetVectors().GetVectors() {
			data := v.GetDense().GetData()
			if len(data) == 0 {
				data = v.GetData() //nolint:staticcheck // either encoding is accepted
			}
			vecs[name] = data
		}
		f.points[p.GetId().GetUuid()] = &fakePoint{id: p.GetId(), vectors: vecs, payload: p.GetPayload()}
	}
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeClient) retrieved(p *fakePoint, withVectors bool) *qdrant.RetrievedPoint {
	out := &qdrant.RetrievedPoint{Id: p.id, Payload: p.payload}
	if withVectors {
		named := make(map[string]*qdrant.VectorOutput, len(p.vectors))
		for name, v := range p.vectors {
			named[name] = &qdrant.VectorOutput{Data: v}
		}
		out.Vectors = &qdrant.VectorsOutput{
			VectorsOptions: &qdrant.VectorsOutput_Vectors{Vectors: &qdrant.NamedVectorsOutput{Vectors: named}},
		}
	}
	return out
}

func (f *fakeClient) Get(_ context.Context, req *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["Get"]; err != nil {
		return nil, err
	}
	var out []*qdrant.RetrievedPoint
	for _, id := range req.GetIds() {
		if p, ok := f.points[id.GetUuid()]; ok {
			out = append(out, f.retrieved(p, true))
		}
	}
	return out, nil
}

func (f *fakeClient) Delete(_ context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range req.GetPoints().GetPoints().GetIds() {
		delete(f.points, id.GetUuid())
	}
	return &qdrant.UpdateResult{}, nil
}

// sorted returns points ordered by id, the way Qdrant scrolls.
func (f *fakeClient) sorted() []*fakePoint {
	out := make([]*fakePoint, 0, len(f.points))
	for _, p := range f.points {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *fakePoint) int { return strings.Compare(a.id.GetUuid(), b.id.GetUuid()) })
	return out
}

func (f *fakeClient) Scroll(_ context.Context, req *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls = append(f.scrolls, req)
	if err := f.fail["Scroll"]; err != nil {
		return nil, err
	}

	var keywords []string
	for _, c := range req.GetFilter().GetShould() {
		keywords = append(keywords, c.GetField().GetMatch().GetKeywords().GetStrings()...)
	}

	var out []*qdrant.RetrievedPoint
	for _, p := range f.sorted() {
		if off := req.GetOffset(); off != nil && p.id.GetUuid() < off.GetUuid() {
			continue
		}
		if len(keywords) > 0 && !hasAny(p.payload[payloadTokens], keywords) {
			continue
		}
		out = append(out, f.retrieved(p, req.GetWithVectors().GetEnable()))
		if len(out) == int(req.GetLimit()) {
			break
		}
	}
	return out, nil
}

func hasAny(v *qdrant.Value, keywords []string) bool {
	for _, item := range v.GetListValue().GetValues() {
		if slices.Contains(keywords, item.GetStringValue()) {
			return true
		}
	}
	return false
}

func (f *fakeClient) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["Query"]; err != nil {
		return nil, err
	}
	q := req.GetQuery().GetNearest().GetDense().GetData()

	var out []*qdrant.ScoredPoint
	for _, p := range f.sorted() {
		v, ok := p.vectors[req.GetUsing()]
		if !ok || len(v) == 0 {
			continue
		}
		score := float32(cosine(q, v))
		if score < req.GetScoreThreshold() {
			continue
		}
		out = append(out, &qdrant.ScoredPoint{Id: p.id, Payload: p.payload, Score: score})
	}
	slices.SortStableFunc(out, func(a, b *qdrant.ScoredPoint) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(out) > int(req.GetLimit()) {
		out = out[:req.GetLimit()]
	}
	return out, nil
}

func (f *fakeClient) Count(_ context.Context, _ *qdrant.CountPoints) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.points)), f.fail["Count"]
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
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func newTestStore(t *testing.T, f *fakeClient) *Store {
	t.Helper()
	s, err := New(f, Config{Collection: "capabilities"})
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
