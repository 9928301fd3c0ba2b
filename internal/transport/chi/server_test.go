package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/search/mode"
	"github.com/kailas-cloud/knowdex/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/knowdex/internal/usecase/health"
)

type fakeStore struct {
	mode  engine.SearchMode
	count int
	err   error
}

func (f *fakeStore) SearchMode() engine.SearchMode { return f.mode }

func (f *fakeStore) Count(_ context.Context) (int, error) { return f.count, f.err }

type fakeHealth struct{ report healthuc.Report }

func (f *fakeHealth) Check(_ context.Context) healthuc.Report { return f.report }

func newTestRouter(report healthuc.Report, keys ...string) http.Handler {
	stores := map[string]StoreReporter{
		"patterns": &fakeStore{
			mode:  engine.SearchMode{Collection: "patterns", Degradation: mode.Graceful},
			count: 3,
		},
		"capabilities": &fakeStore{
			mode: engine.SearchMode{
				Collection:  "capabilities",
				Semantic:    true,
				Degradation: mode.Strict,
				Provider:    domain.ProviderStatus{Available: true, ProviderName: "openai"},
			},
			err: errors.New("document store unreachable"),
		},
	}
	return NewServer(stores, &fakeHealth{report: report}, zap.NewNop()).Router(keys)
}

func get(t *testing.T, h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	if len(header) > 0 {
		req.Header.Set("Authorization", header[0])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		h := newTestRouter(healthuc.Report{
			Status: tt.status,
			Checks: map[string]healthuc.CheckResult{"store:patterns": healthuc.CheckOK},
		}, "secret")

		rr := get(t, h, "/healthz")
		if rr.Code != tt.want {
			t.Errorf("%s: got %d, want %d", tt.status, rr.Code, tt.want)
		}
		var body healthResponse
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Status != tt.status || body.Checks["store:patterns"] != healthuc.CheckOK {
			t.Errorf("unexpected body %+v", body)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(healthuc.Report{Status: healthuc.Healthy}, "secret")
	_ = get(t, h, "/healthz")

	rr := get(t, h, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "knowdex_http_requests_total") {
		t.Error("expected http metrics in scrape output")
	}
}

func TestListStores(t *testing.T) {
	h := newTestRouter(healthuc.Report{}, "secret")

	if rr := get(t, h, "/v1/stores"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rr.Code)
	}

	rr := get(t, h, "/v1/stores", "Bearer secret")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}

	var body struct {
		Stores []struct {
			Name        string `json:"name"`
			Collection  string `json:"collection"`
			Semantic    bool   `json:"semantic"`
			Degradation string `json:"degradation"`
			Count       *int   `json:"count"`
			Error       string `json:"error"`
		} `json:"stores"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Stores) != 2 {
		t.Fatalf("expected 2 stores, got %d", len(body.Stores))
	}

	caps, pats := body.Stores[0], body.Stores[1]
	if caps.Name != "capabilities" || pats.Name != "patterns" {
		t.Fatalf("stores not sorted: %s, %s", caps.Name, pats.Name)
	}
	if !caps.Semantic || caps.Count != nil || caps.Error == "" {
		t.Errorf("unexpected capabilities entry %+v", caps)
	}
	if pats.Semantic || pats.Count == nil || *pats.Count != 3 || pats.Degradation != string(mode.Graceful) {
		t.Errorf("unexpected patterns entry %+v", pats)
	}
}

func TestGetStore(t *testing.T) {
	h := newTestRouter(healthuc.Report{})

	rr := get(t, h, "/v1/stores/patterns")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}

	rr = get(t, h, "/v1/stores/nope")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rr.Code)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil || errResp.Code != codeNotFound {
		t.Errorf("unexpected error body %+v (%v)", errResp, err)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestRouter(healthuc.Report{})
	if rr := get(t, h, "/collections"); rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rr.Code)
	}
}

func TestRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := get(t, h, "/")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rr.Code)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil || errResp.Code != codeInternal {
		t.Errorf("unexpected body %+v (%v)", errResp, err)
	}
}
