// Package chi serves the operational HTTP surface: health, metrics and a
// read-only view of the knowledge stores.
package chi

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/knowdex/internal/logger"
	"github.com/kailas-cloud/knowdex/internal/metrics"
	"github.com/kailas-cloud/knowdex/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/knowdex/internal/usecase/health"
	"github.com/kailas-cloud/knowdex/internal/version"
)

// StoreReporter is the read-only view of one engine.
type StoreReporter interface {
	SearchMode() engine.SearchMode
	Count(ctx context.Context) (int, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the ops handlers.
type Server struct {
	stores map[string]StoreReporter
	health HealthChecker
	logger *zap.Logger
}

// NewServer creates a Server. stores is keyed by store name.
func NewServer(stores map[string]StoreReporter, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{stores: stores, health: health, logger: logger}
}

// Router mounts every route. apiKeys guard /v1; an empty list disables auth.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiKeys))
		r.Get("/stores", s.ListStores)
		r.Get("/stores/{name}", s.GetStore)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})
	return r
}

type healthResponse struct {
	Status  healthuc.Status                 `json:"status"`
	Checks  map[string]healthuc.CheckResult `json:"checks"`
	Version string                          `json:"version"`
}

// Health reports store and embedding status. Only a total store outage is a 503.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{
		Status:  report.Status,
		Checks:  report.Checks,
		Version: version.Version,
	})
}

type storeResponse struct {
	Name string `json:"name"`
	engine.SearchMode
	Count *int   `json:"count,omitempty"`
	Error string `json:"error,omitempty"`
}

// ListStores returns every store's search mode and document count.
func (s *Server) ListStores(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.stores))
	for name := range s.stores {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]storeResponse, 0, len(names))
	for _, name := range names {
		out = append(out, s.describe(r.Context(), name, s.stores[name]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": out})
}

// GetStore returns one store.
func (s *Server) GetStore(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	st, ok := s.stores[name]
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "store "+name+" not found")
		return
	}
	writeJSON(w, http.StatusOK, s.describe(r.Context(), name, st))
}

// describe never fails: a count error is reported inline so one broken
// store does not hide the others.
func (s *Server) describe(ctx context.Context, name string, st StoreReporter) storeResponse {
	resp := storeResponse{Name: name, SearchMode: st.SearchMode()}
	n, err := st.Count(ctx)
	if err != nil {
		logpkg.FromContext(ctx).Warn("Store count failed", zap.String("store", name), zap.Error(err))
		resp.Error = err.Error()
		return resp
	}
	resp.Count = &n
	return resp
}
