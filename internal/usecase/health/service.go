// Package health aggregates store and embedding provider checks.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. Keyword search may still work.
	Degraded Status = "degraded"
	// Unhealthy indicates every store is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDisabled marks an embedding provider that was never configured.
	CheckDisabled CheckResult = "disabled"
)

const defaultCheckTimeout = 2 * time.Second

// Report aggregates health check results. Store checks are keyed "store:<name>".
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	stores    map[string]Checker
	embedding Checker
	timeout   time.Duration
}

// New creates a Service. embedding can be nil when no provider is configured.
func New(stores map[string]Checker, embedding Checker) *Service {
	return &Service{stores: stores, embedding: embedding, timeout: defaultCheckTimeout}
}

// WithTimeout bounds each individual check.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Names returns the store names in sorted order.
func (s *Service) Names() []string {
	names := make([]string, 0, len(s.stores))
	for n := range s.stores {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Check runs every check concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.stores)+1)
	)
	record := func(name string, err error) {
		res := CheckOK
		if err != nil {
			res = CheckError
		}
		mu.Lock()
		checks[name] = res
		mu.Unlock()
	}

	var g errgroup.Group
	for name, c := range s.stores {
		g.Go(func() error {
			record("store:"+name, s.run(ctx, c))
			return nil
		})
	}
	if s.embedding != nil {
		g.Go(func() error {
			record("embedding", s.run(ctx, s.embedding))
			return nil
		})
	} else {
		checks["embedding"] = CheckDisabled
	}
	_ = g.Wait()

	return Report{Status: s.status(checks), Checks: checks}
}

func (s *Service) run(ctx context.Context, c Checker) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return c.HealthCheck(ctx)
}

func (s *Service) status(checks map[string]CheckResult) Status {
	failedStores := 0
	degraded := false
	for name, res := range checks {
		if res != CheckError {
			continue
		}
		degraded = true
		if name != "embedding" {
			failedStores++
		}
	}
	switch {
	case len(s.stores) > 0 && failedStores == len(s.stores):
		return Unhealthy
	case degraded:
		return Degraded
	}
	return Healthy
}
