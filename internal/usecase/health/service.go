package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckSkipped indicates a component that is not configured.
	CheckSkipped CheckResult = "skipped"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks. External services are only probed when
// deep checking is requested; the default report covers the cache store,
// keeping the endpoint cheap enough for liveness polling.
type Service struct {
	store  StorePinger
	issues ConnectionTester
	pages  ConnectionTester
}

// New creates a Service. issues and pages can be nil.
func New(store StorePinger, issues, pages ConnectionTester) *Service {
	return &Service{store: store, issues: issues, pages: pages}
}

// Check runs the cheap health checks.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		"cache": CheckOK,
	}
	if err := s.store.Ping(ctx); err != nil {
		checks["cache"] = CheckError
	}
	return report(checks)
}

// DeepCheck additionally probes both external services.
func (s *Service) DeepCheck(ctx context.Context) Report {
	r := s.Check(ctx)
	r.Checks["issue_tracker"] = probe(ctx, s.issues)
	r.Checks["content_service"] = probe(ctx, s.pages)
	return report(r.Checks)
}

func probe(ctx context.Context, svc ConnectionTester) CheckResult {
	if svc == nil || !svc.Configured() {
		return CheckSkipped
	}
	if ok, _ := svc.TestConnection(ctx); !ok {
		return CheckError
	}
	return CheckOK
}

func report(checks map[string]CheckResult) Report {
	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}
