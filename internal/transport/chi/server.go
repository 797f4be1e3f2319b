package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/assetlink-cloud/assetlink/internal/domain"
	aggregateuc "github.com/assetlink-cloud/assetlink/internal/usecase/aggregate"
	healthuc "github.com/assetlink-cloud/assetlink/internal/usecase/health"
)

// errorCode is the machine-readable error identifier in error responses.
type errorCode string

const (
	codeBadRequest         errorCode = "bad_request"
	codeValidationFailed   errorCode = "validation_failed"
	codeUnknownService     errorCode = "unknown_service"
	codeServiceAuth        errorCode = "service_auth_failed"
	codeServiceTimeout     errorCode = "service_timeout"
	codeServiceUnreachable errorCode = "service_unreachable"
	codeServiceResponse    errorCode = "service_bad_response"
	codeInternalError      errorCode = "internal_error"
)

// errorResponse is the JSON error envelope for all endpoints.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the aggregation API over HTTP.
type Server struct {
	related       *aggregateuc.Service
	health        *healthuc.Service
	issues        healthuc.ConnectionTester
	pages         healthuc.ConnectionTester
	searchTimeout time.Duration
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	related *aggregateuc.Service,
	health *healthuc.Service,
	issues, pages healthuc.ConnectionTester,
	searchTimeout time.Duration,
	logger *zap.Logger,
) *Server {
	s := &Server{
		related:       related,
		health:        health,
		issues:        issues,
		pages:         pages,
		searchTimeout: searchTimeout,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrServiceAuth, http.StatusBadGateway, codeServiceAuth),
		sentinelHandler(domain.ErrServiceTimeout, http.StatusGatewayTimeout, codeServiceTimeout),
		sentinelHandler(domain.ErrServiceUnreachable, http.StatusBadGateway, codeServiceUnreachable),
		sentinelHandler(domain.ErrServiceResponse, http.StatusBadGateway, codeServiceResponse),
	}
	return s
}

// Routes registers all endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/related", s.Related)
	r.Get("/v1/fields", s.Fields)
	r.Post("/v1/services/{service}/test", s.TestService)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// relatedRequest carries one inventory record for aggregation.
type relatedRequest struct {
	Kind       string         `json:"kind"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// relatedResponse is the aggregated result plus the display gate verdict.
type relatedResponse struct {
	Display bool `json:"display"`
	domain.Combined
}

// Related handles POST /v1/related.
func (s *Server) Related(w http.ResponseWriter, r *http.Request) {
	var req relatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Kind == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Record kind is required")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Record id is required")
		return
	}

	rec := domain.Record{Kind: req.Kind, ID: req.ID, Attributes: req.Attributes}

	ctx := r.Context()
	if s.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.searchTimeout)
		defer cancel()
	}

	combined, err := s.related.Related(ctx, rec)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, relatedResponse{
		Display:  s.related.ShouldDisplay(rec),
		Combined: combined,
	})
}

// fieldItem is one search field in the fields listing.
type fieldItem struct {
	Name      string `json:"name"`
	Attribute string `json:"attribute"`
	Enabled   bool   `json:"enabled"`
}

// Fields handles GET /v1/fields.
func (s *Server) Fields(w http.ResponseWriter, r *http.Request) {
	fields := s.related.Fields()
	items := make([]fieldItem, len(fields))
	for i, f := range fields {
		items[i] = fieldItem{Name: f.Name, Attribute: f.Attribute, Enabled: f.Enabled}
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": items})
}

// testResponse reports a connectivity probe outcome.
type testResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// TestService handles POST /v1/services/{service}/test.
func (s *Server) TestService(w http.ResponseWriter, r *http.Request) {
	var tester healthuc.ConnectionTester
	switch chi.URLParam(r, "service") {
	case "jira":
		tester = s.issues
	case "confluence":
		tester = s.pages
	default:
		writeError(w, http.StatusNotFound, codeUnknownService, "service must be \"jira\" or \"confluence\"")
		return
	}

	ok, message := tester.TestConnection(r.Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, testResponse{OK: ok, Message: message})
}

// HealthCheck handles GET /health. Passing ?deep=true additionally probes
// both external services.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var report healthuc.Report
	if r.URL.Query().Get("deep") == "true" {
		report = s.health.DeepCheck(r.Context())
	} else {
		report = s.health.Check(r.Context())
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrServiceAuth,
		domain.ErrServiceTimeout,
		domain.ErrServiceUnreachable,
		domain.ErrServiceResponse,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
