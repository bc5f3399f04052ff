// Package chi serves the knowledge search HTTP API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/carekb/internal/domain"
	domcol "github.com/kailas-cloud/carekb/internal/domain/collection"
	"github.com/kailas-cloud/carekb/internal/domain/search/mode"
	"github.com/kailas-cloud/carekb/internal/domain/search/request"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
	"github.com/kailas-cloud/carekb/internal/metrics"
	healthuc "github.com/kailas-cloud/carekb/internal/usecase/health"
	searchuc "github.com/kailas-cloud/carekb/internal/usecase/search"
	usageuc "github.com/kailas-cloud/carekb/internal/usecase/usage"
)

// Searcher answers search requests.
type Searcher interface {
	Search(ctx context.Context, req request.Request) ([]result.Scored, error)
}

// Collections exposes collection status and explicit rebuilds.
type Collections interface {
	Status() []domcol.Collection
	Rebuild(ctx context.Context, name string) (domcol.Collection, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter reports embedding token consumption.
type UsageReporter interface {
	Report() usageuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements the HTTP API.
type Server struct {
	search        Searcher
	collections   Collections
	health        HealthChecker
	usage         UsageReporter
	defaultK      int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. defaultK applies when a request omits k.
func NewServer(search Searcher, collections Collections, health HealthChecker, defaultK int, logger *zap.Logger) *Server {
	s := &Server{
		search:      search,
		collections: collections,
		health:      health,
		defaultK:    defaultK,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrQueryTooLong, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrUnknownDomain, http.StatusNotFound, ErrorCodeUnknownDomain),
		sentinelHandler(domain.ErrInvalidState, http.StatusConflict, ErrorCodeConflict),
		sentinelHandler(domain.ErrCollectionNotReady, http.StatusServiceUnavailable, ErrorCodeNotReady),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, ErrorCodeQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeProviderError),
	}
	return s
}

// WithUsage enables GET /v1/usage.
func (s *Server) WithUsage(u UsageReporter) *Server {
	s.usage = u
	return s
}

// Router builds the chi router with the standard middleware chain.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(APIKeyMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Get("/collections", s.ListCollections)
		r.Post("/collections/{domain}/rebuild", s.RebuildCollection)
		if s.usage != nil {
			r.Get("/usage", s.GetUsage)
		}
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
	return r
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	k := s.defaultK
	if body.K != nil {
		k = *body.K
	}
	m := mode.Hybrid
	if body.Mode != nil {
		m = mode.Parse(*body.Mode)
	}

	req, err := request.New(body.Query, body.Profile, m, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	hits, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]SearchHit, len(hits))
	for i, h := range hits {
		items[i] = hitToAPI(h)
	}
	resp := SearchResponse{Results: items}
	if r.URL.Query().Get("context") == "true" {
		resp.Context = searchuc.FormatContext(hits)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListCollections handles GET /v1/collections.
func (s *Server) ListCollections(w http.ResponseWriter, _ *http.Request) {
	cols := s.collections.Status()
	items := make([]CollectionStatus, len(cols))
	for i, c := range cols {
		items[i] = collectionToAPI(c)
	}
	writeJSON(w, http.StatusOK, CollectionListResponse{Items: items})
}

// RebuildCollection handles POST /v1/collections/{domain}/rebuild.
// A failed rebuild that kept the previous generation still answers 200
// with last_error set; only a domain left unable to serve is an error.
func (s *Server) RebuildCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domain")
	col, err := s.collections.Rebuild(r.Context(), name)
	if err != nil && !col.Ready() {
		if errors.Is(err, domain.ErrUnknownDomain) || errors.Is(err, domain.ErrInvalidState) {
			s.handleDomainError(w, err)
			return
		}
		s.logger.Warn("Rebuild failed", zap.String("domain", name), zap.Error(err))
		writeJSON(w, http.StatusUnprocessableEntity, collectionToAPI(col))
		return
	}
	writeJSON(w, http.StatusOK, collectionToAPI(col))
}

// GetUsage handles GET /v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, usageToAPI(s.usage.Report()))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
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

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrQueryTooLong,
		domain.ErrUnknownDomain,
		domain.ErrInvalidState,
		domain.ErrCollectionNotReady,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
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
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
