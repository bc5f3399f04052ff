// Package search ranks knowledge chunks for a query across the configured
// collections, fusing vector similarity with keyword relevance.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carekb/internal/domain/search/request"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/carekb/internal/logger"
	"github.com/kailas-cloud/carekb/internal/metrics"
)

// Service answers search requests: route, then retrieve and fuse.
type Service struct {
	router Router
	engine *Engine
	logger *zap.Logger
}

// New creates a search service.
func New(router Router, engine *Engine, logger *zap.Logger) *Service {
	return &Service{router: router, engine: engine, logger: logger}
}

// Search returns up to req.K() ranked chunks. Degraded stages shrink the
// result set instead of failing; only a cancelled context is an error.
func (s *Service) Search(ctx context.Context, req request.Request) ([]result.Scored, error) {
	start := time.Now()
	m := req.Mode()

	p := s.router.Route(req.Query(), req.Profile())
	hits := s.engine.Search(ctx, p, req.K(), m)

	metrics.SearchDuration.WithLabelValues(string(m)).Observe(time.Since(start).Seconds())
	if err := ctx.Err(); err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(string(m), "cancelled").Inc()
		return nil, fmt.Errorf("search: %w", err)
	}
	status := "ok"
	if len(hits) == 0 {
		status = "empty"
	}
	metrics.SearchRequestsTotal.WithLabelValues(string(m), status).Inc()

	logpkg.FromContext(ctx, s.logger).Debug("Search completed",
		zap.Stringer("intent", p.Intent.Kind),
		zap.Strings("targets", p.Targets),
		zap.String("mode", string(m)),
		zap.Int("hits", len(hits)),
		zap.Duration("took", time.Since(start)),
	)
	return hits, nil
}
