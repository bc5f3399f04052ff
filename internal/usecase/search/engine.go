package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	"github.com/kailas-cloud/carekb/internal/domain/search/filter"
	"github.com/kailas-cloud/carekb/internal/domain/search/mode"
	"github.com/kailas-cloud/carekb/internal/domain/search/plan"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
	"github.com/kailas-cloud/carekb/internal/metrics"
	"github.com/kailas-cloud/carekb/internal/usecase/keyword"
)

// Defaults for a zero EngineConfig.
const (
	DefaultVectorWeight  = 0.5
	DefaultKeywordWeight = 0.5
	DefaultQueryTimeout  = 10 * time.Second
)

var errStageSkipped = errors.New("stage not run")

// EngineConfig tunes fusion. Timeout bounds the query embedding call; when
// it expires the vector stage fails and the search degrades to keywords.
type EngineConfig struct {
	VectorWeight  float64
	KeywordWeight float64
	Fusion        Fusion
	Timeout       time.Duration
}

// Engine runs hybrid retrieval over the collections of a plan.
type Engine struct {
	colls    Collections
	keywords KeywordSearcher
	embed    Embedder
	cfg      EngineConfig
	logger   *zap.Logger
}

// NewEngine creates an engine. Zero weights select the defaults.
func NewEngine(colls Collections, keywords KeywordSearcher, embed Embedder, cfg EngineConfig, logger *zap.Logger) *Engine {
	if cfg.VectorWeight == 0 && cfg.KeywordWeight == 0 {
		cfg.VectorWeight, cfg.KeywordWeight = DefaultVectorWeight, DefaultKeywordWeight
	}
	if cfg.Fusion == "" {
		cfg.Fusion = FusionWeighted
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultQueryTimeout
	}
	return &Engine{colls: colls, keywords: keywords, embed: embed, cfg: cfg, logger: logger}
}

// Search ranks chunks for the plan. Collections are searched in priority
// order and their results concatenated, skipping chunks already emitted,
// up to k. Stage failures degrade; Search itself never fails.
func (e *Engine) Search(ctx context.Context, p plan.Plan, k int, m mode.Mode) []result.Scored {
	if k <= 0 || len(p.Targets) == 0 {
		return nil
	}

	var targets []string
	for _, name := range p.Targets {
		if !e.colls.Ready(name) {
			e.logger.Warn("Skipping collection that is not ready", zap.String("domain", name))
			metrics.SearchDegradedTotal.WithLabelValues(name, "not_ready").Inc()
			continue
		}
		targets = append(targets, name)
	}
	if len(targets) == 0 {
		return nil
	}

	qv := &queryVector{embed: e.embedQuery, text: p.EnhancedQuery}
	seen := make(map[string]struct{})
	var out []result.Scored
	for _, name := range targets {
		for _, s := range e.searchCollection(ctx, name, p, qv, k, m) {
			key := s.Chunk().Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
			if len(out) == k {
				return out
			}
		}
	}
	return out
}

// queryVector embeds the query at most once per search, on first use.
type queryVector struct {
	embed func(ctx context.Context, text string) ([]float32, error)
	text  string
	done  bool
	vec   []float32
	err   error
}

func (q *queryVector) get(ctx context.Context) ([]float32, error) {
	if !q.done {
		q.vec, q.err = q.embed(ctx, q.text)
		q.done = true
	}
	return q.vec, q.err
}

func (e *Engine) embedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	res, err := e.embed.Embed(ctx, text)
	if err != nil {
		e.logger.Warn("Query embedding failed", zap.Error(err))
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(res.Embedding) == 0 {
		return nil, errors.New("embed query: empty vector")
	}
	return res.Embedding, nil
}

// searchCollection retrieves 2k candidates per signal, applies the advisory
// filter and fuses. A failed stage degrades to the other one; when both fail
// the collection contributes nothing.
func (e *Engine) searchCollection(
	ctx context.Context, name string, p plan.Plan,
	qv *queryVector, k int, m mode.Mode,
) []result.Scored {
	fetch := 2 * k

	var (
		hits    []result.Hit
		matches []keyword.Match
		hitErr  = errStageSkipped
		kwErr   = errStageSkipped
	)
	runVector := func(ctx context.Context) {
		vec, err := qv.get(ctx)
		if err != nil {
			hitErr = err
			return
		}
		hits, hitErr = e.colls.Nearest(ctx, name, vec, fetch)
	}
	runKeyword := func(ctx context.Context) {
		matches, kwErr = e.keywords.Search(ctx, p.EnhancedQuery, fetch, name)
	}

	g, gctx := errgroup.WithContext(ctx)
	if m.UsesVector() {
		g.Go(func() error { runVector(gctx); return nil })
	}
	if m.UsesKeyword() {
		g.Go(func() error { runKeyword(gctx); return nil })
	}
	_ = g.Wait()

	// Fallback ladder for single-signal modes.
	if m == mode.Vector && hitErr != nil {
		runKeyword(ctx)
	}
	if m == mode.Keyword && kwErr != nil {
		runVector(ctx)
	}

	switch {
	case hitErr != nil && kwErr != nil:
		e.logger.Warn("Both search stages failed, skipping collection",
			zap.String("domain", name),
			zap.NamedError("vector_error", hitErr),
			zap.NamedError("keyword_error", kwErr),
		)
		metrics.SearchDegradedTotal.WithLabelValues(name, "skipped").Inc()
		return nil
	case hitErr != nil && m.UsesVector():
		e.logger.Warn("Vector stage failed, using keyword only", zap.String("domain", name), zap.Error(hitErr))
		metrics.SearchDegradedTotal.WithLabelValues(name, "keyword_only").Inc()
	case kwErr != nil && m.UsesKeyword():
		e.logger.Warn("Keyword stage failed, using vector only", zap.String("domain", name), zap.Error(kwErr))
		metrics.SearchDegradedTotal.WithLabelValues(name, "vector_only").Inc()
	}

	fh, fm := applyFilter(p.Filter, hits, matches)
	if len(fh) == 0 && len(fm) == 0 && (len(hits) > 0 || len(matches) > 0) {
		e.logger.Debug("Filter removed every candidate, using unfiltered results",
			zap.String("domain", name),
			zap.Stringer("filter", p.Filter),
		)
		metrics.SearchDegradedTotal.WithLabelValues(name, "filter_relaxed").Inc()
		fh, fm = hits, matches
	}

	return fuse(name, fh, fm, e.cfg.Fusion, e.cfg.VectorWeight, e.cfg.KeywordWeight, k)
}

func applyFilter(f filter.Expression, hits []result.Hit, matches []keyword.Match) ([]result.Hit, []keyword.Match) {
	if f.IsEmpty() {
		return hits, matches
	}
	keep := func(c chunk.Chunk) bool { return f.Matches(c) }

	var fh []result.Hit
	for _, h := range hits {
		if keep(h.Chunk) {
			fh = append(fh, h)
		}
	}
	var fm []keyword.Match
	for _, m := range matches {
		if keep(m.Chunk) {
			fm = append(fm, m)
		}
	}
	return fh, fm
}
