// Package collection owns the topic-scoped chunk collections: it loads each
// domain's persisted index or rebuilds it from the corpus, and serves the
// active generation to the search engine.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/carekb/internal/corpus"
	"github.com/kailas-cloud/carekb/internal/domain"
	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	domcol "github.com/kailas-cloud/carekb/internal/domain/collection"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
	"github.com/kailas-cloud/carekb/internal/metrics"
)

var errShutdown = errors.New("collection manager is shut down")

var allStates = func() []string {
	out := make([]string, len(domcol.AllStates))
	for i, s := range domcol.AllStates {
		out[i] = string(s)
	}
	return out
}()

// serving is the generation a domain answers queries from.
type serving struct {
	index  string
	dim    int
	chunks []chunk.Chunk
}

type entry struct {
	src     corpus.Source
	col     domcol.Collection
	serving *serving
	build   sync.Mutex // one load or rebuild at a time per domain
}

// Manager owns every configured collection domain.
type Manager struct {
	loader   Loader
	pipeline Pipeline
	repo     IndexRepository
	logger   *zap.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	closed  bool
	running sync.WaitGroup
}

// NewManager creates a manager for the given domains. Domain names must be unique.
func NewManager(
	sources []corpus.Source, loader Loader, pipeline Pipeline,
	repo IndexRepository, logger *zap.Logger,
) (*Manager, error) {
	m := &Manager{
		loader:   loader,
		pipeline: pipeline,
		repo:     repo,
		logger:   logger,
		entries:  make(map[string]*entry, len(sources)),
	}
	for _, src := range sources {
		col, err := domcol.New(src.Domain, src.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
		}
		if _, dup := m.entries[src.Domain]; dup {
			return nil, fmt.Errorf("%w: duplicate domain %q", domain.ErrInvalidConfig, src.Domain)
		}
		m.entries[src.Domain] = &entry{src: src, col: col}
		m.order = append(m.order, src.Domain)
		metrics.SetCollectionState(src.Domain, string(col.State()), allStates)
	}
	return m, nil
}

// Domains returns the configured domain names in configuration order.
func (m *Manager) Domains() []string {
	return append([]string(nil), m.order...)
}

// Initialize loads or builds every domain concurrently. A failing domain
// ends FAILED without affecting the others.
func (m *Manager) Initialize(ctx context.Context) map[string]domcol.Collection {
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range m.order {
		g.Go(func() error {
			m.initDomain(gctx, name)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]domcol.Collection, len(m.order))
	for _, c := range m.Status() {
		out[c.Name()] = c
	}
	return out
}

func (m *Manager) initDomain(ctx context.Context, name string) {
	e, err := m.acquire(name)
	if err != nil {
		return
	}
	defer m.release(e)

	m.mu.RLock()
	state := e.col.State()
	m.mu.RUnlock()
	if state != domcol.StateUninitialized {
		return
	}

	if err := m.transition(e, domcol.StateLoading); err != nil {
		m.logger.Error("Collection transition failed", zap.String("domain", name), zap.Error(err))
		return
	}

	s, err := m.load(ctx, name)
	if err == nil {
		m.activate(e, s)
		m.logger.Info("Collection loaded",
			zap.String("domain", name),
			zap.String("index", s.index),
			zap.Int("chunks", len(s.chunks)),
		)
		return
	}
	m.logger.Info("Collection needs rebuild", zap.String("domain", name), zap.String("reason", err.Error()))

	if err := m.transition(e, domcol.StateRebuilding); err != nil {
		m.logger.Error("Collection transition failed", zap.String("domain", name), zap.Error(err))
		return
	}
	_ = m.rebuild(ctx, e)
}

// Rebuild replaces the domain's collection with a freshly built generation.
// On failure a collection that was serving keeps its previous generation.
func (m *Manager) Rebuild(ctx context.Context, name string) (domcol.Collection, error) {
	e, err := m.acquire(name)
	if err != nil {
		return domcol.Collection{}, err
	}
	defer m.release(e)

	m.mu.RLock()
	state := e.col.State()
	m.mu.RUnlock()

	if state == domcol.StateUninitialized {
		if err := m.transition(e, domcol.StateLoading); err != nil {
			return domcol.Collection{}, err
		}
	}
	if err := m.transition(e, domcol.StateRebuilding); err != nil {
		return domcol.Collection{}, err
	}
	if err := m.rebuild(ctx, e); err != nil {
		return m.snapshot(e), domain.NewDomainError(name, err)
	}
	return m.snapshot(e), nil
}

// rebuild runs the build and records the outcome. Caller holds e.build and
// has moved the collection to REBUILDING.
func (m *Manager) rebuild(ctx context.Context, e *entry) error {
	name := e.src.Domain
	start := time.Now()

	m.mu.RLock()
	prev := e.serving
	m.mu.RUnlock()

	s, replaced, err := m.build(ctx, e.src)
	metrics.CollectionRebuildDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CollectionRebuildsTotal.WithLabelValues(name, "error").Inc()
		m.logger.Error("Collection rebuild failed",
			zap.String("domain", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		if prev != nil {
			m.activate(e, prev)
			m.mu.Lock()
			e.col = e.col.WithLastError(err)
			m.mu.Unlock()
			return err
		}
		m.fail(e, err)
		return err
	}

	metrics.CollectionRebuildsTotal.WithLabelValues(name, "ok").Inc()
	m.activate(e, s)

	if replaced != "" && replaced != s.index {
		if err := m.repo.Drop(ctx, replaced); err != nil {
			m.logger.Warn("Failed to drop previous generation",
				zap.String("domain", name),
				zap.String("index", replaced),
				zap.Error(err),
			)
		}
	}

	m.logger.Info("Collection rebuilt",
		zap.String("domain", name),
		zap.String("index", s.index),
		zap.Int("chunks", len(s.chunks)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// load opens the active generation if it exists and holds chunks.
func (m *Manager) load(ctx context.Context, name string) (*serving, error) {
	g, err := m.repo.Active(ctx, name)
	if err != nil {
		return nil, err
	}
	ok, err := m.repo.Exists(ctx, g.Index)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("index %s: %w", g.Index, domain.ErrNotFound)
	}
	n, err := m.repo.Count(ctx, g.Index)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("index %s is empty", g.Index)
	}
	chunks, err := m.repo.All(ctx, g.Index)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("index %s returned no chunks", g.Index)
	}
	return &serving{index: g.Index, dim: g.VectorDim, chunks: chunks}, nil
}

// build chunks the domain corpus, embeds it and writes a new generation.
// replaced is the generation the active pointer referenced before, if any.
func (m *Manager) build(ctx context.Context, src corpus.Source) (s *serving, replaced string, err error) {
	chunks, err := m.loader.Load(ctx, src)
	if err != nil {
		return nil, "", fmt.Errorf("load corpus: %w", err)
	}
	if len(chunks) == 0 {
		return nil, "", domain.ErrNoDocuments
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content()
	}
	vectors := m.pipeline.EmbedAll(ctx, texts)

	keptChunks := make([]chunk.Chunk, 0, len(chunks))
	keptVectors := make([][]float32, 0, len(chunks))
	dim := 0
	for i, vec := range vectors {
		if len(vec) == 0 {
			continue
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			m.logger.Warn("Skipping chunk with mismatched vector dimension",
				zap.String("domain", src.Domain),
				zap.Int("chunk", i),
				zap.Int("dim", len(vec)),
				zap.Int("want", dim),
			)
			continue
		}
		keptChunks = append(keptChunks, chunks[i])
		keptVectors = append(keptVectors, vec)
	}
	if len(keptChunks) == 0 {
		return nil, "", domain.ErrNoVectors
	}
	if skipped := len(chunks) - len(keptChunks); skipped > 0 {
		m.logger.Warn("Chunks skipped without vectors",
			zap.String("domain", src.Domain),
			zap.Int("skipped", skipped),
			zap.Int("kept", len(keptChunks)),
		)
	}

	if old, err := m.repo.Active(ctx, src.Domain); err == nil {
		replaced = old.Index
	}

	g, err := m.repo.Create(ctx, src.Domain, dim)
	if err != nil {
		return nil, "", fmt.Errorf("create generation: %w", err)
	}
	if err := m.repo.Add(ctx, g, keptChunks, keptVectors); err != nil {
		m.dropQuietly(ctx, src.Domain, g.Index)
		return nil, "", fmt.Errorf("add chunks: %w", err)
	}
	if _, err := m.repo.Activate(ctx, g, len(keptChunks)); err != nil {
		m.dropQuietly(ctx, src.Domain, g.Index)
		return nil, "", fmt.Errorf("activate generation: %w", err)
	}
	return &serving{index: g.Index, dim: dim, chunks: keptChunks}, replaced, nil
}

func (m *Manager) dropQuietly(ctx context.Context, name, index string) {
	if err := m.repo.Drop(ctx, index); err != nil {
		m.logger.Warn("Failed to drop incomplete generation",
			zap.String("domain", name), zap.String("index", index), zap.Error(err))
	}
}

// Get returns the collection snapshot of a domain.
func (m *Manager) Get(name string) (domcol.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	if !ok {
		return domcol.Collection{}, fmt.Errorf("%q: %w", name, domain.ErrUnknownDomain)
	}
	return e.col, nil
}

// Ready reports whether the domain serves queries.
func (m *Manager) Ready(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	return ok && e.serving != nil
}

// Chunks returns the serving chunks of a domain in stored order.
// The slice is shared and must not be modified.
func (m *Manager) Chunks(name string) ([]chunk.Chunk, error) {
	s, err := m.servingOf(name)
	if err != nil {
		return nil, err
	}
	return s.chunks, nil
}

// Nearest runs a KNN query against the serving generation of a domain.
func (m *Manager) Nearest(ctx context.Context, name string, vec []float32, k int) ([]result.Hit, error) {
	s, err := m.servingOf(name)
	if err != nil {
		return nil, err
	}
	if len(vec) != s.dim {
		return nil, fmt.Errorf("query has %d dims, index %s has %d: %w",
			len(vec), s.index, s.dim, domain.ErrVectorDimMismatch)
	}
	hits, err := m.repo.KNN(ctx, s.index, vec, k)
	if err != nil {
		return nil, fmt.Errorf("nearest %s: %w", name, err)
	}
	return hits, nil
}

func (m *Manager) servingOf(name string) (*serving, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrUnknownDomain)
	}
	if e.serving == nil {
		return nil, domain.NewDomainError(name, domain.ErrCollectionNotReady)
	}
	return e.serving, nil
}

// Status returns every collection snapshot in configuration order.
func (m *Manager) Status() []domcol.Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domcol.Collection, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.entries[name].col)
	}
	return out
}

// Reset drops every persisted generation and returns all domains to
// UNINITIALIZED. The next Initialize rebuilds them from the corpus.
func (m *Manager) Reset(ctx context.Context) error {
	var errs []error
	for _, name := range m.order {
		e, err := m.acquire(name)
		if err != nil {
			return err
		}
		if err := m.repo.Reset(ctx, name); err != nil {
			errs = append(errs, domain.NewDomainError(name, err))
		}
		col, _ := domcol.New(e.src.Domain, e.src.Kind)
		m.mu.Lock()
		e.col = col
		e.serving = nil
		m.mu.Unlock()
		metrics.SetCollectionState(name, string(col.State()), allStates)
		metrics.CollectionChunks.WithLabelValues(name).Set(0)
		m.release(e)
	}
	return errors.Join(errs...)
}

// Shutdown waits for in-flight loads and rebuilds and rejects new ones.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.running.Wait()
}

// acquire locks the domain for a load or rebuild.
func (m *Manager) acquire(name string) (*entry, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errShutdown
	}
	e, ok := m.entries[name]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%q: %w", name, domain.ErrUnknownDomain)
	}
	m.running.Add(1)
	m.mu.Unlock()

	e.build.Lock()
	return e, nil
}

func (m *Manager) release(e *entry) {
	e.build.Unlock()
	m.running.Done()
}

func (m *Manager) snapshot(e *entry) domcol.Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return e.col
}

func (m *Manager) transition(e *entry, next domcol.State) error {
	m.mu.Lock()
	col, err := e.col.Transition(next)
	if err == nil {
		e.col = col
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}
	metrics.SetCollectionState(e.src.Domain, string(next), allStates)
	return nil
}

// activate swaps in s and marks the domain READY.
func (m *Manager) activate(e *entry, s *serving) {
	m.mu.Lock()
	col, err := e.col.Activate(s.index, len(s.chunks), s.dim)
	if err == nil {
		e.col = col
		e.serving = s
	}
	m.mu.Unlock()
	if err != nil {
		m.logger.Error("Collection activation failed", zap.String("domain", e.src.Domain), zap.Error(err))
		return
	}
	metrics.SetCollectionState(e.src.Domain, string(domcol.StateReady), allStates)
	metrics.CollectionChunks.WithLabelValues(e.src.Domain).Set(float64(len(s.chunks)))
}

func (m *Manager) fail(e *entry, cause error) {
	m.mu.Lock()
	col, err := e.col.Fail(cause)
	if err == nil {
		e.col = col
		e.serving = nil
	}
	m.mu.Unlock()
	if err != nil {
		m.logger.Error("Collection failure transition rejected", zap.String("domain", e.src.Domain), zap.Error(err))
		return
	}
	metrics.SetCollectionState(e.src.Domain, string(domcol.StateFailed), allStates)
	metrics.CollectionChunks.WithLabelValues(e.src.Domain).Set(0)
}
