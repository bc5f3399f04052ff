package search

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carekb/internal/domain"
	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
	"github.com/kailas-cloud/carekb/internal/usecase/keyword"
)

var errBackend = errors.New("backend down")

// fakeCollections returns canned hits per domain.
type fakeCollections struct {
	mu       sync.Mutex
	notReady map[string]bool
	hits     map[string][]result.Hit
	errs     map[string]error
	calls    int
}

func (f *fakeCollections) Ready(name string) bool { return !f.notReady[name] }

func (f *fakeCollections) Nearest(_ context.Context, name string, _ []float32, k int) ([]result.Hit, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	h := f.hits[name]
	if len(h) > k {
		h = h[:k]
	}
	return h, nil
}

// fakeKeywords returns canned matches per domain.
type fakeKeywords struct {
	mu      sync.Mutex
	matches map[string][]keyword.Match
	errs    map[string]error
	queries []string
}

func (f *fakeKeywords) Search(_ context.Context, query string, k int, name string) ([]keyword.Match, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	m := f.matches[name]
	if len(m) > k {
		m = m[:k]
	}
	return m, nil
}

type fakeEmbedder struct {
	err   error
	calls int
	texts []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.calls++
	f.texts = append(f.texts, text)
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

// stallingEmbedder never answers; it returns only when ctx ends.
type stallingEmbedder struct{}

func (stallingEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	<-ctx.Done()
	return domain.EmbeddingResult{}, ctx.Err()
}

func newTestEngine(colls *fakeCollections, kw *fakeKeywords, emb *fakeEmbedder, cfg EngineConfig) *Engine {
	return NewEngine(colls, kw, emb, cfg, zap.NewNop())
}

func mkChunk(t *testing.T, content string, md map[string]any) chunk.Chunk {
	t.Helper()
	c, err := chunk.New(content, md)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return c
}

func contents(hits []result.Scored) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Chunk().Content()
	}
	return out
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
