package collection

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carekb/internal/corpus"
	"github.com/kailas-cloud/carekb/internal/db/sqlite"
	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	domcol "github.com/kailas-cloud/carekb/internal/domain/collection"
	"github.com/kailas-cloud/carekb/internal/repository/chunkindex"
)

type fakeLoader struct {
	mu     sync.Mutex
	chunks map[string][]chunk.Chunk
	errs   map[string]error
	calls  map[string]int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		chunks: map[string][]chunk.Chunk{},
		errs:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (f *fakeLoader) set(domainName string, chunks []chunk.Chunk, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[domainName] = chunks
	f.errs[domainName] = err
}

func (f *fakeLoader) Load(_ context.Context, src corpus.Source) ([]chunk.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[src.Domain]++
	return f.chunks[src.Domain], f.errs[src.Domain]
}

func (f *fakeLoader) callCount(domainName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[domainName]
}

// fakePipeline embeds a text as [runes, 1], or leaves a hole for texts in drop.
type fakePipeline struct {
	mu   sync.Mutex
	drop map[string]bool
}

func (p *fakePipeline) EmbedAll(_ context.Context, texts []string) [][]float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if p.drop[t] {
			continue
		}
		out[i] = []float32{float32(len([]rune(t))), 1}
	}
	return out
}

func newRepo(t *testing.T) *chunkindex.Repo {
	t.Helper()
	s, err := sqlite.NewStore(sqlite.Config{Path: filepath.Join(t.TempDir(), "carekb.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(s.Close)
	return chunkindex.New(s)
}

func sources() []corpus.Source {
	return []corpus.Source{
		{Domain: "medication", Kind: domcol.KindStructured, Dir: "medications"},
		{Domain: "general", Kind: domcol.KindGeneral, Dir: "guides"},
	}
}

func newTestManager(t *testing.T, repo IndexRepository, loader Loader, pipe Pipeline) *Manager {
	t.Helper()
	m, err := NewManager(sources(), loader, pipe, repo, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func testChunks(t *testing.T, domainName string, contents ...string) []chunk.Chunk {
	t.Helper()
	out := make([]chunk.Chunk, 0, len(contents))
	for i, content := range contents {
		c, err := chunk.New(content, map[string]any{
			chunk.KeyDomain:     domainName,
			chunk.KeySource:     domainName + ".md",
			chunk.KeyChunkIndex: i,
		})
		if err != nil {
			t.Fatalf("chunk.New: %v", err)
		}
		out = append(out, c)
	}
	return out
}
