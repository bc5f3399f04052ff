package chunkindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/carekb/internal/db"
	"github.com/kailas-cloud/carekb/internal/db/sqlite"
	"github.com/kailas-cloud/carekb/internal/domain/chunk"
)

func newSQLiteRepo(t *testing.T) (*Repo, *sqlite.Store) {
	t.Helper()
	s, err := sqlite.NewStore(sqlite.Config{Path: filepath.Join(t.TempDir(), "index.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	return New(s), s
}

func testChunk(t *testing.T, content, domainName string, idx int) chunk.Chunk {
	t.Helper()
	c, err := chunk.New(content, map[string]any{
		chunk.KeyDomain:     domainName,
		chunk.KeySource:     "guides/walk.md",
		chunk.KeyChunkIndex: idx,
	})
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return c
}

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn         func(ctx context.Context, key string) ([]byte, error)
	setFn         func(ctx context.Context, key string, value []byte) error
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string) error
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) Del(_ context.Context, _ ...string) error { return nil }

func (m *mockStore) Scan(_ context.Context, _ string) ([]string, error) { return nil, nil }

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return db.ErrIndexNotFound
}

func (m *mockStore) IndexExists(_ context.Context, _ string) (bool, error) { return false, nil }

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchList(_ context.Context, _ string, _, _ int, _ []string) (*db.SearchResult, error) {
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(_ context.Context, _ string) (int, error) { return 0, nil }
