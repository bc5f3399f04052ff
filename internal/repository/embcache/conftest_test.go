package embcache

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carekb/internal/db"
	"github.com/kailas-cloud/carekb/internal/domain"
)

// countingEmbedder returns a fixed result and counts provider calls.
type countingEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (e *countingEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	e.calls++
	return e.result, e.err
}

// mockKVStore keeps entries in memory. getFn and setFn replace the defaults.
type mockKVStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	gets  int
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = value
	return nil
}

func newTestCache(t *testing.T, hotSize int) (*Cache, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	c, err := NewCache(ms, hotSize, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return c, ms
}
