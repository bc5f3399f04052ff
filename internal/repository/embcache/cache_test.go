package embcache

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/carekb/internal/domain"
)

func TestKey_MD5OfText(t *testing.T) {
	// md5("hello") = 5d41402abc4b2a76b9719d911017c592
	if got := Key("hello"); got != "carekb:emb_cache:5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("Key = %q", got)
	}
}

func TestCache_PutThenGet(t *testing.T) {
	c, ms := newTestCache(t, 0)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "강아지 산책"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Put(ctx, "강아지 산책", []float32{0.25, -0.5, 1})

	got, ok := c.Get(ctx, "강아지 산책")
	if !ok {
		t.Fatal("expected hit after put")
	}
	if len(got) != 3 || got[0] != 0.25 || got[1] != -0.5 {
		t.Errorf("vector = %v", got)
	}
	if len(ms.data[Key("강아지 산책")]) != 12 {
		t.Errorf("stored %d bytes, want 12", len(ms.data[Key("강아지 산책")]))
	}
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     {},
		"truncated": {1, 2, 3, 4, 5},
	} {
		t.Run(name, func(t *testing.T) {
			c, ms := newTestCache(t, 0)
			ms.data = map[string][]byte{Key("t"): data}
			if _, ok := c.Get(context.Background(), "t"); ok {
				t.Fatal("corrupt entry must be a miss")
			}
		})
	}
}

func TestCache_StoreErrorsNeverFatal(t *testing.T) {
	c, ms := newTestCache(t, 0)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, errors.New("connection reset")
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte) error {
		return errors.New("read only replica")
	}
	ctx := context.Background()

	c.Put(ctx, "t", []float32{1})
	if _, ok := c.Get(ctx, "t"); ok {
		t.Fatal("expected miss when store fails")
	}
}

func TestCache_HotLayerServesRepeatReads(t *testing.T) {
	c, ms := newTestCache(t, 8)
	ctx := context.Background()

	c.Put(ctx, "t", []float32{1, 2})
	for range 3 {
		if _, ok := c.Get(ctx, "t"); !ok {
			t.Fatal("expected hit")
		}
	}
	if ms.gets != 0 {
		t.Errorf("store reads = %d, want 0 with a warm LRU", ms.gets)
	}

	got, _ := c.Get(ctx, "t")
	got[0] = 99
	again, _ := c.Get(ctx, "t")
	if again[0] != 1 {
		t.Error("callers must not be able to mutate cached vectors")
	}
}

func TestCache_HitMissCounter(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	c, err := NewCache(&mockKVStore{}, 0, counter, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	ctx := context.Background()

	c.Get(ctx, "a")
	c.Put(ctx, "a", []float32{1})
	c.Get(ctx, "a")
	c.Get(ctx, "b")

	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
}

func TestQueryEmbedder(t *testing.T) {
	inner := &countingEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 7}}
	c, _ := newTestCache(t, 0)
	e := NewEmbedder(inner, c)
	ctx := context.Background()

	first, err := e.Embed(ctx, "질문")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if first.TotalTokens != 7 {
		t.Errorf("miss should report provider tokens, got %d", first.TotalTokens)
	}

	second, err := e.Embed(ctx, "질문")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if second.TotalTokens != 0 || inner.calls != 1 {
		t.Errorf("hit should skip the provider: tokens=%d calls=%d", second.TotalTokens, inner.calls)
	}
}

func TestQueryEmbedder_InnerError(t *testing.T) {
	inner := &countingEmbedder{err: domain.ErrEmbeddingProviderError}
	c, ms := newTestCache(t, 0)
	e := NewEmbedder(inner, c)

	if _, err := e.Embed(context.Background(), "x"); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if len(ms.data) != 0 {
		t.Error("failed embeddings must not be cached")
	}
}
