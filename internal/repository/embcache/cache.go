package embcache

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/carekb/internal/db"
	"github.com/kailas-cloud/carekb/internal/domain"
	"github.com/kailas-cloud/carekb/internal/domain/chunk"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Cache maps text to its embedding vector, keyed by the md5 of the text.
// Store failures and corrupt entries degrade to misses; they are never returned.
type Cache struct {
	store      store
	hot        *lru.Cache[string, []float32]
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// NewCache creates a cache over s. hotSize > 0 puts an in-process LRU in front of the store.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func NewCache(s store, hotSize int, cacheTotal *prometheus.CounterVec, logger *zap.Logger) (*Cache, error) {
	c := &Cache{store: s, cacheTotal: cacheTotal, logger: logger}
	if hotSize > 0 {
		hot, err := lru.New[string, []float32](hotSize)
		if err != nil {
			return nil, fmt.Errorf("create lru: %w", err)
		}
		c.hot = hot
	}
	return c, nil
}

// Key returns the store key of text.
func Key(text string) string {
	return cacheKeyPrefix + chunk.HashText(text)
}

// Get returns the cached vector for text.
func (c *Cache) Get(ctx context.Context, text string) ([]float32, bool) {
	key := Key(text)

	if c.hot != nil {
		if vec, ok := c.hot.Get(key); ok {
			c.inc("hit")
			return clone(vec), true
		}
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return nil, false
	}

	vec, err := decode(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		c.inc("miss")
		return nil, false
	}

	if c.hot != nil {
		c.hot.Add(key, clone(vec))
	}
	c.inc("hit")
	return vec, true
}

// Put stores vec for text. Failures are logged.
func (c *Cache) Put(ctx context.Context, text string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	key := Key(text)
	if err := c.store.Set(ctx, key, db.EncodeVector(vec)); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
		return
	}
	if c.hot != nil {
		c.hot.Add(key, clone(vec))
	}
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func decode(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, errors.New("empty embedding cache entry")
	}
	return db.DecodeVector(data)
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
