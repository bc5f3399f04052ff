// Package db is the storage contract shared by the Redis and SQLite backends.
//
// The engine keeps three kinds of data in one store: small values (embedding
// cache entries, budget counters, active generation pointers), one hash per
// chunk, and vector indexes defined over hash key prefixes.
package db

import (
	"context"
	"time"
)

// Store is implemented by every backend. Consumers declare the narrow subset
// they need next to where they use it.
//
//nolint:interfacebloat // backend facade; consumers depend on subsets
type Store interface {
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()

	// Values. Get reports ErrKeyNotFound for missing keys.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error

	// Hashes. HGetAll of a missing key is an empty map.
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)

	// Indexes. DropIndex removes the indexed hashes too.
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)

	// Queries.
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchList(ctx context.Context, index string, offset, limit int, fields []string) (*SearchResult, error)
	SearchCount(ctx context.Context, index string) (int, error)
}

// HashSetItem is one hash written by HSetMulti.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}
