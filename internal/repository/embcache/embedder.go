package embcache

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/carekb/internal/domain"
)

// QueryEmbedder answers single-text embedding calls from the cache first.
// Query strings repeat often enough that a hit skips the provider round trip.
type QueryEmbedder struct {
	next  domain.Embedder
	cache *Cache
}

// NewEmbedder wraps next with cache lookups.
func NewEmbedder(next domain.Embedder, cache *Cache) *QueryEmbedder {
	return &QueryEmbedder{next: next, cache: cache}
}

// Embed reports zero tokens on a hit.
func (q *QueryEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vec, hit := q.cache.Get(ctx, text)
	if hit {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	res, err := q.next.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed query text: %w", err)
	}
	q.cache.Put(ctx, text, res.Embedding)
	return res, nil
}
