package search

import (
	"context"

	"github.com/kailas-cloud/carekb/internal/domain"
	"github.com/kailas-cloud/carekb/internal/domain/profile"
	"github.com/kailas-cloud/carekb/internal/domain/search/plan"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
	"github.com/kailas-cloud/carekb/internal/usecase/keyword"
)

// Collections serves nearest-neighbor queries per domain.
type Collections interface {
	Ready(name string) bool
	Nearest(ctx context.Context, name string, vec []float32, k int) ([]result.Hit, error)
}

// KeywordSearcher ranks a domain's chunks lexically.
type KeywordSearcher interface {
	Search(ctx context.Context, query string, k int, domainName string) ([]keyword.Match, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Router builds the plan of one query.
type Router interface {
	Route(query string, p *profile.Profile) plan.Plan
}
