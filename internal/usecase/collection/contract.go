package collection

import (
	"context"

	"github.com/kailas-cloud/carekb/internal/corpus"
	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	domcol "github.com/kailas-cloud/carekb/internal/domain/collection"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
)

// Loader chunks the documents of one domain.
type Loader interface {
	Load(ctx context.Context, src corpus.Source) ([]chunk.Chunk, error)
}

// Pipeline embeds texts in order, leaving nil holes for failed batches.
type Pipeline interface {
	EmbedAll(ctx context.Context, texts []string) [][]float32
}

// IndexRepository persists chunk generations and the active pointer per domain.
//
//nolint:interfacebloat // generation lifecycle
type IndexRepository interface {
	Active(ctx context.Context, domainName string) (domcol.Generation, error)
	Create(ctx context.Context, domainName string, vectorDim int) (domcol.Generation, error)
	Add(ctx context.Context, g domcol.Generation, chunks []chunk.Chunk, vectors [][]float32) error
	Activate(ctx context.Context, g domcol.Generation, chunkCount int) (domcol.Generation, error)
	Exists(ctx context.Context, indexName string) (bool, error)
	Count(ctx context.Context, indexName string) (int, error)
	All(ctx context.Context, indexName string) ([]chunk.Chunk, error)
	KNN(ctx context.Context, indexName string, vec []float32, k int) ([]result.Hit, error)
	Drop(ctx context.Context, indexName string) error
	Reset(ctx context.Context, domainName string) error
}
