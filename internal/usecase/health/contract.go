package health

import (
	"context"

	domcol "github.com/kailas-cloud/carekb/internal/domain/collection"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CollectionLister reports the lifecycle of every configured collection.
type CollectionLister interface {
	Status() []domcol.Collection
}
