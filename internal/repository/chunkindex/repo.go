package chunkindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/carekb/internal/db"
	"github.com/kailas-cloud/carekb/internal/domain"
	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	"github.com/kailas-cloud/carekb/internal/domain/collection"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
)

// store is the consumer interface for persisted chunk indexes (ISP).
//
//nolint:interfacebloat // generation lifecycle needs kv + hash + index + search operations
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string) (int, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo stores chunk generations and the per-domain active pointer.
type Repo struct {
	store     store
	hnsw      HNSWConfig
	writeSize int
	pageSize  int
	now       func() time.Time
}

// New creates a chunk index repository.
func New(s store) *Repo {
	return &Repo{
		store:     s,
		hnsw:      HNSWConfig{M: 16, EFConstruct: 200},
		writeSize: 500,
		pageSize:  1000,
		now:       time.Now,
	}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Active returns the generation currently serving the domain, or domain.ErrNotFound.
func (r *Repo) Active(ctx context.Context, domainName string) (collection.Generation, error) {
	raw, err := r.store.Get(ctx, activeKey(domainName))
	if errors.Is(err, db.ErrKeyNotFound) {
		return collection.Generation{}, domain.ErrNotFound
	}
	if err != nil {
		return collection.Generation{}, fmt.Errorf("get active generation %s: %w", domainName, err)
	}
	var dto generationDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return collection.Generation{}, fmt.Errorf("decode active generation %s: %w", domainName, err)
	}
	return dto.toDomain(), nil
}

// Create allocates the next generation index for the domain.
// A stale index left behind by an interrupted build under the same name is dropped first.
func (r *Repo) Create(ctx context.Context, domainName string, vectorDim int) (collection.Generation, error) {
	if vectorDim <= 0 {
		return collection.Generation{}, fmt.Errorf("create %s: %w", domainName, domain.ErrVectorDimMismatch)
	}

	next := int64(1)
	if cur, err := r.Active(ctx, domainName); err == nil {
		next = cur.Number + 1
	} else if !errors.Is(err, domain.ErrNotFound) {
		return collection.Generation{}, err
	}

	g := collection.Generation{
		Domain:    domainName,
		Number:    next,
		Index:     IndexName(domainName, next),
		VectorDim: vectorDim,
	}

	if err := r.Drop(ctx, g.Index); err != nil {
		return collection.Generation{}, err
	}
	if err := r.store.CreateIndex(ctx, buildIndex(g, r.hnsw)); err != nil {
		return collection.Generation{}, fmt.Errorf("create index %s: %w", g.Index, err)
	}
	return g, nil
}

// Add writes chunks with their vectors into the generation. Slice order becomes the stored order.
func (r *Repo) Add(ctx context.Context, g collection.Generation, chunks []chunk.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("add to %s: %d chunks, %d vectors", g.Index, len(chunks), len(vectors))
	}

	for start := 0; start < len(chunks); start += r.writeSize {
		end := min(start+r.writeSize, len(chunks))
		items := make([]db.HashSetItem, 0, end-start)
		for i := start; i < end; i++ {
			if len(vectors[i]) != g.VectorDim {
				return fmt.Errorf("chunk %d of %s: %w", i, g.Index, domain.ErrVectorDimMismatch)
			}
			fields, err := toHash(chunks[i], vectors[i], i)
			if err != nil {
				return fmt.Errorf("encode chunk %d of %s: %w", i, g.Index, err)
			}
			items = append(items, db.HashSetItem{Key: chunkKey(g.Index, chunks[i].ID()), Fields: fields})
		}
		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("write chunks to %s: %w", g.Index, err)
		}
	}
	return nil
}

// Activate points the domain at g, recording its final chunk count.
func (r *Repo) Activate(ctx context.Context, g collection.Generation, chunkCount int) (collection.Generation, error) {
	g.Chunks = chunkCount
	g.BuiltAt = r.now().UnixMilli()
	raw, err := json.Marshal(fromGeneration(g))
	if err != nil {
		return collection.Generation{}, fmt.Errorf("encode generation: %w", err)
	}
	if err := r.store.Set(ctx, activeKey(g.Domain), raw); err != nil {
		return collection.Generation{}, fmt.Errorf("set active generation %s: %w", g.Domain, err)
	}
	return g, nil
}

// Exists reports whether the generation index is present in the store.
func (r *Repo) Exists(ctx context.Context, indexName string) (bool, error) {
	ok, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", indexName, err)
	}
	return ok, nil
}

// Count returns the number of chunks stored in the generation index.
func (r *Repo) Count(ctx context.Context, indexName string) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", indexName, err)
	}
	return n, nil
}

// KNN returns the k nearest chunks to vec, closest first.
func (r *Repo) KNN(ctx context.Context, indexName string, vec []float32, k int) ([]result.Hit, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Vector:       vec,
		K:            k,
		ReturnFields: []string{fieldContent, fieldMetadata, fieldOrdinal},
	})
	if err != nil {
		return nil, fmt.Errorf("knn %s: %w", indexName, err)
	}

	hits := make([]result.Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		c, _, err := fromHash(e.Fields)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Key, err)
		}
		hits = append(hits, result.Hit{Chunk: c, Distance: e.Score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits, nil
}

// All loads every chunk of the generation in stored order.
func (r *Repo) All(ctx context.Context, indexName string) ([]chunk.Chunk, error) {
	type row struct {
		ordinal int
		chunk   chunk.Chunk
	}
	var rows []row

	for offset := 0; ; offset += r.pageSize {
		res, err := r.store.SearchList(ctx, indexName, offset, r.pageSize,
			[]string{fieldContent, fieldMetadata, fieldOrdinal})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", indexName, err)
		}
		for _, e := range res.Entries {
			c, ord, err := fromHash(e.Fields)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", e.Key, err)
			}
			rows = append(rows, row{ordinal: ord, chunk: c})
		}
		if len(res.Entries) < r.pageSize || offset+len(res.Entries) >= res.Total {
			break
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ordinal < rows[j].ordinal })
	chunks := make([]chunk.Chunk, len(rows))
	for i := range rows {
		chunks[i] = rows[i].chunk
	}
	return chunks, nil
}

// Drop removes a generation index and its chunks. A missing index is not an error.
func (r *Repo) Drop(ctx context.Context, indexName string) error {
	err := r.store.DropIndex(ctx, indexName)
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", indexName, err)
	}
	keys, err := r.store.Scan(ctx, chunkPrefix(indexName)+"*")
	if err != nil {
		return fmt.Errorf("scan %s: %w", indexName, err)
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", indexName, err)
	}
	return nil
}

// Reset drops every generation of the domain and clears its active pointer.
func (r *Repo) Reset(ctx context.Context, domainName string) error {
	keys, err := r.store.Scan(ctx, domainPattern(domainName))
	if err != nil {
		return fmt.Errorf("scan %s: %w", domainName, err)
	}

	indexes := map[string]struct{}{}
	if g, err := r.Active(ctx, domainName); err == nil {
		indexes[g.Index] = struct{}{}
	}
	for _, k := range keys {
		if name, ok := indexFromKey(domainName, k); ok {
			indexes[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(indexes))
	for name := range indexes {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		errs = append(errs, r.Drop(ctx, name))
	}
	errs = append(errs, r.store.Del(ctx, activeKey(domainName)))
	return errors.Join(errs...)
}
