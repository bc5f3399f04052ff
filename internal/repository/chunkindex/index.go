package chunkindex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/carekb/internal/db"
	"github.com/kailas-cloud/carekb/internal/domain"
	"github.com/kailas-cloud/carekb/internal/domain/collection"
)

// Key patterns:
//   index      carekb_{domain}_{generation}
//   chunk      carekb:chunk:{index}:{chunk id}
//   pointer    carekb:collection:{domain}:active

// IndexName returns the index name of a domain generation.
func IndexName(domainName string, generation int64) string {
	return fmt.Sprintf("carekb_%s_%d", domainName, generation)
}

func chunkPrefix(indexName string) string {
	return fmt.Sprintf("%schunk:%s:", domain.KeyPrefix, indexName)
}

func chunkKey(indexName, id string) string {
	return chunkPrefix(indexName) + id
}

func activeKey(domainName string) string {
	return fmt.Sprintf("%scollection:%s:active", domain.KeyPrefix, domainName)
}

// domainPattern matches chunk keys of every generation of a domain; callers
// confirm each hit with indexFromKey since the glob also admits longer domain names.
func domainPattern(domainName string) string {
	return fmt.Sprintf("%schunk:carekb_%s_*", domain.KeyPrefix, domainName)
}

// indexFromKey extracts the index name from a chunk key when it belongs to domainName.
func indexFromKey(domainName, key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, domain.KeyPrefix+"chunk:")
	if !ok {
		return "", false
	}
	name, _, ok := strings.Cut(rest, ":")
	if !ok {
		return "", false
	}
	gen, ok := strings.CutPrefix(name, "carekb_"+domainName+"_")
	if !ok {
		return "", false
	}
	if _, err := strconv.ParseInt(gen, 10, 64); err != nil {
		return "", false
	}
	return name, true
}

// buildIndex defines the FT index of one generation: content as TEXT, the
// domain as TAG, the stored ordinal as NUMERIC and the HNSW cosine vector.
func buildIndex(g collection.Generation, hnsw HNSWConfig) *db.IndexDefinition {
	return db.NewIndex(g.Index).
		Prefix(chunkPrefix(g.Index)).
		Text(fieldContent).
		Tag(fieldDomain).
		Numeric(fieldOrdinal).
		Vector(fieldVector, db.HNSW(g.VectorDim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct)).
		MustBuild()
}
