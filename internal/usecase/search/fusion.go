package search

import (
	"sort"

	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
	"github.com/kailas-cloud/carekb/internal/usecase/keyword"
)

// Fusion selects how vector and keyword rankings are combined.
type Fusion string

// Fusion strategies.
const (
	FusionWeighted Fusion = "weighted"
	FusionRRF      Fusion = "rrf"
)

// rrfK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const rrfK = 60

// candidate accumulates the signals of one chunk within a collection.
type candidate struct {
	chunk     chunk.Chunk
	vector    float64
	keyword   float64
	hasVector bool
	hasKW     bool
	rrf       float64
}

// normalizeDistances maps raw distances to similarities in [0,1]:
// the closest hit scores 1, the farthest 0. A single hit or a zero range scores 1.
func normalizeDistances(hits []result.Hit) []float64 {
	out := make([]float64, len(hits))
	if len(hits) == 0 {
		return out
	}
	lo, hi := hits[0].Distance, hits[0].Distance
	for _, h := range hits[1:] {
		lo = min(lo, h.Distance)
		hi = max(hi, h.Distance)
	}
	for i, h := range hits {
		if len(hits) == 1 || hi == lo {
			out[i] = 1
			continue
		}
		out[i] = 1 - (h.Distance-lo)/(hi-lo)
	}
	return out
}

// normalizeScores min-max scales keyword scores to [0,1]. A single match or a zero range scores 1.
func normalizeScores(matches []keyword.Match) []float64 {
	out := make([]float64, len(matches))
	if len(matches) == 0 {
		return out
	}
	lo, hi := matches[0].Score, matches[0].Score
	for _, m := range matches[1:] {
		lo = min(lo, m.Score)
		hi = max(hi, m.Score)
	}
	for i, m := range matches {
		if len(matches) == 1 || hi == lo {
			out[i] = 1
			continue
		}
		out[i] = (m.Score - lo) / (hi - lo)
	}
	return out
}

// fuse merges both rankings of one collection, deduplicated by chunk key,
// and returns the top k. First-seen order (vector list, then keyword list)
// breaks ties. With only one signal present its normalized score is the fused score.
func fuse(
	collection string, hits []result.Hit, matches []keyword.Match,
	strategy Fusion, vectorWeight, keywordWeight float64, k int,
) []result.Scored {
	var order []string
	merged := make(map[string]*candidate)
	get := func(c chunk.Chunk) *candidate {
		key := c.Key()
		if cand, ok := merged[key]; ok {
			return cand
		}
		cand := &candidate{chunk: c}
		merged[key] = cand
		order = append(order, key)
		return cand
	}

	vs := normalizeDistances(hits)
	for rank, h := range hits {
		cand := get(h.Chunk)
		if cand.hasVector {
			continue
		}
		cand.vector, cand.hasVector = vs[rank], true
		cand.rrf += 1.0 / float64(rrfK+rank+1)
	}
	ks := normalizeScores(matches)
	for rank, m := range matches {
		cand := get(m.Chunk)
		if cand.hasKW {
			continue
		}
		cand.keyword, cand.hasKW = ks[rank], true
		cand.rrf += 1.0 / float64(rrfK+rank+1)
	}

	single := len(hits) == 0 || len(matches) == 0
	out := make([]result.Scored, 0, len(order))
	for _, key := range order {
		c := merged[key]
		var fused float64
		switch {
		case single:
			fused = c.vector + c.keyword
		case strategy == FusionRRF:
			fused = c.rrf
		default:
			fused = vectorWeight*c.vector + keywordWeight*c.keyword
		}
		out = append(out, result.New(c.chunk, collection, c.vector, c.keyword, fused))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].FusedScore() > out[j].FusedScore() })
	if len(out) > k {
		out = out[:k]
	}
	return out
}
