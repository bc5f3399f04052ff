package result

import "github.com/kailas-cloud/carekb/internal/domain/chunk"

// Scored is a single ranked hit with its per-signal scores (transient, per query).
type Scored struct {
	chunk        chunk.Chunk
	collection   string
	vectorScore  float64
	keywordScore float64
	fusedScore   float64
}

// New creates a scored hit.
func New(c chunk.Chunk, collection string, vectorScore, keywordScore, fusedScore float64) Scored {
	return Scored{
		chunk: c, collection: collection,
		vectorScore: vectorScore, keywordScore: keywordScore, fusedScore: fusedScore,
	}
}

// Chunk returns the matched chunk.
func (s Scored) Chunk() chunk.Chunk { return s.chunk }

// Collection returns the domain the hit came from.
func (s Scored) Collection() string { return s.collection }

// VectorScore returns the normalized vector similarity in [0,1] (0 if absent).
func (s Scored) VectorScore() float64 { return s.vectorScore }

// KeywordScore returns the normalized keyword score in [0,1] (0 if absent).
func (s Scored) KeywordScore() float64 { return s.keywordScore }

// FusedScore returns the combined ranking score.
func (s Scored) FusedScore() float64 { return s.fusedScore }

// Hit is a nearest-neighbor match with its raw cosine distance (lower is closer).
type Hit struct {
	Chunk    chunk.Chunk
	Distance float64
}
