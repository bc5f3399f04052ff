package chunkindex

import (
	"fmt"
	"strconv"

	"github.com/kailas-cloud/carekb/internal/db"
	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	"github.com/kailas-cloud/carekb/internal/domain/collection"
)

const (
	fieldContent  = "content"
	fieldMetadata = "metadata"
	fieldDomain   = "domain"
	fieldOrdinal  = "ordinal"
	fieldVector   = "vector"
)

// toHash converts a chunk and its vector into a flat map for HSET.
func toHash(c chunk.Chunk, vec []float32, ordinal int) (map[string]string, error) {
	md, err := chunk.MarshalMetadata(c.Metadata())
	if err != nil {
		return nil, err
	}
	return map[string]string{
		fieldContent:  c.Content(),
		fieldMetadata: string(md),
		fieldDomain:   c.Domain(),
		fieldOrdinal:  strconv.Itoa(ordinal),
		fieldVector:   string(db.EncodeVector(vec)),
	}, nil
}

// fromHash hydrates a chunk and its stored ordinal from hash fields.
func fromHash(m map[string]string) (chunk.Chunk, int, error) {
	content, ok := m[fieldContent]
	if !ok {
		return chunk.Chunk{}, 0, fmt.Errorf("missing %s field", fieldContent)
	}
	md := chunk.Metadata{}
	if raw := m[fieldMetadata]; raw != "" {
		parsed, err := chunk.UnmarshalMetadata([]byte(raw))
		if err != nil {
			return chunk.Chunk{}, 0, fmt.Errorf("metadata: %w", err)
		}
		md = parsed
	}
	ordinal, err := strconv.Atoi(m[fieldOrdinal])
	if err != nil {
		ordinal = -1
	}
	return chunk.Reconstruct(content, md), ordinal, nil
}

// generationDTO is the JSON form of the active generation pointer.
type generationDTO struct {
	Domain    string `json:"domain"`
	Number    int64  `json:"generation"`
	Index     string `json:"index"`
	Chunks    int    `json:"chunks"`
	VectorDim int    `json:"vector_dim"`
	BuiltAt   int64  `json:"built_at"`
}

func fromGeneration(g collection.Generation) generationDTO {
	return generationDTO(g)
}

func (d generationDTO) toDomain() collection.Generation {
	return collection.Generation(d)
}
