package chunk

import (
	"crypto/md5" //nolint:gosec // content addressing, not security
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Well-known metadata keys.
const (
	KeySource      = "source_identifier"
	KeyDomain      = "collection_domain"
	KeyChunkIndex  = "chunk_index"
	KeyTotalChunks = "total_chunks"
	KeyItemIndex   = "item_index"
	KeyDocumentID  = "document_id"
	KeyDataType    = "data_type"
	KeyTitle       = "title"
	KeySubtitle    = "subtitle"
	KeyCategories  = "categories"
	KeyKeywords    = "keywords"
)

// DataTypeMedication marks chunks produced from structured medication records.
const DataTypeMedication = "medication"

var idNamespace = uuid.MustParse("6b1f3c52-8d0e-4e7a-9a51-2f4c1d7e9b30")

// Chunk is the minimal retrievable unit: normalized text plus primitive metadata (immutable).
type Chunk struct {
	content  string
	metadata Metadata
}

// New validates and creates a Chunk. Content is trimmed and must stay non-empty;
// metadata is sanitized to primitive values.
func New(content string, metadata map[string]any) (Chunk, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Chunk{}, fmt.Errorf("chunk content is required")
	}
	return Chunk{content: content, metadata: Sanitize(metadata)}, nil
}

// Reconstruct creates a Chunk without validation (storage hydration).
func Reconstruct(content string, metadata Metadata) Chunk {
	return Chunk{content: content, metadata: metadata}
}

// Content returns the chunk text.
func (c Chunk) Content() string { return c.content }

// Metadata returns the chunk metadata. Callers must not mutate it.
func (c Chunk) Metadata() Metadata { return c.metadata }

// Domain returns the collection domain the chunk was created for.
func (c Chunk) Domain() string { return c.metadata.String(KeyDomain) }

// Source returns the source document identifier.
func (c Chunk) Source() string { return c.metadata.String(KeySource) }

// IsMedication reports whether the chunk came from a structured medication record.
func (c Chunk) IsMedication() bool { return c.metadata.String(KeyDataType) == DataTypeMedication }

// Key identifies a chunk by content and metadata: equal text from different
// documents stays distinct, exact duplicates collapse.
func (c Chunk) Key() string {
	return hashHex([]byte(c.content)) + "_" + hashHex(c.metadata.canonicalJSON())
}

// ID is a deterministic storage identifier derived from Key.
func (c Chunk) ID() string {
	return uuid.NewSHA1(idNamespace, []byte(c.Key())).String()
}

// With returns a copy of the chunk with extra metadata merged in.
func (c Chunk) With(extra map[string]any) Chunk {
	md := make(Metadata, len(c.metadata)+len(extra))
	for k, v := range c.metadata {
		md[k] = v
	}
	for k, v := range Sanitize(extra) {
		md[k] = v
	}
	return Chunk{content: c.content, metadata: md}
}

func hashHex(b []byte) string {
	sum := md5.Sum(b) //nolint:gosec // content addressing, not security
	return hex.EncodeToString(sum[:])
}

// HashText returns the hex md5 digest of text, the content address used across the service.
func HashText(text string) string {
	return hashHex([]byte(text))
}

// MarshalMetadata encodes metadata as JSON with sorted keys.
func MarshalMetadata(md Metadata) ([]byte, error) {
	return json.Marshal(map[string]any(md))
}
