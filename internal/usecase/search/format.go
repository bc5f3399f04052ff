package search

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
)

const unknownSource = "알 수 없음"

// FormatContext renders hits as numbered reference blocks for a prompt.
func FormatContext(hits []result.Scored) string {
	blocks := make([]string, 0, len(hits))
	for i, h := range hits {
		blocks = append(blocks, fmt.Sprintf("참고자료 %d [출처: %s]:\n%s\n", i+1, sourceOf(h.Chunk()), h.Chunk().Content()))
	}
	return strings.Join(blocks, "\n")
}

func sourceOf(c chunk.Chunk) string {
	md := c.Metadata()
	if s := md.String(chunk.KeySource); s != "" {
		return s
	}
	if s := md.String(chunk.KeyDataType); s != "" {
		return s
	}
	return unknownSource
}
