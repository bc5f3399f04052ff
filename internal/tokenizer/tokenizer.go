// Package tokenizer estimates provider token counts for batch planning.
package tokenizer

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding names.
const (
	// DefaultEncoding matches the OpenAI embedding models.
	DefaultEncoding = "cl100k_base"
	// HeuristicEncoding skips BPE and estimates from text length.
	HeuristicEncoding = "heuristic"
)

// Counter counts tokens deterministically.
type Counter interface {
	Count(text string) int
}

// Tiktoken counts tokens with a BPE encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the named encoding.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Count returns the number of BPE tokens in text.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Heuristic approximates tokens as one per four characters, rounded up.
type Heuristic struct{}

// Count returns ceil(runes/4), at least 1 for non-empty text.
func (Heuristic) Count(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// New returns a tiktoken counter, or the heuristic when the encoding
// cannot be loaded (e.g. offline without a cached BPE file).
func New(encoding string) (Counter, error) {
	if encoding == HeuristicEncoding {
		return Heuristic{}, nil
	}
	t, err := NewTiktoken(encoding)
	if err != nil {
		return Heuristic{}, err
	}
	return t, nil
}
