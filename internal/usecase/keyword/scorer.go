// Package keyword ranks collection chunks by a length-weighted term frequency.
package keyword

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/carekb/internal/domain/chunk"
)

var stopWords = map[string]bool{
	"은": true, "는": true, "이": true, "가": true, "을": true, "를": true,
	"에": true, "의": true, "와": true, "과": true, "도": true, "로": true, "으로": true,
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true, "with": true,
}

// ChunkSource returns the serving chunks of a domain.
type ChunkSource interface {
	Chunks(domainName string) ([]chunk.Chunk, error)
}

// Match is a chunk with its raw keyword score.
type Match struct {
	Chunk chunk.Chunk
	Score float64
}

// Scorer runs keyword search over a domain's chunks.
type Scorer struct {
	source ChunkSource
}

// New creates a keyword scorer.
func New(source ChunkSource) *Scorer {
	return &Scorer{source: source}
}

// Keywords lowercases the query, turns punctuation into spaces and keeps
// tokens longer than one rune that are not stop words.
func Keywords(query string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(query))

	var out []string
	for _, tok := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(tok) > 1 && !stopWords[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// Score sums occurrences of every keyword in content, each weighted by
// runelen(keyword)/10 + 1. Keywords must already be lowercase.
func Score(content string, keywords []string) float64 {
	lower := strings.ToLower(content)
	var score float64
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		n := strings.Count(lower, kw)
		if n == 0 {
			continue
		}
		score += float64(n) * (float64(utf8.RuneCountInString(kw))/10 + 1)
	}
	return score
}

// Search scores every chunk of the domain and returns the top k with a
// positive score, best first. Equal scores keep stored order.
func (s *Scorer) Search(_ context.Context, query string, k int, domainName string) ([]Match, error) {
	chunks, err := s.source.Chunks(domainName)
	if err != nil {
		return nil, fmt.Errorf("keyword search %s: %w", domainName, err)
	}
	keywords := Keywords(query)
	if len(keywords) == 0 || k <= 0 {
		return nil, nil
	}

	var matches []Match
	for _, c := range chunks {
		if score := Score(c.Content(), keywords); score > 0 {
			matches = append(matches, Match{Chunk: c, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
