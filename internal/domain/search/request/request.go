package request

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/carekb/internal/domain"
	"github.com/kailas-cloud/carekb/internal/domain/profile"
	"github.com/kailas-cloud/carekb/internal/domain/search/mode"
)

// Limits applied by New. MaxQueryLength counts runes.
const (
	MaxQueryLength = 4096
	DefaultK       = 5
	MaxK           = 100
)

// Request is a validated search query.
type Request struct {
	query      string
	profile    *profile.Profile
	searchMode mode.Mode
	k          int
}

// New trims the query and validates it. An unknown mode falls back to
// hybrid; a non-positive k becomes DefaultK and larger values cap at MaxK.
func New(query string, p *profile.Profile, m mode.Mode, k int) (Request, error) {
	query = strings.TrimSpace(query)
	switch n := utf8.RuneCountInString(query); {
	case n == 0:
		return Request{}, domain.ErrEmptyQuery
	case n > MaxQueryLength:
		return Request{}, fmt.Errorf("%w: %d characters, limit %d", domain.ErrQueryTooLong, n, MaxQueryLength)
	}
	if !m.IsValid() {
		m = mode.Hybrid
	}
	return Request{query: query, profile: p, searchMode: m, k: clampK(k)}, nil
}

func clampK(k int) int {
	if k <= 0 {
		return DefaultK
	}
	return min(k, MaxK)
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Profile returns the optional pet context (may be nil).
func (r *Request) Profile() *profile.Profile { return r.profile }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// K returns the maximum number of results.
func (r *Request) K() int { return r.k }
