package plan

import (
	"github.com/kailas-cloud/carekb/internal/domain/search/filter"
	"github.com/kailas-cloud/carekb/internal/domain/search/intent"
)

// Plan is the routing decision for one query: what text to embed, which
// collections to search in priority order, and the advisory metadata filter.
type Plan struct {
	RawQuery      string
	EnhancedQuery string
	Targets       []string
	Filter        filter.Expression
	Intent        intent.Intent
}
