// Package router turns a query and optional pet profile into a search plan.
package router

import (
	"strings"

	"github.com/kailas-cloud/carekb/internal/domain/profile"
	"github.com/kailas-cloud/carekb/internal/domain/search/intent"
	"github.com/kailas-cloud/carekb/internal/domain/search/plan"
)

// Roles names the collection domains the router targets.
type Roles struct {
	General    string
	Medication string
}

// Router classifies queries and builds plans. Safe for concurrent use.
type Router struct {
	roles Roles
	opts  intent.FilterOptions
}

// New creates a router. A zero MedicationItemLimit selects the default.
func New(roles Roles, opts intent.FilterOptions) *Router {
	if opts.MedicationItemLimit == 0 {
		opts.MedicationItemLimit = intent.DefaultMedicationItemLimit
	}
	return &Router{roles: roles, opts: opts}
}

// Route classifies the query and returns the targets in priority order,
// the profile-enhanced query and the advisory filter.
func (r *Router) Route(query string, p *profile.Profile) plan.Plan {
	in := intent.Classify(query, p)

	var targets []string
	if in.Kind == intent.Treatment && r.roles.Medication != "" {
		targets = append(targets, r.roles.Medication)
	}
	if r.roles.General != "" {
		targets = append(targets, r.roles.General)
	}

	return plan.Plan{
		RawQuery:      query,
		EnhancedQuery: Enhance(query, p),
		Targets:       targets,
		Filter:        intent.Filter(in, r.opts),
		Intent:        in,
	}
}

// Enhance appends the profile terms to the query, space-joined.
func Enhance(query string, p *profile.Profile) string {
	terms := p.Terms()
	if len(terms) == 0 {
		return query
	}
	return query + " " + strings.Join(terms, " ")
}
