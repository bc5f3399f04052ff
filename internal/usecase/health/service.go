// Package health aggregates component checks into one report.
package health

import (
	"context"
	"sync"
	"time"

	domcol "github.com/kailas-cloud/carekb/internal/domain/collection"
)

// Status is the overall verdict.
type Status string

// Overall verdicts.
const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded"
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one component check.
type CheckResult string

// Check outcomes. CheckPending marks a collection that is loading or
// rebuilding without a generation to serve from.
const (
	CheckOK      CheckResult = "ok"
	CheckError   CheckResult = "error"
	CheckPending CheckResult = "pending"
)

const (
	checkDatabase  = "database"
	checkEmbedding = "embedding"
	collectionKey  = "collection:"

	checkTimeout = 5 * time.Second
)

// Report is keyed by check name: database, embedding and collection:<name>.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs the health checks.
type Service struct {
	db          DBPinger
	embedding   EmbeddingChecker
	collections CollectionLister
}

// New creates a Service. embedding and collections may be nil.
func New(db DBPinger, embedding EmbeddingChecker, collections CollectionLister) *Service {
	return &Service{db: db, embedding: embedding, collections: collections}
}

// Check pings the store and the provider concurrently, then adds one
// entry per collection. A failed entry degrades the report. If collections
// exist but none can serve queries the report is unhealthy.
func (s *Service) Check(ctx context.Context) Report {
	pings := map[string]func(context.Context) error{checkDatabase: s.db.Ping}
	if s.embedding != nil {
		pings[checkEmbedding] = s.embedding.HealthCheck
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(pings))
	)
	for name, ping := range pings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := CheckOK
			if ping(ctx) != nil {
				res = CheckError
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	var cols []domcol.Collection
	if s.collections != nil {
		cols = s.collections.Status()
	}
	serving := 0
	for _, c := range cols {
		checks[collectionKey+c.Name()] = collectionCheck(c)
		if servesQueries(c) {
			serving++
		}
	}

	return Report{Status: verdict(checks, len(cols), serving), Checks: checks}
}

func verdict(checks map[string]CheckResult, collections, serving int) Status {
	if collections > 0 && serving == 0 {
		return Unhealthy
	}
	for _, res := range checks {
		if res == CheckError {
			return Degraded
		}
	}
	return Healthy
}

func collectionCheck(c domcol.Collection) CheckResult {
	if c.State() == domcol.StateFailed {
		return CheckError
	}
	if servesQueries(c) {
		return CheckOK
	}
	return CheckPending
}

// servesQueries includes a collection rebuilding over a previous generation.
func servesQueries(c domcol.Collection) bool {
	return c.Ready() || (c.State() == domcol.StateRebuilding && c.IndexName() != "")
}
