package search

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carekb/internal/domain/profile"
	"github.com/kailas-cloud/carekb/internal/domain/search/mode"
	"github.com/kailas-cloud/carekb/internal/domain/search/plan"
	"github.com/kailas-cloud/carekb/internal/domain/search/request"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
)

type stubRouter struct {
	targets []string
	got     string
}

func (r *stubRouter) Route(query string, _ *profile.Profile) plan.Plan {
	r.got = query
	return plan.Plan{RawQuery: query, EnhancedQuery: query, Targets: r.targets}
}

func TestService_Search(t *testing.T) {
	f := newFixture()
	for _, s := range []string{"one", "two", "three"} {
		f.colls.hits["general"] = append(f.colls.hits["general"], result.Hit{Chunk: mkChunk(t, s, nil), Distance: 0.1})
	}
	r := &stubRouter{targets: []string{"general"}}
	svc := New(r, f.engine(), zap.NewNop())

	req, err := request.New("  산책 시간  ", nil, mode.Vector, 2)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	hits, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("hits = %d, want 2", len(hits))
	}
	if r.got != "산책 시간" {
		t.Errorf("router got %q", r.got)
	}
}

func TestService_SearchCancelled(t *testing.T) {
	f := newFixture()
	svc := New(&stubRouter{targets: []string{"general"}}, f.engine(), zap.NewNop())
	req, _ := request.New("q", nil, mode.Hybrid, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Search(ctx, req); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}
