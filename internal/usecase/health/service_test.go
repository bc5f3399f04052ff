package health

import (
	"context"
	"errors"
	"testing"

	domcol "github.com/kailas-cloud/carekb/internal/domain/collection"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

type mockCollections struct {
	cols []domcol.Collection
}

func (m *mockCollections) Status() []domcol.Collection { return m.cols }

func mustCollection(t *testing.T, name string, path ...domcol.State) domcol.Collection {
	t.Helper()
	c, err := domcol.New(name, domcol.KindGeneral)
	if err != nil {
		t.Fatal(err)
	}
	for _, st := range path {
		switch st {
		case domcol.StateReady:
			c, err = c.Activate("carekb_"+name+"_1", 3, 2)
		case domcol.StateFailed:
			c, err = c.Fail(errors.New("boom"))
		default:
			c, err = c.Transition(st)
		}
		if err != nil {
			t.Fatalf("%s -> %s: %v", name, st, err)
		}
	}
	return c
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockEmbeddingChecker{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if r.Checks["embedding"] != CheckOK {
		t.Errorf("expected embedding %q, got %q", CheckOK, r.Checks["embedding"])
	}
}

func TestCheck_ComponentErrors(t *testing.T) {
	tests := []struct {
		name          string
		dbErr, embErr error
		wantDB        CheckResult
		wantEmb       CheckResult
	}{
		{"db error", errors.New("conn refused"), nil, CheckError, CheckOK},
		{"embedding error", nil, errors.New("timeout"), CheckOK, CheckError},
		{"both fail", errors.New("db down"), errors.New("emb down"), CheckError, CheckError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockDBPinger{err: tt.dbErr}, &mockEmbeddingChecker{err: tt.embErr}, nil)
			r := svc.Check(context.Background())
			if r.Status != Degraded {
				t.Errorf("expected %q, got %q", Degraded, r.Status)
			}
			if r.Checks["database"] != tt.wantDB || r.Checks["embedding"] != tt.wantEmb {
				t.Errorf("checks = %v", r.Checks)
			}
		})
	}
}

func TestCheck_NoEmbedding(t *testing.T) {
	svc := New(&mockDBPinger{}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["embedding"]; ok {
		t.Error("embedding check should be absent when embedding is nil")
	}
}

func TestCheck_Collections(t *testing.T) {
	ready := func() domcol.Collection {
		return mustCollection(t, "general", domcol.StateLoading, domcol.StateReady)
	}
	failed := func() domcol.Collection {
		return mustCollection(t, "medication", domcol.StateLoading, domcol.StateFailed)
	}
	rebuilding := func() domcol.Collection {
		return mustCollection(t, "general", domcol.StateLoading, domcol.StateReady, domcol.StateRebuilding)
	}
	loading := func() domcol.Collection {
		return mustCollection(t, "general", domcol.StateLoading)
	}

	tests := []struct {
		name   string
		cols   []domcol.Collection
		want   Status
		checks map[string]CheckResult
	}{
		{
			name:   "all ready",
			cols:   []domcol.Collection{ready()},
			want:   Healthy,
			checks: map[string]CheckResult{"collection:general": CheckOK},
		},
		{
			name:   "one failed",
			cols:   []domcol.Collection{ready(), failed()},
			want:   Degraded,
			checks: map[string]CheckResult{"collection:general": CheckOK, "collection:medication": CheckError},
		},
		{
			name: "none serving",
			cols: []domcol.Collection{failed()},
			want: Unhealthy,
		},
		{
			name:   "rebuilding over previous generation still serves",
			cols:   []domcol.Collection{rebuilding()},
			want:   Healthy,
			checks: map[string]CheckResult{"collection:general": CheckOK},
		},
		{
			name:   "still loading",
			cols:   []domcol.Collection{loading()},
			want:   Unhealthy,
			checks: map[string]CheckResult{"collection:general": CheckPending},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockDBPinger{}, nil, &mockCollections{cols: tt.cols})
			r := svc.Check(context.Background())
			if r.Status != tt.want {
				t.Errorf("status = %q, want %q", r.Status, tt.want)
			}
			for k, v := range tt.checks {
				if r.Checks[k] != v {
					t.Errorf("%s = %q, want %q", k, r.Checks[k], v)
				}
			}
		})
	}
}
