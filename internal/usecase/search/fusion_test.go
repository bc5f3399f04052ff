package search

import (
	"testing"

	"github.com/kailas-cloud/carekb/internal/domain/search/result"
	"github.com/kailas-cloud/carekb/internal/usecase/keyword"
)

func TestNormalizeDistances(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"empty", nil, []float64{}},
		{"single", []float64{0.7}, []float64{1}},
		{"zero range", []float64{0.3, 0.3}, []float64{1, 1}},
		{"closest scores one", []float64{0.1, 0.3, 0.5}, []float64{1, 0.5, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]result.Hit, len(tt.in))
			for i, d := range tt.in {
				hits[i] = result.Hit{Distance: d}
			}
			got := normalizeDistances(hits)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !approx(got[i], tt.want[i]) {
					t.Errorf("[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNormalizeScores(t *testing.T) {
	matches := []keyword.Match{{Score: 8}, {Score: 5}, {Score: 2}}
	got := normalizeScores(matches)
	want := []float64{1, 0.5, 0}
	for i := range want {
		if !approx(got[i], want[i]) {
			t.Errorf("[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if got := normalizeScores([]keyword.Match{{Score: 3}}); got[0] != 1 {
		t.Errorf("single match = %v, want 1", got[0])
	}
}

func TestFuse_WeightedMergesSharedChunk(t *testing.T) {
	a := mkChunk(t, "치와와 슬개골 탈구", map[string]any{"source_identifier": "a.md"})
	b := mkChunk(t, "산책 시간", map[string]any{"source_identifier": "b.md"})
	c := mkChunk(t, "사료 급여", map[string]any{"source_identifier": "c.md"})

	hits := []result.Hit{{Chunk: a, Distance: 0.1}, {Chunk: b, Distance: 0.5}}
	matches := []keyword.Match{{Chunk: c, Score: 6}, {Chunk: a, Score: 3}}

	out := fuse("general", hits, matches, FusionWeighted, 0.5, 0.5, 10)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3 (deduplicated)", len(out))
	}
	// a: 0.5*1 + 0.5*0 = 0.5; b: 0; c: 0.5*1
	if out[0].Chunk().Content() != a.Content() || out[1].Chunk().Content() != c.Content() {
		t.Errorf("order = %v", contents(out))
	}
	for _, s := range out {
		if s.FusedScore() < 0 || s.FusedScore() > 1 {
			t.Errorf("fused %v out of [0,1]", s.FusedScore())
		}
		if s.Collection() != "general" {
			t.Errorf("collection = %q", s.Collection())
		}
	}
	if !approx(out[0].VectorScore(), 1) || !approx(out[0].KeywordScore(), 0) {
		t.Errorf("a scores = %v/%v", out[0].VectorScore(), out[0].KeywordScore())
	}
}

func TestFuse_SingleSignalUsesItsScore(t *testing.T) {
	a := mkChunk(t, "a", nil)
	b := mkChunk(t, "b", nil)
	out := fuse("general", nil, []keyword.Match{{Chunk: a, Score: 4}, {Chunk: b, Score: 2}}, FusionWeighted, 0.5, 0.5, 5)
	if len(out) != 2 || !approx(out[0].FusedScore(), 1) || !approx(out[1].FusedScore(), 0) {
		t.Errorf("fused = %v, %v", out[0].FusedScore(), out[1].FusedScore())
	}
}

func TestFuse_RRF(t *testing.T) {
	a := mkChunk(t, "a", nil)
	b := mkChunk(t, "b", nil)
	c := mkChunk(t, "c", nil)
	hits := []result.Hit{{Chunk: a, Distance: 0.1}, {Chunk: b, Distance: 0.2}}
	matches := []keyword.Match{{Chunk: b, Score: 9}, {Chunk: c, Score: 1}}

	out := fuse("general", hits, matches, FusionRRF, 0.5, 0.5, 5)
	if out[0].Chunk().Content() != "b" {
		t.Errorf("b appears in both lists and should lead: %v", contents(out))
	}
	want := 1.0/61 + 1.0/62
	if !approx(out[0].FusedScore(), want) {
		t.Errorf("rrf(b) = %v, want %v", out[0].FusedScore(), want)
	}
}

func TestFuse_TiesKeepFirstSeenOrder(t *testing.T) {
	a := mkChunk(t, "a", nil)
	b := mkChunk(t, "b", nil)
	c := mkChunk(t, "c", nil)
	hits := []result.Hit{{Chunk: a, Distance: 0.2}, {Chunk: b, Distance: 0.2}}
	matches := []keyword.Match{{Chunk: c, Score: 1}}

	for range 5 {
		out := fuse("general", hits, matches, FusionWeighted, 0.5, 0.5, 2)
		if got := contents(out); got[0] != "a" || got[1] != "b" {
			t.Fatalf("order = %v, want [a b]", got)
		}
	}
}
