package db

import (
	"math"
	"testing"
)

func TestEncodeDecodeVector(t *testing.T) {
	in := []float32{1.5, -2.25, 0, 3.125}
	data := EncodeVector(in)
	if len(data) != 16 {
		t.Fatalf("len = %d, want 16", len(data))
	}
	out, err := DecodeVector(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestDecodeVector_BadLength(t *testing.T) {
	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated data")
	}
}

func TestDistance(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}

	tests := []struct {
		name   string
		metric DistanceMetric
		x, y   []float32
		want   float64
	}{
		{"cosine identical", DistanceCosine, a, a, 0},
		{"cosine orthogonal", DistanceCosine, a, b, 1},
		{"cosine opposite", DistanceCosine, a, []float32{-1, 0}, 2},
		{"cosine zero vector", DistanceCosine, a, []float32{0, 0}, 1},
		{"default is cosine", "", a, b, 1},
		{"l2", DistanceL2, a, b, 2},
		{"ip", DistanceIP, a, a, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Distance(tt.metric, tt.x, tt.y)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistance_Errors(t *testing.T) {
	if _, err := Distance(DistanceCosine, []float32{1}, []float32{1, 2}); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if _, err := Distance("MANHATTAN", []float32{1}, []float32{1}); err == nil {
		t.Error("expected unknown metric error")
	}
}
