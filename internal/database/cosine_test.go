package database

import (
	"math"
	"testing"
)

func TestCosineDistance_IdenticalVectors(t *testing.T) {
	v := []float32{0.5, 0.3, 0.8, 0.1}
	if d := CosineDistance(v, v); math.Abs(d) > 1e-9 {
		t.Errorf("expected distance 0 for identical vectors, got %v", d)
	}
}

func TestCosineDistance_OppositeVectors(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{-1, 0, 0}
	if d := CosineDistance(a, b); math.Abs(d-2) > 1e-9 {
		t.Errorf("expected distance 2 for opposite vectors, got %v", d)
	}
}

func TestCosineDistance_OrthogonalVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if d := CosineDistance(a, b); math.Abs(d-1) > 1e-9 {
		t.Errorf("expected distance 1 for orthogonal vectors, got %v", d)
	}
}

func TestCosineDistance_ScaleInvariant(t *testing.T) {
	a := []float32{0.2, 0.4, 0.6}
	b := []float32{2, 4, 6}
	if d := CosineDistance(a, b); math.Abs(d) > 1e-6 {
		t.Errorf("expected distance 0 for scaled vectors, got %v", d)
	}
}

func TestCosineDistance_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{"MismatchedLengths", []float32{1, 2}, []float32{1, 2, 3}},
		{"EmptyVectors", []float32{}, []float32{}},
		{"ZeroVector", []float32{0, 0, 0}, []float32{1, 2, 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if d := CosineDistance(tc.a, tc.b); d != 2.0 {
				t.Errorf("expected maximum distance 2.0, got %v", d)
			}
		})
	}
}

func TestSimilarity_SelfIsOne(t *testing.T) {
	v := []float32{0.1, 0.9, 0.4}
	if s := Similarity(v, v); math.Abs(s-1) > 1e-9 {
		t.Errorf("expected self-similarity 1, got %v", s)
	}
}

func TestSimilarity_ClampedToUnitInterval(t *testing.T) {
	// Opposite vectors have raw similarity -1, clamped to 0.
	a := []float32{1, 0}
	b := []float32{-1, 0}
	if s := Similarity(a, b); s != 0 {
		t.Errorf("expected clamped similarity 0, got %v", s)
	}
}

func TestSimilarity_Monotonic(t *testing.T) {
	query := []float32{1, 0}
	closer := []float32{0.9, 0.1}
	farther := []float32{0.5, 0.5}

	if Similarity(query, closer) <= Similarity(query, farther) {
		t.Error("expected closer vector to score higher than farther vector")
	}
}

func TestSimilarityFromDistance(t *testing.T) {
	tests := []struct {
		dist     float64
		expected float64
	}{
		{0, 1},
		{0.25, 0.75},
		{1, 0},
		{1.5, 0},  // clamped
		{-0.1, 1}, // clamped
	}

	for _, tc := range tests {
		if got := SimilarityFromDistance(tc.dist); math.Abs(got-tc.expected) > 1e-9 {
			t.Errorf("SimilarityFromDistance(%v) = %v, expected %v", tc.dist, got, tc.expected)
		}
	}
}
