package stats

import (
	"math/rand/v2"
	"testing"
)

func TestRemoveOutliers_DropsExtremes(t *testing.T) {
	values := []float64{1.0, 1.1, 0.9, 1.05, 0.95, 10.0, -8.0}

	got := RemoveOutliers(values)

	want := []float64{1.0, 1.1, 0.9, 1.05, 0.95}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestRemoveOutliers_KeepsInliers(t *testing.T) {
	values := []float64{0, 0.6931, 1.0986}

	got := RemoveOutliers(values)
	if len(got) != 3 {
		t.Errorf("expected all 3 values kept, got %v", got)
	}
}

func TestRemoveOutliers_SmallSamplesUnmodified(t *testing.T) {
	cases := [][]float64{
		{},
		{42},
		{1, 1000},
	}

	for _, values := range cases {
		got := RemoveOutliers(values)
		if len(got) != len(values) {
			t.Fatalf("expected %v unmodified, got %v", values, got)
		}
		for i := range values {
			if got[i] != values[i] {
				t.Errorf("expected %v unmodified, got %v", values, got)
			}
		}
	}
}

func TestRemoveOutliers_ConstantSample(t *testing.T) {
	// MAD == 0: fences collapse onto the median, identical values survive.
	got := RemoveOutliers([]float64{2, 2, 2, 2, 9})
	if len(got) != 4 {
		t.Fatalf("expected 4 values, got %v", got)
	}
	for _, v := range got {
		if v != 2 {
			t.Errorf("unexpected survivor %v", v)
		}
	}
}

func TestRemoveOutliers_DoesNotAliasInput(t *testing.T) {
	values := []float64{1, 2, 3, 100}
	got := RemoveOutliers(values)
	got[0] = -1
	if values[0] != 1 {
		t.Error("RemoveOutliers must not share backing storage with its input")
	}
}

func TestRemoveOutliers_NeverEmpty(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.IntN(30)
		values := make([]float64, n)
		for i := range values {
			// Heavy-tailed sample to stress the fences.
			values[i] = rng.ExpFloat64() * float64(1+rng.IntN(100))
		}
		if got := RemoveOutliers(values); len(got) == 0 {
			t.Fatalf("trial %d: empty result for %v", trial, values)
		}
	}
}
