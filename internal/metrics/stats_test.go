package metrics

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()
	sum := Summarize(nil)
	if sum.Count != 0 {
		t.Fatalf("Count = %d, want 0", sum.Count)
	}
	if sum.AvgMS != 0 || sum.P50MS != 0 || sum.MinMS != 0 || sum.MaxMS != 0 {
		t.Fatalf("empty summary has fabricated values: %+v", sum)
	}
}

func TestSummarizeSingleSample(t *testing.T) {
	t.Parallel()
	sum := Summarize([]int64{42})
	if sum.Count != 1 {
		t.Fatalf("Count = %d, want 1", sum.Count)
	}
	for name, v := range map[string]float64{"avg": sum.AvgMS, "p50": sum.P50MS, "p95": sum.P95MS, "p99": sum.P99MS} {
		if !almostEqual(v, 42) {
			t.Fatalf("%s = %v, want 42", name, v)
		}
	}
	if sum.MinMS != 42 || sum.MaxMS != 42 {
		t.Fatalf("min/max = %d/%d, want 42/42", sum.MinMS, sum.MaxMS)
	}
}

func TestSummarizeTenSamples(t *testing.T) {
	t.Parallel()
	samples := []int64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	sum := Summarize(samples)

	if sum.Count != 10 {
		t.Fatalf("Count = %d, want 10", sum.Count)
	}
	if sum.MinMS != 10 || sum.MaxMS != 100 {
		t.Fatalf("min/max = %d/%d, want 10/100", sum.MinMS, sum.MaxMS)
	}
	if !almostEqual(sum.AvgMS, 55) {
		t.Fatalf("avg = %v, want 55", sum.AvgMS)
	}
	// linear interpolation: k = 9*0.5 = 4.5 -> 50 + 0.5*(60-50) = 55
	if sum.P50MS < 50 || sum.P50MS > 55 {
		t.Fatalf("p50 = %v, want within [50, 55]", sum.P50MS)
	}
	// k = 9*0.95 = 8.55 -> 90 + 0.55*10 = 95.5
	if !almostEqual(sum.P95MS, 95.5) {
		t.Fatalf("p95 = %v, want 95.5", sum.P95MS)
	}
}

func TestSummarizeOrderingInvariant(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		samples []int64
	}{
		{name: "uniform", samples: []int64{5, 5, 5, 5}},
		{name: "skewed", samples: []int64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1000}},
		{name: "unsorted", samples: []int64{90, 10, 50, 30, 70}},
		{name: "zeros", samples: []int64{0, 0, 3}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sum := Summarize(tt.samples)
			if sum.Count != len(tt.samples) {
				t.Fatalf("Count = %d, want %d", sum.Count, len(tt.samples))
			}
			min, max := float64(sum.MinMS), float64(sum.MaxMS)
			if !(min <= sum.P50MS && sum.P50MS <= sum.P95MS && sum.P95MS <= sum.P99MS && sum.P99MS <= max) {
				t.Fatalf("percentile ordering violated: %+v", sum)
			}
			if sum.AvgMS < min || sum.AvgMS > max {
				t.Fatalf("avg %v outside [%v, %v]", sum.AvgMS, min, max)
			}
		})
	}
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	samples := []int64{3, 1, 2}
	Summarize(samples)
	if samples[0] != 3 || samples[1] != 1 || samples[2] != 2 {
		t.Fatalf("input was mutated: %v", samples)
	}
}
