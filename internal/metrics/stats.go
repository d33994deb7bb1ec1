package metrics

import "sort"

// Summary holds derived statistics for one duration sample set.
//
// When Count is zero the remaining fields are meaningless and must not be
// reported; zero is a valid duration, so "no samples" is expressed by
// Count == 0, never by fabricated zero values.
type Summary struct {
	Count int
	AvgMS float64
	P50MS float64
	P95MS float64
	P99MS float64
	MinMS int64
	MaxMS int64
}

// Summarize computes average, p50/p95/p99 (linear interpolation over order
// statistics), min and max for the given samples. It is a pure function:
// the input slice is copied, never mutated.
func Summarize(samples []int64) Summary {
	n := len(samples)
	if n == 0 {
		return Summary{}
	}

	sorted := append([]int64(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum int64
	for _, v := range sorted {
		sum += v
	}

	return Summary{
		Count: n,
		AvgMS: float64(sum) / float64(n),
		P50MS: percentile(sorted, 0.50),
		P95MS: percentile(sorted, 0.95),
		P99MS: percentile(sorted, 0.99),
		MinMS: sorted[0],
		MaxMS: sorted[n-1],
	}
}

// percentile interpolates linearly between order statistics:
// k = (N-1)*p, f = floor(k), c = k-f; result = sorted[f] + c*(sorted[f+1]-sorted[f]).
func percentile(sorted []int64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return float64(sorted[0])
	}
	k := float64(n-1) * p
	f := int(k)
	c := k - float64(f)
	if f+1 >= n {
		return float64(sorted[f])
	}
	return float64(sorted[f]) + c*float64(sorted[f+1]-sorted[f])
}
