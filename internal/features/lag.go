package features

import "math"

// Lag returns values shifted k positions later within each partition. The first k
// rows of every partition have no predecessor and get NaN.
func Lag(values []float64, partitions [][]int, k int) []float64 {
	out := nanSlice(len(values))
	for _, rows := range partitions {
		for j := k; j < len(rows); j++ {
			out[rows[j]] = values[rows[j-k]]
		}
	}
	return out
}

// AddLags adds <base>_lag<k> for every base column and distance
func AddLags(f *Frame, bases []string, distances []int, partitions [][]int) {
	for _, base := range bases {
		src, ok := f.Column(base)
		if !ok {
			continue
		}
		for _, k := range distances {
			f.Set(LagName(base, k), Lag(src, partitions, k))
		}
	}
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
