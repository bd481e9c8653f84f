package features

import (
	gseries "github.com/go-gota/gota/series"
)

// RollingMean returns the trailing mean over window rows within each partition.
// Row j of a partition gets the mean of rows j-window+1..j, or NaN when the partition
// has fewer than window rows up to j or any value in the window is NaN.
func RollingMean(values []float64, partitions [][]int, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}
	for _, rows := range partitions {
		sub := make([]float64, len(rows))
		for j, r := range rows {
			sub[j] = values[r]
		}
		means := gseries.New(sub, gseries.Float, "rolling").Rolling(window).Mean().Float()
		for j, r := range rows {
			out[r] = means[j]
		}
	}
	return out
}

// AddRollingMeans adds <base>_rolling<window> for every base column
func AddRollingMeans(f *Frame, bases []string, window int, partitions [][]int) {
	for _, base := range bases {
		src, ok := f.Column(base)
		if !ok {
			continue
		}
		f.Set(RollingName(base, window), RollingMean(src, partitions, window))
	}
}
