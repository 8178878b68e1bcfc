package engine

import (
	"math"
	"sort"

	"github.com/pivotpie/collection-insights/internal/model"
)

// ComputeVolumeStats summarizes a set of gallon samples. Std is the sample
// standard deviation (n-1 denominator); zero when fewer than two samples.
func ComputeVolumeStats(samples []float64) model.VolumeStats {
	if len(samples) == 0 {
		return model.VolumeStats{}
	}

	stats := model.VolumeStats{
		Count: len(samples),
		Min:   samples[0],
		Max:   samples[0],
	}
	sum := 0.0
	for _, v := range samples {
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		sum += v
	}
	stats.Mean = sum / float64(len(samples))

	if len(samples) > 1 {
		ss := 0.0
		for _, v := range samples {
			d := v - stats.Mean
			ss += d * d
		}
		stats.Std = math.Sqrt(ss / float64(len(samples)-1))
	}
	return stats
}

// MostCommon returns the most frequent value. Ties go to the
// lexicographically first value so results are reproducible regardless of
// input order. Empty values are ignored; returns "" when nothing qualifies.
func MostCommon(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
	}
	if len(counts) == 0 {
		return ""
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
