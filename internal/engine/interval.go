package engine

import (
	"math"
	"time"
)

// IntervalEstimate is the outcome of interval estimation for one entity.
// OK is false when no gap qualified; the caller decides whether to substitute
// the configured default periodicity.
type IntervalEstimate struct {
	AvgDays float64
	Gaps    []int
	OK      bool
}

// EstimateInterval computes the mean gap, in whole days, between consecutive
// collections. Gaps outside [minGap, maxGap] days are discarded as
// non-periodic (cancellations, data errors, long dormancy). The input must be
// ordered ascending.
func EstimateInterval(times []time.Time, minGap, maxGap int) IntervalEstimate {
	if len(times) < 2 {
		return IntervalEstimate{}
	}

	var gaps []int
	for i := 1; i < len(times); i++ {
		gap := wholeDays(times[i-1], times[i])
		if gap < minGap || gap > maxGap {
			continue
		}
		gaps = append(gaps, gap)
	}
	if len(gaps) == 0 {
		return IntervalEstimate{}
	}

	sum := 0
	for _, g := range gaps {
		sum += g
	}
	return IntervalEstimate{
		AvgDays: float64(sum) / float64(len(gaps)),
		Gaps:    gaps,
		OK:      true,
	}
}

// wholeDays returns the floor of the day difference from a to b.
func wholeDays(a, b time.Time) int {
	return int(math.Floor(b.Sub(a).Hours() / 24))
}
