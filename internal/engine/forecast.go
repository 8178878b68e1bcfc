package engine

import (
	"math"
	"sort"
	"time"

	"github.com/pivotpie/collection-insights/internal/model"
)

// BuildForecast projects expected demand for each day in
// [reference+1, reference+horizon]. Each entity with its own interval
// estimate maps to at most one day: the in-horizon day nearest to its
// fractional expected-next date (half-day ties go to the earlier day), and
// it counts only when that day lies within tolerance. Widening the tolerance
// can therefore only add matches. Runs as a single O(entities + horizon)
// bucketing pass.
func BuildForecast(profiles []model.EntityProfile, reference time.Time, horizon, tolerance int) []model.ForecastDay {
	counts := make([]int, horizon+1) // index 1..horizon

	for _, p := range profiles {
		if p.AvgIntervalDays == nil || p.LastCollectionAt.IsZero() {
			continue
		}
		expected := p.LastCollectionAt.Add(time.Duration(*p.AvgIntervalDays * float64(dayDuration)))
		offset := expected.Sub(reference).Hours() / 24

		// Nearest integer day, rounding exact halves down to the earlier day.
		day := int(math.Ceil(offset - 0.5))
		if day < 1 {
			day = 1
		}
		if day > horizon {
			day = horizon
		}
		if math.Abs(offset-float64(day)) <= float64(tolerance)+1e-9 {
			counts[day]++
		}
	}

	days := make([]model.ForecastDay, 0, horizon)
	for d := 1; d <= horizon; d++ {
		days = append(days, model.ForecastDay{
			Date:                reference.AddDate(0, 0, d),
			ExpectedCollections: counts[d],
		})
	}
	return days
}

// PeakDemandDays returns the top-k forecast days by expected count, ties
// broken by earliest date.
func PeakDemandDays(days []model.ForecastDay, k int) []model.ForecastDay {
	sorted := make([]model.ForecastDay, len(days))
	copy(sorted, days)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ExpectedCollections != sorted[j].ExpectedCollections {
			return sorted[i].ExpectedCollections > sorted[j].ExpectedCollections
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}
