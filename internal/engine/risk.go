package engine

import (
	"math"
	"time"

	"github.com/pivotpie/collection-insights/internal/model"
)

const dayDuration = 24 * time.Hour

// DaysOverdue returns the whole days between the expected next collection
// (last + avgIntervalDays) and the reference date. Negative means not yet
// due. Fractional days floor toward negative infinity; this is the single
// rounding policy for the whole engine.
func DaysOverdue(reference, last time.Time, avgIntervalDays float64) int {
	expected := last.Add(time.Duration(avgIntervalDays * float64(dayDuration)))
	return int(math.Floor(reference.Sub(expected).Hours() / 24))
}

// ClassifyOverdue maps an overdue-day count to a risk tier. Boundaries are
// inclusive: 0 and below is normal, 1-5 upcoming, 6-10 warning, above 10
// critical.
func ClassifyOverdue(daysOverdue int) model.RiskLevel {
	switch {
	case daysOverdue <= 0:
		return model.RiskNormal
	case daysOverdue <= 5:
		return model.RiskUpcoming
	case daysOverdue <= 10:
		return model.RiskWarning
	default:
		return model.RiskCritical
	}
}

// ClassifyRisk is the full classification: reference date, last collection
// and an already-defaulted interval in, overdue days and tier out. It reads
// nothing beyond its arguments.
func ClassifyRisk(reference, last time.Time, avgIntervalDays float64) (int, model.RiskLevel) {
	overdue := DaysOverdue(reference, last, avgIntervalDays)
	return overdue, ClassifyOverdue(overdue)
}
