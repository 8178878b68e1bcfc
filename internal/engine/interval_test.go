package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func at(dayOffset int) time.Time {
	return epoch.AddDate(0, 0, dayOffset)
}

func days(offsets ...int) []time.Time {
	out := make([]time.Time, len(offsets))
	for i, o := range offsets {
		out[i] = at(o)
	}
	return out
}

func TestEstimateInterval_TwoEventsExact(t *testing.T) {
	for _, d := range []int{1, 7, 14, 120} {
		est := EstimateInterval(days(0, d), 1, 120)
		require.True(t, est.OK, "gap %d should qualify", d)
		assert.Equal(t, float64(d), est.AvgDays)
		assert.Equal(t, []int{d}, est.Gaps)
	}
}

func TestEstimateInterval_SingleEvent(t *testing.T) {
	est := EstimateInterval(days(0), 1, 120)
	assert.False(t, est.OK)
}

func TestEstimateInterval_NoEvents(t *testing.T) {
	assert.False(t, EstimateInterval(nil, 1, 120).OK)
}

func TestEstimateInterval_GapsOutOfRange(t *testing.T) {
	// Same-day duplicate (gap 0) and long dormancy (gap 121): both excluded.
	est := EstimateInterval(days(0, 0, 121), 1, 120)
	assert.False(t, est.OK)
}

func TestEstimateInterval_MixedGaps(t *testing.T) {
	// Gaps 10 and 15 qualify; the 300-day dormancy is dropped.
	est := EstimateInterval(days(0, 10, 25, 325), 1, 120)
	require.True(t, est.OK)
	assert.Equal(t, []int{10, 15}, est.Gaps)
	assert.InDelta(t, 12.5, est.AvgDays, 1e-9)
}

func TestEstimateInterval_BoundaryGaps(t *testing.T) {
	est := EstimateInterval(days(0, 1), 1, 120)
	require.True(t, est.OK)
	assert.Equal(t, 1.0, est.AvgDays)

	est = EstimateInterval(days(0, 120), 1, 120)
	require.True(t, est.OK)
	assert.Equal(t, 120.0, est.AvgDays)

	assert.False(t, EstimateInterval(days(0, 121), 1, 120).OK)
}

func TestWholeDays_Floors(t *testing.T) {
	a := at(0)
	b := at(2).Add(13 * time.Hour)
	assert.Equal(t, 2, wholeDays(a, b))
}
