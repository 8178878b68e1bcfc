package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeVolumeStats(t *testing.T) {
	s := ComputeVolumeStats([]float64{10, 20, 30, 40})
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 10.0, s.Min)
	assert.Equal(t, 40.0, s.Max)
	assert.Equal(t, 25.0, s.Mean)
	// Sample std of {10,20,30,40} = sqrt(500/3).
	assert.InDelta(t, 12.9099, s.Std, 0.001)
}

func TestComputeVolumeStats_Empty(t *testing.T) {
	assert.Equal(t, 0, ComputeVolumeStats(nil).Count)
}

func TestComputeVolumeStats_SingleSample(t *testing.T) {
	s := ComputeVolumeStats([]float64{15})
	assert.Equal(t, 15.0, s.Min)
	assert.Equal(t, 15.0, s.Max)
	assert.Equal(t, 15.0, s.Mean)
	assert.Equal(t, 0.0, s.Std)
}

func TestMostCommon(t *testing.T) {
	assert.Equal(t, "Restaurant", MostCommon([]string{"Hotel", "Restaurant", "Restaurant"}))
}

func TestMostCommon_TieLexicographic(t *testing.T) {
	// Equal counts: first in canonical sort order wins, whatever input order.
	assert.Equal(t, "Bakery", MostCommon([]string{"Hotel", "Bakery"}))
	assert.Equal(t, "Bakery", MostCommon([]string{"Bakery", "Hotel"}))
}

func TestMostCommon_IgnoresEmpty(t *testing.T) {
	assert.Equal(t, "Hotel", MostCommon([]string{"", "", "Hotel"}))
	assert.Equal(t, "", MostCommon([]string{"", ""}))
	assert.Equal(t, "", MostCommon(nil))
}

func TestMean(t *testing.T) {
	assert.Equal(t, 12.5, mean([]float64{10, 15}))
	assert.Equal(t, 0.0, mean(nil))
}
