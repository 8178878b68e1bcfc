package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivotpie/collection-insights/internal/model"
)

func fptr(v float64) *float64 { return &v }

func TestBuildGroups_RiskDistributionSumsToEntityCount(t *testing.T) {
	profiles := []model.EntityProfile{
		{EntityID: "E1", Category: "Restaurants", RiskLevel: model.RiskCritical, AvgIntervalDays: fptr(10)},
		{EntityID: "E2", Category: "Restaurants", RiskLevel: model.RiskWarning, AvgIntervalDays: fptr(20)},
		{EntityID: "E3", Category: "Restaurants", RiskLevel: model.RiskNormal, AvgIntervalDays: fptr(30)},
	}

	groups := BuildGroups(profiles, nil, byCategory, 14)
	require.Len(t, groups, 1)
	g := groups[0]

	assert.Equal(t, "Restaurants", g.Key)
	assert.Equal(t, 3, g.EntityCount)
	assert.Equal(t, 1, g.RiskDistribution[model.RiskCritical])
	assert.Equal(t, 1, g.RiskDistribution[model.RiskWarning])
	assert.Equal(t, 1, g.RiskDistribution[model.RiskNormal])
	assert.Equal(t, 0, g.RiskDistribution[model.RiskUpcoming])

	sum := 0
	for _, lvl := range model.RiskLevels {
		sum += g.RiskDistribution[lvl]
	}
	assert.Equal(t, g.EntityCount, sum)
}

func TestBuildGroups_UnweightedMeanWithDefault(t *testing.T) {
	profiles := []model.EntityProfile{
		{EntityID: "E1", Category: "Hotels", AvgIntervalDays: fptr(10), RiskLevel: model.RiskNormal},
		{EntityID: "E2", Category: "Hotels", RiskLevel: model.RiskNormal}, // no estimate → default 14
	}

	groups := BuildGroups(profiles, nil, byCategory, 14)
	require.Len(t, groups, 1)
	assert.InDelta(t, 12.0, groups[0].AvgIntervalDays, 1e-9)
}

func TestBuildGroups_EmptyGroupFromEventsOnly(t *testing.T) {
	// A category present only in undated/unqualified events still yields a
	// zero-count group with the default periodicity.
	events := []model.CollectionEvent{
		{EntityID: "EX", Category: "Laundry", Gallons: fptr(25)},
	}

	groups := BuildGroups(nil, events, byCategory, 14)
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "Laundry", g.Key)
	assert.Equal(t, 0, g.EntityCount)
	assert.Equal(t, 14.0, g.AvgIntervalDays)
	for _, lvl := range model.RiskLevels {
		assert.Equal(t, 0, g.RiskDistribution[lvl])
	}
	// Volume aggregates still see the event.
	assert.Equal(t, 1, g.VolumeStats.Count)
	assert.Equal(t, 25.0, g.VolumeStats.Mean)
}

func TestBuildGroups_SortedKeys(t *testing.T) {
	profiles := []model.EntityProfile{
		{EntityID: "E1", Category: "Zoo", RiskLevel: model.RiskNormal},
		{EntityID: "E2", Category: "Bakery", RiskLevel: model.RiskNormal},
		{EntityID: "E3", Category: "Hotel", RiskLevel: model.RiskNormal},
	}

	groups := BuildGroups(profiles, nil, byCategory, 14)
	require.Len(t, groups, 3)
	assert.Equal(t, "Bakery", groups[0].Key)
	assert.Equal(t, "Hotel", groups[1].Key)
	assert.Equal(t, "Zoo", groups[2].Key)
}

func TestBuildGroups_AreaDominantCategory(t *testing.T) {
	events := []model.CollectionEvent{
		{EntityID: "E1", Area: "Al Quoz", Category: "Restaurant", Gallons: fptr(10)},
		{EntityID: "E2", Area: "Al Quoz", Category: "Restaurant", Gallons: fptr(20)},
		{EntityID: "E3", Area: "Al Quoz", Category: "Hotel", Gallons: fptr(30)},
	}

	groups := BuildGroups(nil, events, byArea, 14)
	require.Len(t, groups, 1)
	assert.Equal(t, "Restaurant", groups[0].DominantCategory)
	assert.Equal(t, 3, groups[0].Collections)
}

func TestBuildGroups_NonNumericGallonsExcludedFromStats(t *testing.T) {
	events := []model.CollectionEvent{
		{EntityID: "E1", Category: "Cafe", Gallons: fptr(40)},
		{EntityID: "E2", Category: "Cafe"}, // gallons absent
	}

	groups := BuildGroups(nil, events, byCategory, 14)
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].Collections)
	assert.Equal(t, 1, groups[0].VolumeStats.Count)
}
