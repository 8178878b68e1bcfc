package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivotpie/collection-insights/internal/model"
)

func tptr(ts time.Time) *time.Time { return &ts }

func event(id, category, area, provider string, day int, gallons float64) model.CollectionEvent {
	return model.CollectionEvent{
		EntityID:    id,
		Category:    category,
		Area:        area,
		Provider:    provider,
		Status:      model.StatusDischarged,
		CollectedAt: tptr(at(day)),
		Gallons:     fptr(gallons),
	}
}

func TestEngine_Run_EndToEnd(t *testing.T) {
	events := []model.CollectionEvent{
		event("E1", "Restaurant", "Deira", "Acme", 0, 100),
		event("E1", "Restaurant", "Deira", "Acme", 10, 120),
		event("E1", "Restaurant", "Deira", "Acme", 25, 110),
		event("E2", "Hotel", "Marina", "Acme", 5, 500),
	}

	eng := New(DefaultOptions())
	res, err := eng.Run(context.Background(), events, at(40))
	require.NoError(t, err)

	require.Len(t, res.Entities, 2)
	e1 := res.Entities[0]
	assert.Equal(t, "E1", e1.EntityID)
	require.NotNil(t, e1.AvgIntervalDays)
	assert.InDelta(t, 12.5, *e1.AvgIntervalDays, 1e-9)
	assert.Equal(t, 2, e1.DaysOverdue)
	assert.Equal(t, model.RiskUpcoming, e1.RiskLevel)
	assert.Equal(t, 3, e1.CollectionsCount)
	require.NotNil(t, e1.AvgGallons)
	assert.InDelta(t, 110.0, *e1.AvgGallons, 1e-9)

	// E2 has a single collection: no estimate, classified with the default
	// 14-day periodicity. Expected day 19, reference day 40 → 21 days late.
	e2 := res.Entities[1]
	assert.Nil(t, e2.AvgIntervalDays)
	assert.Equal(t, 21, e2.DaysOverdue)
	assert.Equal(t, model.RiskCritical, e2.RiskLevel)

	assert.Equal(t, 0, res.InsufficientData)
	assert.Equal(t, at(40), res.ReferenceDate)

	require.Len(t, res.CriticalAlerts, 1)
	assert.Equal(t, "E2", res.CriticalAlerts[0].EntityID)
	assert.Equal(t, []string{"Marina"}, res.HighRiskAreas)
	assert.Equal(t, []string{"Hotel"}, res.HighRiskCategories)

	assert.Equal(t, 4, res.Overview.TotalRecords)
	assert.Equal(t, 2, res.Overview.UniqueEntities)
	assert.Equal(t, 830.0, res.Overview.TotalGallons)
	assert.Equal(t, 100.0, res.Overview.CompletionRate)

	sum := 0
	for _, n := range res.RiskSummary() {
		sum += n
	}
	assert.Equal(t, len(res.Entities), sum)
}

func TestEngine_Run_Deterministic(t *testing.T) {
	var events []model.CollectionEvent
	categories := []string{"Restaurant", "Hotel", "Cafe"}
	areas := []string{"Deira", "Marina", "Al Quoz"}
	for i := 0; i < 40; i++ {
		id := string(rune('A' + i%26))
		events = append(events,
			event("EN"+id, categories[i%3], areas[i%3], "Acme", i%30, float64(50+i)),
			event("EN"+id, categories[i%3], areas[i%3], "Acme", i%30+7+i%5, float64(60+i)),
		)
	}

	opts := DefaultOptions()
	opts.Workers = 4
	eng := New(opts)

	ref := at(60)
	first, err := eng.Run(context.Background(), events, ref)
	require.NoError(t, err)
	second, err := eng.Run(context.Background(), events, ref)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestEngine_Run_ClassifyWithoutHistoryDisabled(t *testing.T) {
	events := []model.CollectionEvent{
		event("E1", "Cafe", "Deira", "Acme", 0, 10),
		event("E1", "Cafe", "Deira", "Acme", 10, 10),
		event("E2", "Cafe", "Deira", "Acme", 5, 10), // single collection
	}

	opts := DefaultOptions()
	opts.ClassifyWithoutHistory = false
	res, err := New(opts).Run(context.Background(), events, at(30))
	require.NoError(t, err)

	require.Len(t, res.Entities, 1)
	assert.Equal(t, "E1", res.Entities[0].EntityID)
	assert.Equal(t, 1, res.InsufficientData)
}

func TestEngine_Run_UndatedEntityCountsInsufficient(t *testing.T) {
	events := []model.CollectionEvent{
		event("E1", "Cafe", "Deira", "Acme", 0, 10),
		event("E1", "Cafe", "Deira", "Acme", 12, 10),
		{EntityID: "E9", Category: "Cafe"}, // no parseable date at all
	}

	res, err := New(DefaultOptions()).Run(context.Background(), events, at(20))
	require.NoError(t, err)

	require.Len(t, res.Entities, 1)
	assert.Equal(t, 1, res.InsufficientData)
	assert.Equal(t, 1, res.Overview.InvalidDates)
	assert.Equal(t, 2, res.Overview.UniqueEntities)
}

func TestEngine_Run_EmptyInput(t *testing.T) {
	res, err := New(DefaultOptions()).Run(context.Background(), nil, at(0))
	require.NoError(t, err)
	assert.Empty(t, res.Entities)
	assert.Empty(t, res.CriticalAlerts)
	assert.Len(t, res.Forecast, DefaultOptions().HorizonDays)
	assert.Equal(t, 0, res.Overview.TotalRecords)
}

func TestShardIDs(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	shards := shardIDs(ids, 2)
	require.Len(t, shards, 2)
	assert.Equal(t, []string{"a", "b", "c"}, shards[0])
	assert.Equal(t, []string{"d", "e"}, shards[1])

	assert.Nil(t, shardIDs(nil, 4))
	assert.Len(t, shardIDs(ids, 10), 5)
}
