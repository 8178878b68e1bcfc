package engine

import (
	"sort"

	"github.com/pivotpie/collection-insights/internal/model"
)

// groupKey selects the grouping dimension of a profile or event.
type groupKey struct {
	fromProfile func(model.EntityProfile) string
	fromEvent   func(model.CollectionEvent) string
	// dominant controls whether the group records its most common event
	// category (meaningful for area groups; redundant for category groups).
	dominant bool
}

var (
	byCategory = groupKey{
		fromProfile: func(p model.EntityProfile) string { return p.Category },
		fromEvent:   func(e model.CollectionEvent) string { return e.Category },
	}
	byArea = groupKey{
		fromProfile: func(p model.EntityProfile) string { return p.Area },
		fromEvent:   func(e model.CollectionEvent) string { return e.Area },
		dominant:    true,
	}
)

// BuildGroups rolls entity profiles up per distinct key value. Keys that
// appear in the event set but have no qualifying entity still yield a
// zero-valued group, so downstream tables never miss a known category or
// area. The group interval is the unweighted mean of member estimates, with
// defaultInterval substituted for members (and empty groups) that have none.
func BuildGroups(profiles []model.EntityProfile, events []model.CollectionEvent, key groupKey, defaultInterval float64) []model.GroupProfile {
	members := make(map[string][]model.EntityProfile)
	for _, p := range profiles {
		k := key.fromProfile(p)
		if k == "" {
			continue
		}
		members[k] = append(members[k], p)
	}

	eventsByKey := make(map[string][]model.CollectionEvent)
	for _, ev := range events {
		k := key.fromEvent(ev)
		if k == "" {
			continue
		}
		eventsByKey[k] = append(eventsByKey[k], ev)
	}

	keys := make(map[string]struct{}, len(members)+len(eventsByKey))
	for k := range members {
		keys[k] = struct{}{}
	}
	for k := range eventsByKey {
		keys[k] = struct{}{}
	}
	ordered := make([]string, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	groups := make([]model.GroupProfile, 0, len(ordered))
	for _, k := range ordered {
		groups = append(groups, buildGroup(k, members[k], eventsByKey[k], key, defaultInterval))
	}
	return groups
}

func buildGroup(key string, members []model.EntityProfile, events []model.CollectionEvent, gk groupKey, defaultInterval float64) model.GroupProfile {
	g := model.GroupProfile{
		Key:              key,
		EntityCount:      len(members),
		Collections:      len(events),
		RiskDistribution: make(map[model.RiskLevel]int, len(model.RiskLevels)),
	}
	for _, lvl := range model.RiskLevels {
		g.RiskDistribution[lvl] = 0
	}

	intervals := make([]float64, 0, len(members))
	for _, m := range members {
		g.RiskDistribution[m.RiskLevel]++
		if m.AvgIntervalDays != nil {
			intervals = append(intervals, *m.AvgIntervalDays)
		} else {
			intervals = append(intervals, defaultInterval)
		}
	}
	if len(intervals) > 0 {
		g.AvgIntervalDays = mean(intervals)
	} else {
		// Empty group: an estimate is still structurally required for
		// scheduling defaults, so the named default periodicity applies.
		g.AvgIntervalDays = defaultInterval
	}

	var gallons []float64
	var categories []string
	for _, ev := range events {
		if ev.Gallons != nil {
			gallons = append(gallons, *ev.Gallons)
		}
		categories = append(categories, ev.Category)
	}
	g.VolumeStats = ComputeVolumeStats(gallons)
	if gk.dominant {
		g.DominantCategory = MostCommon(categories)
	}

	return g
}
