package engine

import (
	"sort"

	"github.com/pivotpie/collection-insights/internal/model"
)

// CriticalAlerts returns critical-tier entities ordered by days overdue
// descending, entity id ascending on ties, truncated to max.
func CriticalAlerts(profiles []model.EntityProfile, max int) []model.EntityProfile {
	var critical []model.EntityProfile
	for _, p := range profiles {
		if p.RiskLevel == model.RiskCritical {
			critical = append(critical, p)
		}
	}
	sort.SliceStable(critical, func(i, j int) bool {
		if critical[i].DaysOverdue != critical[j].DaysOverdue {
			return critical[i].DaysOverdue > critical[j].DaysOverdue
		}
		return critical[i].EntityID < critical[j].EntityID
	})
	if max > 0 && len(critical) > max {
		critical = critical[:max]
	}
	return critical
}

// HighRiskKeys ranks group keys by their count of critical entities,
// descending, key ascending on ties, truncated to max. Keys with no critical
// entities are omitted.
func HighRiskKeys(profiles []model.EntityProfile, keyOf func(model.EntityProfile) string, max int) []string {
	counts := make(map[string]int)
	for _, p := range profiles {
		if p.RiskLevel != model.RiskCritical {
			continue
		}
		if k := keyOf(p); k != "" {
			counts[k]++
		}
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if max > 0 && len(keys) > max {
		keys = keys[:max]
	}
	return keys
}

// dueSoonWindowDays is how far ahead of schedule an entity still counts as
// due within the coming week for provider workload purposes.
const dueSoonWindowDays = 7

// ProviderOutlooks estimates near-term workload per provider: entities
// already overdue and entities whose expected collection falls within the
// next week. Sorted by managed entity count descending, provider ascending.
func ProviderOutlooks(profiles []model.EntityProfile, defaultInterval float64) []model.ProviderOutlook {
	byProvider := make(map[string][]model.EntityProfile)
	for _, p := range profiles {
		if p.Provider == "" {
			continue
		}
		byProvider[p.Provider] = append(byProvider[p.Provider], p)
	}

	out := make([]model.ProviderOutlook, 0, len(byProvider))
	for provider, members := range byProvider {
		o := model.ProviderOutlook{Provider: provider, Entities: len(members)}
		intervals := make([]float64, 0, len(members))
		for _, m := range members {
			switch {
			case m.DaysOverdue > 0:
				o.Overdue++
			case m.DaysOverdue > -dueSoonWindowDays:
				o.DueWithinWeek++
			}
			if m.AvgIntervalDays != nil {
				intervals = append(intervals, *m.AvgIntervalDays)
			} else {
				intervals = append(intervals, defaultInterval)
			}
		}
		o.AvgIntervalDays = mean(intervals)
		out = append(out, o)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Entities != out[j].Entities {
			return out[i].Entities > out[j].Entities
		}
		return out[i].Provider < out[j].Provider
	})
	return out
}
