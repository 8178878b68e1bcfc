package ingest

import (
	"sort"
	"time"

	"github.com/pivotpie/collection-insights/internal/model"
)

// History owns the flat event slice plus an entity-id index into it, so the
// per-entity event subsequence is O(1) to reach and never re-scanned. The
// index covers only events with a parseable collection date, ordered
// ascending by that date; duplicate timestamps are retained. Events without
// a collection date stay in Events for volume aggregates.
type History struct {
	Events   []model.CollectionEvent
	byEntity map[string][]int
}

// BuildHistory indexes events by entity. The input slice is not mutated.
func BuildHistory(events []model.CollectionEvent) *History {
	h := &History{
		Events:   events,
		byEntity: make(map[string][]int),
	}
	for i, ev := range events {
		if !ev.HasCollectedAt() {
			continue
		}
		h.byEntity[ev.EntityID] = append(h.byEntity[ev.EntityID], i)
	}
	for id, idxs := range h.byEntity {
		sort.SliceStable(idxs, func(a, b int) bool {
			return events[idxs[a]].CollectedAt.Before(*events[idxs[b]].CollectedAt)
		})
		h.byEntity[id] = idxs
	}
	return h
}

// EntityIDs returns all indexed entity ids in ascending order.
func (h *History) EntityIDs() []string {
	ids := make([]string, 0, len(h.byEntity))
	for id := range h.byEntity {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EventsFor returns the entity's dated events, ascending by collection date.
func (h *History) EventsFor(id string) []model.CollectionEvent {
	idxs := h.byEntity[id]
	out := make([]model.CollectionEvent, len(idxs))
	for i, idx := range idxs {
		out[i] = h.Events[idx]
	}
	return out
}

// TimesFor returns the entity's collection timestamps, ascending.
func (h *History) TimesFor(id string) []time.Time {
	idxs := h.byEntity[id]
	out := make([]time.Time, len(idxs))
	for i, idx := range idxs {
		out[i] = *h.Events[idx].CollectedAt
	}
	return out
}

// Len returns the number of indexed entities.
func (h *History) Len() int { return len(h.byEntity) }

// LatestCollection returns the newest collection date across all events,
// or false when no event has one.
func (h *History) LatestCollection() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, ev := range h.Events {
		if ev.HasCollectedAt() && (!found || ev.CollectedAt.After(latest)) {
			latest = *ev.CollectedAt
			found = true
		}
	}
	return latest, found
}
