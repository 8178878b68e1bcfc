package engine

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pivotpie/collection-insights/internal/ingest"
	"github.com/pivotpie/collection-insights/internal/model"
)

// Options carries every tunable of the analysis engine. Zero values are not
// meaningful; start from DefaultOptions.
type Options struct {
	MinGapDays             int
	MaxGapDays             int
	DefaultIntervalDays    float64
	ClassifyWithoutHistory bool
	HorizonDays            int
	ToleranceDays          int
	PeakDays               int
	MaxCriticalAlerts      int
	MaxHighRiskAreas       int
	MaxHighRiskCategories  int
	Workers                int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		MinGapDays:             1,
		MaxGapDays:             120,
		DefaultIntervalDays:    14,
		ClassifyWithoutHistory: true,
		HorizonDays:            30,
		ToleranceDays:          1,
		PeakDays:               10,
		MaxCriticalAlerts:      20,
		MaxHighRiskAreas:       10,
		MaxHighRiskCategories:  5,
		Workers:                8,
	}
}

// Engine runs the full temporal-pattern analysis over an immutable event
// snapshot. It performs no I/O and never reads the wall clock; the reference
// date is always an explicit argument.
type Engine struct {
	opts Options
}

// New returns an Engine with the given options.
func New(opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Engine{opts: opts}
}

// Run computes the complete analysis result for the given events as of the
// reference date. Two runs over identical input yield identical output.
func (e *Engine) Run(ctx context.Context, events []model.CollectionEvent, reference time.Time) (*model.AnalysisResult, error) {
	hist := ingest.BuildHistory(events)

	profiles, insufficient, err := e.buildProfiles(ctx, hist, reference)
	if err != nil {
		return nil, err
	}

	res := &model.AnalysisResult{
		ReferenceDate:    reference,
		Overview:         buildOverview(events),
		Entities:         profiles,
		GroupsByCategory: BuildGroups(profiles, events, byCategory, e.opts.DefaultIntervalDays),
		GroupsByArea:     BuildGroups(profiles, events, byArea, e.opts.DefaultIntervalDays),
		CriticalAlerts:   CriticalAlerts(profiles, e.opts.MaxCriticalAlerts),
		HighRiskAreas: HighRiskKeys(profiles, func(p model.EntityProfile) string {
			return p.Area
		}, e.opts.MaxHighRiskAreas),
		HighRiskCategories: HighRiskKeys(profiles, func(p model.EntityProfile) string {
			return p.Category
		}, e.opts.MaxHighRiskCategories),
		ProviderOutlook:  ProviderOutlooks(profiles, e.opts.DefaultIntervalDays),
		InsufficientData: insufficient,
	}
	res.Forecast = BuildForecast(profiles, reference, e.opts.HorizonDays, e.opts.ToleranceDays)
	res.PeakDemandDays = PeakDemandDays(res.Forecast, e.opts.PeakDays)

	zap.L().Info("analysis complete",
		zap.Time("reference_date", reference),
		zap.Int("events", len(events)),
		zap.Int("entities", len(profiles)),
		zap.Int("critical", len(res.CriticalAlerts)),
		zap.Int("insufficient_data", insufficient),
	)
	return res, nil
}

// buildProfiles computes per-entity profiles in parallel shards. Each entity
// depends only on its own subsequence and the shared reference date, so
// shards merge by concatenation; the final sort restores a deterministic
// order.
func (e *Engine) buildProfiles(ctx context.Context, hist *ingest.History, reference time.Time) ([]model.EntityProfile, int, error) {
	ids := hist.EntityIDs()

	var insufficient atomic.Int64
	insufficient.Store(int64(undatedEntities(hist)))

	shards := shardIDs(ids, e.opts.Workers)
	results := make([][]model.EntityProfile, len(shards))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for si, shard := range shards {
		si, shard := si, shard
		g.Go(func() error {
			out := make([]model.EntityProfile, 0, len(shard))
			for _, id := range shard {
				profile, ok := e.profileEntity(hist, id, reference)
				if !ok {
					insufficient.Add(1)
					continue
				}
				out = append(out, profile)
			}
			results[si] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var profiles []model.EntityProfile
	for _, r := range results {
		profiles = append(profiles, r...)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].EntityID < profiles[j].EntityID
	})
	return profiles, int(insufficient.Load()), nil
}

// profileEntity derives one entity's profile. Returns false when the entity
// cannot be risk-classified: no interval estimate and the
// classify-without-history fallback is disabled.
func (e *Engine) profileEntity(hist *ingest.History, id string, reference time.Time) (model.EntityProfile, bool) {
	events := hist.EventsFor(id)
	times := hist.TimesFor(id)
	last := events[len(events)-1]

	p := model.EntityProfile{
		EntityID:         id,
		TradeLicense:     last.TradeLicense,
		OutletName:       last.Outlet,
		Category:         last.Category,
		Area:             last.Area,
		Zone:             last.Zone,
		Provider:         last.Provider,
		CollectionsCount: len(events),
		LastCollectionAt: times[len(times)-1],
	}

	var gallons []float64
	for _, ev := range events {
		if ev.Gallons != nil {
			gallons = append(gallons, *ev.Gallons)
		}
	}
	if len(gallons) > 0 {
		avg := mean(gallons)
		p.AvgGallons = &avg
	}

	est := EstimateInterval(times, e.opts.MinGapDays, e.opts.MaxGapDays)
	interval := e.opts.DefaultIntervalDays
	if est.OK {
		p.AvgIntervalDays = &est.AvgDays
		interval = est.AvgDays
	} else if !e.opts.ClassifyWithoutHistory {
		return model.EntityProfile{}, false
	}

	p.DaysOverdue, p.RiskLevel = ClassifyRisk(reference, p.LastCollectionAt, interval)
	return p, true
}

// undatedEntities counts entities that appear in the event set but have no
// parseable collection date at all.
func undatedEntities(hist *ingest.History) int {
	indexed := make(map[string]struct{})
	for _, id := range hist.EntityIDs() {
		indexed[id] = struct{}{}
	}
	seen := make(map[string]struct{})
	count := 0
	for _, ev := range hist.Events {
		if _, ok := indexed[ev.EntityID]; ok {
			continue
		}
		if _, ok := seen[ev.EntityID]; ok {
			continue
		}
		seen[ev.EntityID] = struct{}{}
		count++
	}
	return count
}

// shardIDs splits ids into at most n contiguous shards.
func shardIDs(ids []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	if len(ids) == 0 {
		return nil
	}
	if n > len(ids) {
		n = len(ids)
	}
	shards := make([][]string, 0, n)
	size := (len(ids) + n - 1) / n
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		shards = append(shards, ids[start:end])
	}
	return shards
}

// buildOverview computes dataset-level statistics over all events, including
// those without a parseable collection date.
func buildOverview(events []model.CollectionEvent) model.Overview {
	o := model.Overview{TotalRecords: len(events)}

	entities := make(map[string]struct{})
	providers := make(map[string]struct{})
	vehicles := make(map[string]struct{})
	areas := make(map[string]struct{})
	zones := make(map[string]struct{})
	categories := make(map[string]struct{})

	var gallons []float64
	var turnarounds []float64
	discharged := 0

	for _, ev := range events {
		entities[ev.EntityID] = struct{}{}
		addNonEmpty(providers, ev.Provider)
		addNonEmpty(vehicles, ev.Vehicle)
		addNonEmpty(areas, ev.Area)
		addNonEmpty(zones, ev.Zone)
		addNonEmpty(categories, ev.Category)

		if ev.Gallons != nil {
			gallons = append(gallons, *ev.Gallons)
		}
		if ev.Status == model.StatusDischarged {
			discharged++
		}
		if days, ok := ev.TurnaroundDays(); ok {
			turnarounds = append(turnarounds, float64(days))
		}

		if ev.HasCollectedAt() {
			if o.DateRangeStart == nil || ev.CollectedAt.Before(*o.DateRangeStart) {
				o.DateRangeStart = ev.CollectedAt
			}
			if o.DateRangeEnd == nil || ev.CollectedAt.After(*o.DateRangeEnd) {
				o.DateRangeEnd = ev.CollectedAt
			}
		} else {
			o.InvalidDates++
		}
	}

	o.UniqueEntities = len(entities)
	o.UniqueProviders = len(providers)
	o.UniqueVehicles = len(vehicles)
	o.UniqueAreas = len(areas)
	o.UniqueZones = len(zones)
	o.UniqueCategories = len(categories)

	for _, g := range gallons {
		o.TotalGallons += g
	}
	if len(gallons) > 0 {
		o.AvgGallons = o.TotalGallons / float64(len(gallons))
	}
	if len(events) > 0 {
		o.CompletionRate = float64(discharged) / float64(len(events)) * 100
	}
	if len(turnarounds) > 0 {
		avg := mean(turnarounds)
		o.AvgTurnaroundDays = &avg
	}
	return o
}

func addNonEmpty(set map[string]struct{}, v string) {
	if v != "" {
		set[v] = struct{}{}
	}
}
