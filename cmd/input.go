package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pivotpie/collection-insights/internal/config"
	"github.com/pivotpie/collection-insights/internal/engine"
	"github.com/pivotpie/collection-insights/internal/ingest"
	"github.com/pivotpie/collection-insights/internal/model"
	"github.com/pivotpie/collection-insights/internal/store"
)

const dateFlagLayout = "2006-01-02"

// loadEvents reads events from exactly one of a CSV or XLSX file.
func loadEvents(csvPath, xlsxPath string) ([]model.CollectionEvent, ingest.Stats, error) {
	switch {
	case csvPath != "" && xlsxPath != "":
		return nil, ingest.Stats{}, eris.New("cmd: --csv and --xlsx are mutually exclusive")
	case csvPath != "":
		return ingest.ParseCSV(csvPath)
	case xlsxPath != "":
		return ingest.ParseXLSX(xlsxPath)
	default:
		return nil, ingest.Stats{}, eris.New("cmd: one of --csv or --xlsx is required")
	}
}

// parseWindow converts optional --from/--to flag values into time bounds.
func parseWindow(from, to string) (*time.Time, *time.Time, error) {
	var fromT, toT *time.Time
	if from != "" {
		t, err := time.Parse(dateFlagLayout, from)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "cmd: parse --from %q", from)
		}
		fromT = &t
	}
	if to != "" {
		t, err := time.Parse(dateFlagLayout, to)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "cmd: parse --to %q", to)
		}
		toT = &t
	}
	return fromT, toT, nil
}

// resolveReference picks the analysis reference date: the --ref-date flag,
// then the configured date, then the day after the newest parseable
// collection date in the data.
func resolveReference(events []model.CollectionEvent, flagVal, cfgVal string) (time.Time, error) {
	for _, raw := range []string{flagVal, cfgVal} {
		if raw == "" {
			continue
		}
		t, err := time.Parse(dateFlagLayout, raw)
		if err != nil {
			return time.Time{}, eris.Wrapf(err, "cmd: parse reference date %q", raw)
		}
		return t, nil
	}

	latest, ok := ingest.BuildHistory(events).LatestCollection()
	if !ok {
		return time.Time{}, eris.New("cmd: no parseable collection dates; pass --ref-date")
	}
	return latest.AddDate(0, 0, 1), nil
}

// engineOptions maps loaded config onto engine tunables.
func engineOptions(c *config.Config) engine.Options {
	return engine.Options{
		MinGapDays:             c.Analysis.MinGapDays,
		MaxGapDays:             c.Analysis.MaxGapDays,
		DefaultIntervalDays:    c.Analysis.DefaultIntervalDays,
		ClassifyWithoutHistory: c.Analysis.ClassifyWithoutHistory,
		HorizonDays:            c.Forecast.HorizonDays,
		ToleranceDays:          c.Forecast.ToleranceDays,
		PeakDays:               c.Forecast.PeakDays,
		MaxCriticalAlerts:      c.Alerts.MaxCritical,
		MaxHighRiskAreas:       c.Alerts.MaxAreas,
		MaxHighRiskCategories:  c.Alerts.MaxCategories,
		Workers:                c.Analysis.Workers,
	}
}

// openStore opens the configured store driver with migrations applied.
func openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, store.Options{
		Driver:      cfg.Store.Driver,
		Path:        cfg.Store.Path,
		DatabaseURL: cfg.Store.DatabaseURL,
	})
}

// logIngest reports what the parser kept and dropped.
func logIngest(source string, events []model.CollectionEvent, stats ingest.Stats) {
	zap.L().Info("events loaded",
		zap.String("source", source),
		zap.Int("events", len(events)),
		zap.Int("rows", stats.Rows),
		zap.Int("skipped_rows", stats.SkippedRows),
		zap.Int("invalid_dates", stats.InvalidDates),
		zap.Int("missing_gallons", stats.MissingGallons),
	)
}
