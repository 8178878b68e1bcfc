package ingest

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pivotpie/collection-insights/internal/model"
)

// Source column headers, as they appear in the operations export.
const (
	colEntityID      = "New E ID"
	colTradeLicense  = "Trade License Number"
	colOutlet        = "Entity Mapping.Outlet"
	colCategory      = "Category"
	colSubCategory   = "Sub Category"
	colArea          = "Area"
	colZone          = "Zone"
	colProvider      = "Service Provider"
	colVehicle       = "Assigned Vehicle"
	colTrapType      = "Trap Type"
	colStatus        = "Status"
	colServiceReport = "Service Report"
	colCollectedAt   = "Collected Date"
	colDischargedAt  = "Discharged Date"
	colInitiatedAt   = "Initiated Date"
	colGallons       = "Sum of Gallons Collected"
	colTraps         = "Sum of No of Traps"
)

// dateLayouts are tried in order when parsing source timestamps.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006",
	"02-01-2006",
}

// Stats counts cleaning outcomes during a load.
type Stats struct {
	Rows           int
	SkippedRows    int
	InvalidDates   int
	MissingGallons int
}

// ParseCSV loads collection events from a CSV export. Rows with unparseable
// dates or gallons are kept with the offending field cleared, so non-temporal
// aggregates still see them. Rows without an entity id are skipped.
func ParseCSV(path string) ([]model.CollectionEvent, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, eris.Wrapf(err, "ingest: open csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, Stats{}, eris.Wrap(err, "ingest: read csv")
	}

	if len(records) < 2 {
		return nil, Stats{}, nil // header only or empty
	}

	events, stats := rowsToEvents(records[0], records[1:])
	zap.L().Info("parsed csv",
		zap.String("path", path),
		zap.Int("rows", stats.Rows),
		zap.Int("skipped", stats.SkippedRows),
		zap.Int("invalid_dates", stats.InvalidDates),
	)
	return events, stats, nil
}

// rowsToEvents converts header-keyed rows into typed events. Shared by the
// CSV and XLSX loaders.
func rowsToEvents(headers []string, rows [][]string) ([]model.CollectionEvent, Stats) {
	idx := headerIndex(headers)
	var stats Stats
	events := make([]model.CollectionEvent, 0, len(rows))

	for _, row := range rows {
		cell := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		id := cell(colEntityID)
		if id == "" {
			stats.SkippedRows++
			continue
		}

		ev := model.CollectionEvent{
			EntityID:      id,
			TradeLicense:  cell(colTradeLicense),
			Outlet:        cell(colOutlet),
			Category:      cell(colCategory),
			SubCategory:   cell(colSubCategory),
			Area:          cell(colArea),
			Zone:          cell(colZone),
			Provider:      cell(colProvider),
			Vehicle:       cell(colVehicle),
			TrapType:      cell(colTrapType),
			Status:        cell(colStatus),
			ServiceReport: cell(colServiceReport),
			DischargedAt:  parseDate(cell(colDischargedAt)),
			InitiatedAt:   parseDate(cell(colInitiatedAt)),
			Traps:         parseNumber(cell(colTraps)),
		}

		if raw := cell(colCollectedAt); raw != "" {
			ev.CollectedAt = parseDate(raw)
			if ev.CollectedAt == nil {
				stats.InvalidDates++
			}
		} else {
			stats.InvalidDates++
		}

		ev.Gallons = parseNumber(cell(colGallons))
		if ev.Gallons == nil {
			stats.MissingGallons++
		}

		events = append(events, ev)
		stats.Rows++
	}

	return events, stats
}

// headerIndex maps trimmed header names to their column position. First
// occurrence wins on duplicate headers.
func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// parseNumber coerces a numeric cell, tolerating thousands separators.
// Non-numeric values become nil.
func parseNumber(raw string) *float64 {
	if raw == "" {
		return nil
	}
	raw = strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// FilterWindow keeps events whose collection date falls within [from, to].
// Nil bounds are open; events without a collection date are dropped whenever
// any bound is set, since they cannot be placed in the window.
func FilterWindow(events []model.CollectionEvent, from, to *time.Time) []model.CollectionEvent {
	if from == nil && to == nil {
		return events
	}
	out := make([]model.CollectionEvent, 0, len(events))
	for _, ev := range events {
		if !ev.HasCollectedAt() {
			continue
		}
		if from != nil && ev.CollectedAt.Before(*from) {
			continue
		}
		if to != nil && ev.CollectedAt.After(*to) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
