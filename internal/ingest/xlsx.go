package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/pivotpie/collection-insights/internal/model"
)

// ParseXLSX loads collection events from the first sheet of an Excel export.
// The first row must be the header row; cleaning rules match ParseCSV.
func ParseXLSX(path string) ([]model.CollectionEvent, Stats, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, Stats{}, eris.Wrapf(err, "ingest: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, Stats{}, eris.Errorf("ingest: xlsx %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) < 2 {
		return nil, Stats{}, nil
	}

	headers := rowToStrings(sheet.Rows[0])
	rows := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		rows = append(rows, rowToStrings(row))
	}

	events, stats := rowsToEvents(headers, rows)
	zap.L().Info("parsed xlsx",
		zap.String("path", path),
		zap.String("sheet", sheet.Name),
		zap.Int("rows", stats.Rows),
		zap.Int("invalid_dates", stats.InvalidDates),
	)
	return events, stats, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
