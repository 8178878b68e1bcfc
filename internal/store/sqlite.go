package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pivotpie/collection-insights/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id             TEXT PRIMARY KEY,
	reference_date DATETIME NOT NULL,
	source         TEXT NOT NULL,
	events_total   INTEGER NOT NULL,
	entities_total INTEGER NOT NULL,
	result         TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS events (
	id             TEXT PRIMARY KEY,
	entity_id      TEXT NOT NULL,
	trade_license  TEXT,
	outlet         TEXT,
	category       TEXT,
	sub_category   TEXT,
	area           TEXT,
	zone           TEXT,
	provider       TEXT,
	vehicle        TEXT,
	trap_type      TEXT,
	status         TEXT,
	service_report TEXT,
	collected_at   DATETIME,
	discharged_at  DATETIME,
	initiated_at   DATETIME,
	gallons        REAL,
	traps          REAL,
	source         TEXT NOT NULL,
	imported_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
CREATE INDEX IF NOT EXISTS idx_snapshots_source ON snapshots(source);
CREATE INDEX IF NOT EXISTS idx_events_entity_id ON events(entity_id);
CREATE INDEX IF NOT EXISTS idx_events_collected_at ON events(collected_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveEvents(ctx context.Context, source string, events []model.CollectionEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events
		 (id, entity_id, trade_license, outlet, category, sub_category, area, zone,
		  provider, vehicle, trap_type, status, service_report,
		  collected_at, discharged_at, initiated_at, gallons, traps, source, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert event")
	}
	defer stmt.Close()

	for _, ev := range events {
		_, err := stmt.ExecContext(ctx,
			uuid.New().String(), ev.EntityID, ev.TradeLicense, ev.Outlet,
			ev.Category, ev.SubCategory, ev.Area, ev.Zone,
			ev.Provider, ev.Vehicle, ev.TrapType, ev.Status, ev.ServiceReport,
			nullTime(ev.CollectedAt), nullTime(ev.DischargedAt), nullTime(ev.InitiatedAt),
			nullFloat(ev.Gallons), nullFloat(ev.Traps), source, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert event for entity %s", ev.EntityID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit events")
	}
	return len(events), nil
}

func (s *SQLiteStore) LoadEvents(ctx context.Context) ([]model.CollectionEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, trade_license, outlet, category, sub_category, area, zone,
		        provider, vehicle, trap_type, status, service_report,
		        collected_at, discharged_at, initiated_at, gallons, traps
		 FROM events
		 ORDER BY entity_id, collected_at, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load events")
	}
	defer rows.Close()

	var events []model.CollectionEvent
	for rows.Next() {
		var ev model.CollectionEvent
		var collected, discharged, initiated sql.NullTime
		var gallons, traps sql.NullFloat64

		err := rows.Scan(
			&ev.EntityID, &ev.TradeLicense, &ev.Outlet, &ev.Category, &ev.SubCategory,
			&ev.Area, &ev.Zone, &ev.Provider, &ev.Vehicle, &ev.TrapType,
			&ev.Status, &ev.ServiceReport,
			&collected, &discharged, &initiated, &gallons, &traps,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		ev.CollectedAt = timePtr(collected)
		ev.DischargedAt = timePtr(discharged)
		ev.InitiatedAt = timePtr(initiated)
		ev.Gallons = floatPtr(gallons)
		ev.Traps = floatPtr(traps)
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: load events iterate")
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(snap.Result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, reference_date, source, events_total, entities_total, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.ReferenceDate, snap.Source, snap.EventsTotal, snap.EntitiesTotal,
		string(resultJSON), snap.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert snapshot")
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, reference_date, source, events_total, entities_total, result, created_at
		 FROM snapshots WHERE id = ?`,
		id,
	)
	return scanSnapshot(row)
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, reference_date, source, events_total, entities_total, result, created_at
		 FROM snapshots ORDER BY created_at DESC, id LIMIT 1`,
	)
	return scanSnapshot(row)
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]model.Snapshot, error) {
	query := `SELECT id, reference_date, source, events_total, entities_total, created_at
	          FROM snapshots WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var sn model.Snapshot
		if err := rows.Scan(&sn.ID, &sn.ReferenceDate, &sn.Source,
			&sn.EventsTotal, &sn.EntitiesTotal, &sn.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot row")
		}
		snaps = append(snaps, sn)
	}
	return snaps, eris.Wrap(rows.Err(), "sqlite: list snapshots iterate")
}

func (s *SQLiteStore) PruneSnapshots(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (
		   SELECT id FROM snapshots ORDER BY created_at DESC, id LIMIT ?
		 )`,
		keep,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune snapshots")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scannable) (*model.Snapshot, error) {
	var sn model.Snapshot
	var resultJSON string

	err := row.Scan(&sn.ID, &sn.ReferenceDate, &sn.Source,
		&sn.EventsTotal, &sn.EntitiesTotal, &resultJSON, &sn.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan snapshot")
	}

	if resultJSON != "" && resultJSON != "null" {
		sn.Result = &model.AnalysisResult{}
		if err := json.Unmarshal([]byte(resultJSON), sn.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &sn, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
