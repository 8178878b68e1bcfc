package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pivotpie/collection-insights/internal/db"
	"github.com/pivotpie/collection-insights/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// eventColumns is the COPY column order for bulk event imports.
var eventColumns = []string{
	"id", "entity_id", "trade_license", "outlet", "category", "sub_category",
	"area", "zone", "provider", "vehicle", "trap_type", "status", "service_report",
	"collected_at", "discharged_at", "initiated_at", "gallons", "traps",
	"source", "imported_at",
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_snapshot": `INSERT INTO snapshots (id, reference_date, source, events_total, entities_total, result, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"get_snapshot":    `SELECT id, reference_date, source, events_total, entities_total, result, created_at FROM snapshots WHERE id = $1`,
	"latest_snapshot": `SELECT id, reference_date, source, events_total, entities_total, result, created_at FROM snapshots ORDER BY created_at DESC, id LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id             TEXT PRIMARY KEY,
	reference_date TIMESTAMPTZ NOT NULL,
	source         TEXT NOT NULL,
	events_total   INTEGER NOT NULL,
	entities_total INTEGER NOT NULL,
	result         JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
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
	collected_at   TIMESTAMPTZ,
	discharged_at  TIMESTAMPTZ,
	initiated_at   TIMESTAMPTZ,
	gallons        DOUBLE PRECISION,
	traps          DOUBLE PRECISION,
	source         TEXT NOT NULL,
	imported_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
CREATE INDEX IF NOT EXISTS idx_snapshots_source ON snapshots(source);
CREATE INDEX IF NOT EXISTS idx_events_entity_id ON events(entity_id);
CREATE INDEX IF NOT EXISTS idx_events_collected_at ON events(collected_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveEvents(ctx context.Context, source string, events []model.CollectionEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()

	rows := make([][]any, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []any{
			uuid.New().String(), ev.EntityID, ev.TradeLicense, ev.Outlet,
			ev.Category, ev.SubCategory, ev.Area, ev.Zone,
			ev.Provider, ev.Vehicle, ev.TrapType, ev.Status, ev.ServiceReport,
			ev.CollectedAt, ev.DischargedAt, ev.InitiatedAt, ev.Gallons, ev.Traps,
			source, now,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "events", eventColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save events")
	}
	return int(n), nil
}

func (s *PostgresStore) LoadEvents(ctx context.Context) ([]model.CollectionEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT entity_id, trade_license, outlet, category, sub_category, area, zone,
		        provider, vehicle, trap_type, status, service_report,
		        collected_at, discharged_at, initiated_at, gallons, traps
		 FROM events
		 ORDER BY entity_id, collected_at, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load events")
	}
	defer rows.Close()

	var events []model.CollectionEvent
	for rows.Next() {
		var ev model.CollectionEvent
		err := rows.Scan(
			&ev.EntityID, &ev.TradeLicense, &ev.Outlet, &ev.Category, &ev.SubCategory,
			&ev.Area, &ev.Zone, &ev.Provider, &ev.Vehicle, &ev.TrapType,
			&ev.Status, &ev.ServiceReport,
			&ev.CollectedAt, &ev.DischargedAt, &ev.InitiatedAt, &ev.Gallons, &ev.Traps,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: load events iterate")
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(snap.Result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, reference_date, source, events_total, entities_total, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		snap.ID, snap.ReferenceDate, snap.Source, snap.EventsTotal, snap.EntitiesTotal,
		resultJSON, snap.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert snapshot")
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, reference_date, source, events_total, entities_total, result, created_at
		 FROM snapshots WHERE id = $1`,
		id,
	)
	return scanPgSnapshot(row)
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context) (*model.Snapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, reference_date, source, events_total, entities_total, result, created_at
		 FROM snapshots ORDER BY created_at DESC, id LIMIT 1`,
	)
	return scanPgSnapshot(row)
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]model.Snapshot, error) {
	query := `SELECT id, reference_date, source, events_total, entities_total, created_at
	          FROM snapshots WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, filter.Source)
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var sn model.Snapshot
		if err := rows.Scan(&sn.ID, &sn.ReferenceDate, &sn.Source,
			&sn.EventsTotal, &sn.EntitiesTotal, &sn.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot row")
		}
		snaps = append(snaps, sn)
	}
	return snaps, eris.Wrap(rows.Err(), "postgres: list snapshots iterate")
}

func (s *PostgresStore) PruneSnapshots(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (
		   SELECT id FROM snapshots ORDER BY created_at DESC, id LIMIT $1
		 )`,
		keep,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: prune snapshots")
	}
	return int(tag.RowsAffected()), nil
}

func scanPgSnapshot(row pgx.Row) (*model.Snapshot, error) {
	var sn model.Snapshot
	var resultJSON []byte

	err := row.Scan(&sn.ID, &sn.ReferenceDate, &sn.Source,
		&sn.EventsTotal, &sn.EntitiesTotal, &resultJSON, &sn.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan snapshot")
	}

	if len(resultJSON) > 0 && string(resultJSON) != "null" {
		sn.Result = &model.AnalysisResult{}
		if err := json.Unmarshal(resultJSON, sn.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &sn, nil
}
