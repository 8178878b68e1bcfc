package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivotpie/collection-insights/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func tp(ts time.Time) *time.Time { return &ts }
func fp(v float64) *float64      { return &v }

func testSnapshot(ref time.Time) *model.Snapshot {
	return &model.Snapshot{
		ReferenceDate: ref,
		Source:        "collections.csv",
		EventsTotal:   2,
		EntitiesTotal: 1,
		Result: &model.AnalysisResult{
			ReferenceDate: ref,
			Entities: []model.EntityProfile{
				{EntityID: "E1", Category: "Restaurant", RiskLevel: model.RiskNormal},
			},
		},
	}
}

func TestSQLite_SaveAndLoadEvents(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	collected := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	events := []model.CollectionEvent{
		{
			EntityID:    "E1",
			Category:    "Restaurant",
			Area:        "Deira",
			Provider:    "Acme",
			Status:      model.StatusDischarged,
			CollectedAt: tp(collected),
			Gallons:     fp(42.5),
		},
		{EntityID: "E2", Category: "Hotel"}, // undated, no gallons
	}

	n, err := s.SaveEvents(ctx, "collections.csv", events)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	loaded, err := s.LoadEvents(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	e1 := loaded[0]
	assert.Equal(t, "E1", e1.EntityID)
	assert.Equal(t, "Deira", e1.Area)
	require.NotNil(t, e1.CollectedAt)
	assert.True(t, e1.CollectedAt.Equal(collected))
	require.NotNil(t, e1.Gallons)
	assert.Equal(t, 42.5, *e1.Gallons)

	e2 := loaded[1]
	assert.Equal(t, "E2", e2.EntityID)
	assert.Nil(t, e2.CollectedAt)
	assert.Nil(t, e2.Gallons)
}

func TestSQLite_SaveEventsEmpty(t *testing.T) {
	s := newTestSQLite(t)
	n, err := s.SaveEvents(context.Background(), "x.csv", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLite_SnapshotRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	ref := time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC)

	snap := testSnapshot(ref)
	require.NoError(t, s.SaveSnapshot(ctx, snap))
	assert.NotEmpty(t, snap.ID)

	got, err := s.GetSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, "collections.csv", got.Source)
	assert.Equal(t, 2, got.EventsTotal)
	require.NotNil(t, got.Result)
	require.Len(t, got.Result.Entities, 1)
	assert.Equal(t, "E1", got.Result.Entities[0].EntityID)
}

func TestSQLite_GetSnapshotNotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetSnapshot(context.Background(), "nonexistent-id")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_LatestSnapshot(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	ref := time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC)

	older := testSnapshot(ref)
	older.CreatedAt = time.Date(2023, 2, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSnapshot(ctx, older))

	newer := testSnapshot(ref)
	newer.CreatedAt = time.Date(2023, 2, 11, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSnapshot(ctx, newer))

	got, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
}

func TestSQLite_LatestSnapshotEmpty(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.LatestSnapshot(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ListSnapshots(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	ref := time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		snap := testSnapshot(ref)
		snap.CreatedAt = ref.Add(time.Duration(i) * time.Hour)
		if i == 2 {
			snap.Source = "other.xlsx"
		}
		require.NoError(t, s.SaveSnapshot(ctx, snap))
	}

	all, err := s.ListSnapshots(ctx, SnapshotFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first, list rows carry no result payload.
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	assert.Nil(t, all[0].Result)

	filtered, err := s.ListSnapshots(ctx, SnapshotFilter{Source: "other.xlsx"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	limited, err := s.ListSnapshots(ctx, SnapshotFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLite_PruneSnapshots(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	ref := time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		snap := testSnapshot(ref)
		snap.CreatedAt = ref.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.SaveSnapshot(ctx, snap))
	}

	deleted, err := s.PruneSnapshots(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	remaining, err := s.ListSnapshots(ctx, SnapshotFilter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_SQLiteDefault(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "open.db")
	s, err := Open(context.Background(), Options{Path: dbPath})
	require.NoError(t, err)
	defer s.Close()

	// Migrate already ran; a snapshot write must succeed immediately.
	require.NoError(t, s.SaveSnapshot(context.Background(),
		testSnapshot(time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC))))
}
