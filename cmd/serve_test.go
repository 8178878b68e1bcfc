package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/pivotpie/collection-insights/internal/model"
	"github.com/pivotpie/collection-insights/internal/store"
)

func newServeTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.Options{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "serve.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSnapshot(t *testing.T, s store.Store) *model.Snapshot {
	t.Helper()
	ref := time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC)
	snap := &model.Snapshot{
		ReferenceDate: ref,
		Source:        "collections.csv",
		EventsTotal:   10,
		EntitiesTotal: 3,
		Result: &model.AnalysisResult{
			ReferenceDate: ref,
			Entities: []model.EntityProfile{
				{EntityID: "E1", Category: "Restaurant", RiskLevel: model.RiskNormal},
			},
		},
	}
	require.NoError(t, s.SaveSnapshot(context.Background(), snap))
	return snap
}

func testLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

func TestServe_Health(t *testing.T) {
	router := newRouter(newServeTestStore(t), testLimiter())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServe_ListSnapshots(t *testing.T) {
	s := newServeTestStore(t)
	seedSnapshot(t, s)
	router := newRouter(s, testLimiter())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshots", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snaps []model.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, "collections.csv", snaps[0].Source)
}

func TestServe_GetSnapshotByID(t *testing.T) {
	s := newServeTestStore(t)
	snap := seedSnapshot(t, s)
	router := newRouter(s, testLimiter())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshots/"+snap.ID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, snap.ID, got.ID)
	require.NotNil(t, got.Result)
	assert.Equal(t, "E1", got.Result.Entities[0].EntityID)
}

func TestServe_GetSnapshotNotFound(t *testing.T) {
	router := newRouter(newServeTestStore(t), testLimiter())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshots/no-such-id", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_LatestSnapshot(t *testing.T) {
	s := newServeTestStore(t)
	seedSnapshot(t, s)
	router := newRouter(s, testLimiter())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshots/latest", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServe_LatestSnapshotEmpty(t *testing.T) {
	router := newRouter(newServeTestStore(t), testLimiter())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshots/latest", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShutdownGracefully_DrainsInFlight(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		entered <- struct{}{}
		<-release
		w.WriteHeader(http.StatusOK)
	})}
	go srv.Serve(ln) //nolint:errcheck

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	<-entered // request is in flight
	done := make(chan error, 1)
	go func() { done <- shutdownGracefully(srv, 5*time.Second) }()
	close(release)

	require.NoError(t, <-done)
	assert.Equal(t, http.StatusOK, <-status)
}

func TestServe_RateLimit(t *testing.T) {
	// One token, no refill: the second request must be rejected.
	limiter := rate.NewLimiter(rate.Limit(0), 1)
	router := newRouter(newServeTestStore(t), limiter)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
