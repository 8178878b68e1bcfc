package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/pivotpie/collection-insights/internal/model"
)

// ErrNotFound is returned when a requested snapshot does not exist.
var ErrNotFound = eris.New("store: snapshot not found")

// SnapshotFilter specifies criteria for listing snapshots.
type SnapshotFilter struct {
	Source string `json:"source,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for imported events and analysis
// snapshots.
type Store interface {
	// Events
	SaveEvents(ctx context.Context, source string, events []model.CollectionEvent) (int, error)
	LoadEvents(ctx context.Context) ([]model.CollectionEvent, error)

	// Snapshots
	SaveSnapshot(ctx context.Context, snap *model.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error)
	LatestSnapshot(ctx context.Context) (*model.Snapshot, error)
	ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]model.Snapshot, error)
	PruneSnapshots(ctx context.Context, keep int) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Options selects and configures a store driver.
type Options struct {
	Driver      string
	Path        string
	DatabaseURL string
}

// Open constructs the store named by opts.Driver and runs migrations.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Driver {
	case "", "sqlite":
		s, err = NewSQLite(opts.Path)
	case "postgres":
		s, err = NewPostgres(ctx, opts.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
