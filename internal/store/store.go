// Package store persists normalized atlas records and serves filtered rows
// back to the query service. Both tables are rebuilt wholesale on each
// ingestion run; between rebuilds the store is read-only.
package store

import (
	"context"
	"time"

	"github.com/vectoratlas/atlas-cli/internal/atlas"
	"github.com/vectoratlas/atlas-cli/internal/geojson"
)

// DefaultBatchSize bounds peak memory and per-call overhead during bulk
// inserts. It is a tuning knob, not a correctness constraint.
const DefaultBatchSize = 10000

// FeatureFilter selects geo_features rows. Layer is always required; an empty
// Species slice matches all species including null, and a nil BBox matches
// everywhere.
type FeatureFilter struct {
	Layer   atlas.LayerType
	Species []string
	BBox    *geojson.BBox
}

// FeatureRow is the reconstruction payload of one matching row. Derived
// filter columns are deliberately not carried back out of the store.
type FeatureRow struct {
	GeometryJSON   string
	PropertiesJSON string
}

// RunRecord is one per-layer bookkeeping row for an ingestion run.
type RunRecord struct {
	RunID      string
	Layer      string
	Accepted   int
	Skipped    int
	DurationMs int64
	LoadedAt   time.Time
}

// Store is the persistence interface shared by the ingestion job and the
// query service.
type Store interface {
	// ReplaceSpecies drops, recreates, and reloads the species table.
	ReplaceSpecies(ctx context.Context, records []atlas.SpeciesRecord) (int64, error)

	// ReplaceGeoFeatures drops, recreates, and reloads the geo_features table.
	ReplaceGeoFeatures(ctx context.Context, records []atlas.GeoFeatureRecord) (int64, error)

	// SelectFeatures returns matching rows in insertion order.
	SelectFeatures(ctx context.Context, filter FeatureFilter) ([]FeatureRow, error)

	// ListSpecies returns the species catalog in insertion order.
	ListSpecies(ctx context.Context) ([]atlas.SpeciesRecord, error)

	// RecordRun appends ingestion bookkeeping rows. Best-effort: callers log
	// failures as warnings.
	RecordRun(ctx context.Context, records []RunRecord) error

	// ListRuns returns recent bookkeeping rows, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// Migrate creates the bookkeeping table. The data tables need no
	// migration; Replace* always starts from drop+recreate.
	Migrate(ctx context.Context) error

	Close() error
}
