// Package ingest runs the offline batch job that rebuilds the store from the
// survey input files. It is a sequential, single-writer job: callers must not
// run two ingestions against the same store concurrently.
package ingest

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vectoratlas/atlas-cli/internal/atlas"
	"github.com/vectoratlas/atlas-cli/internal/config"
	"github.com/vectoratlas/atlas-cli/internal/geojson"
	"github.com/vectoratlas/atlas-cli/internal/store"
)

// Result summarizes one ingestion run.
type Result struct {
	RunID          string
	SpeciesLoaded  int64
	SpeciesDropped int
	FeaturesLoaded int64
	Layers         []*atlas.LayerStats
	Duration       time.Duration
}

// Run rebuilds both tables from the files named by the dataset manifest.
// Missing input files are warnings and their layer contributes zero records.
// A table-level setup failure aborts only that table's load; the error
// returned covers every table that failed.
func Run(ctx context.Context, cfg *config.Config, st store.Store) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := zap.L().With(
		zap.String("component", "ingest"),
		zap.String("run_id", runID),
	)

	manifest, err := config.LoadManifest(cfg.Data)
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: runID}

	// Species catalog.
	speciesRecords := readSpeciesCatalog(log, manifest.SpeciesPath(cfg.Data.Dir), result)

	// Spatial layers, normalized sequentially in a fixed order.
	var features []atlas.GeoFeatureRecord
	for _, layer := range atlas.Layers {
		stats := atlas.NewLayerStats(layer)
		result.Layers = append(result.Layers, stats)

		path := manifest.LayerPath(cfg.Data.Dir, string(layer))
		fc, ok := readFeatureCollection(log, layer, path)
		if !ok {
			continue
		}

		for _, f := range fc.Features {
			rec, reason := atlas.Normalize(f, layer)
			if reason != "" {
				stats.Skip(reason)
				continue
			}
			stats.Accept()
			features = append(features, *rec)
		}

		log.Info("layer normalized",
			zap.String("layer", string(layer)),
			zap.Int("accepted", stats.Accepted),
			zap.Int("skipped", stats.Skipped),
		)
	}

	// Load each table independently so one failure does not starve the other.
	var failed []string

	n, err := st.ReplaceSpecies(ctx, speciesRecords)
	if err != nil {
		log.Error("species table load failed", zap.Error(err))
		failed = append(failed, "species")
	} else {
		result.SpeciesLoaded = n
	}

	n, err = st.ReplaceGeoFeatures(ctx, features)
	if err != nil {
		log.Error("geo_features table load failed", zap.Error(err))
		failed = append(failed, "geo_features")
	} else {
		result.FeaturesLoaded = n
	}

	result.Duration = time.Since(start)

	recordRun(ctx, log, st, result)

	if len(failed) > 0 {
		return result, eris.Errorf("ingest: table loads failed: %s", strings.Join(failed, ", "))
	}

	log.Info("ingestion complete",
		zap.Int64("species", result.SpeciesLoaded),
		zap.Int64("features", result.FeaturesLoaded),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// readSpeciesCatalog loads and validates the species catalog file. Any
// failure degrades to zero species records so the spatial layers still load.
func readSpeciesCatalog(log *zap.Logger, path string, result *Result) []atlas.SpeciesRecord {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("species catalog missing, loading zero species", zap.String("path", path))
		} else {
			log.Error("species catalog unreadable, loading zero species", zap.String("path", path), zap.Error(err))
		}
		return nil
	}

	records, dropped, err := atlas.ParseSpeciesCatalog(data)
	if err != nil {
		log.Error("species catalog malformed, loading zero species", zap.String("path", path), zap.Error(err))
		return nil
	}
	result.SpeciesDropped = dropped
	if dropped > 0 {
		log.Warn("species records dropped for missing id or scientific name", zap.Int("dropped", dropped))
	}
	return records
}

// readFeatureCollection loads one layer file. ok=false means the layer
// contributes nothing; ingestion continues.
func readFeatureCollection(log *zap.Logger, layer atlas.LayerType, path string) (*geojson.FeatureCollection, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("layer file missing, skipping layer",
				zap.String("layer", string(layer)),
				zap.String("path", path),
			)
		} else {
			log.Error("layer file unreadable, skipping layer",
				zap.String("layer", string(layer)),
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return nil, false
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		log.Error("layer file malformed, skipping layer",
			zap.String("layer", string(layer)),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, false
	}
	return &fc, true
}

// recordRun appends per-layer bookkeeping rows. Best-effort.
func recordRun(ctx context.Context, log *zap.Logger, st store.Store, result *Result) {
	if err := st.Migrate(ctx); err != nil {
		log.Warn("failed to ensure bookkeeping table", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	records := make([]store.RunRecord, 0, len(result.Layers))
	for _, stats := range result.Layers {
		records = append(records, store.RunRecord{
			RunID:      result.RunID,
			Layer:      string(stats.Layer),
			Accepted:   stats.Accepted,
			Skipped:    stats.Skipped,
			DurationMs: result.Duration.Milliseconds(),
			LoadedAt:   now,
		})
	}
	if err := st.RecordRun(ctx, records); err != nil {
		log.Warn("failed to record run bookkeeping", zap.Error(err))
	}
}
