package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectoratlas/atlas-cli/internal/atlas"
	"github.com/vectoratlas/atlas-cli/internal/config"
	"github.com/vectoratlas/atlas-cli/internal/store"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newTestEnv(t *testing.T) (*config.Config, store.Store, string) {
	t.Helper()
	dataDir := t.TempDir()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "atlas.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{}
	cfg.Data.Dir = dataDir
	return cfg, st, dataDir
}

const speciesCatalog = `[
	{"id": "culex-pipiens", "scientific_name": "Culex pipiens"},
	{"id": "aedes-aegypti", "scientific_name": "Aedes aegypti", "related_diseases": ["dengue"]},
	{"id": "", "scientific_name": "dropped"}
]`

const observationsFile = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [12.49, 41.89]},
			"properties": {"species": "Culex pipiens", "count": 3}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [12.5, 41.9]},
			"properties": {"species": "Aedes aegypti", "count": "not-a-number"}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [1, 2]},
			"properties": {"count": 9}
		},
		{
			"type": "Feature",
			"geometry": null,
			"properties": {"species": "Culex pipiens"}
		},
		{
			"type": "Feature",
			"geometry": {"type": "GeometryCollection", "geometries": [{"type": "Point", "coordinates": [1, 2]}]},
			"properties": {"species": "Culex pipiens"}
		}
	]
}`

const breedingSitesFile = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [3, 4]},
			"properties": {"site_type": "storm drain", "larvae_present": true}
		}
	]
}`

func TestRun_FullIngestion(t *testing.T) {
	cfg, st, dataDir := newTestEnv(t)
	writeFile(t, dataDir, "species.json", speciesCatalog)
	writeFile(t, dataDir, "observations.geojson", observationsFile)
	writeFile(t, dataDir, "breeding_sites.geojson", breedingSitesFile)

	result, err := Run(context.Background(), cfg, st)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, int64(2), result.SpeciesLoaded)
	assert.Equal(t, 1, result.SpeciesDropped)
	assert.Equal(t, int64(3), result.FeaturesLoaded)

	require.Len(t, result.Layers, 4)
	byLayer := map[atlas.LayerType]*atlas.LayerStats{}
	for _, stats := range result.Layers {
		byLayer[stats.Layer] = stats
	}

	obs := byLayer[atlas.LayerObservations]
	require.NotNil(t, obs)
	assert.Equal(t, 2, obs.Accepted)
	assert.Equal(t, 3, obs.Skipped)
	assert.Equal(t, 1, obs.Reasons[atlas.SkipMissingSpecies])
	assert.Equal(t, 1, obs.Reasons[atlas.SkipNoGeometry])
	assert.Equal(t, 1, obs.Reasons[atlas.SkipInvalidGeometry])

	sites := byLayer[atlas.LayerBreedingSites]
	require.NotNil(t, sites)
	assert.Equal(t, 1, sites.Accepted)

	// Missing layer files contribute zero records without failing the run.
	assert.Equal(t, 0, byLayer[atlas.LayerDistribution].Total())
	assert.Equal(t, 0, byLayer[atlas.LayerModeled].Total())
}

func TestRun_QueryableAfterIngestion(t *testing.T) {
	cfg, st, dataDir := newTestEnv(t)
	writeFile(t, dataDir, "species.json", speciesCatalog)
	writeFile(t, dataDir, "observations.geojson", observationsFile)

	_, err := Run(context.Background(), cfg, st)
	require.NoError(t, err)

	rows, err := st.SelectFeatures(context.Background(), store.FeatureFilter{
		Layer:   atlas.LayerObservations,
		Species: []string{"Aedes aegypti"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.JSONEq(t, `{"type":"Point","coordinates":[12.5,41.9]}`, rows[0].GeometryJSON)
	// The unparsable count stays in the verbatim properties.
	assert.Contains(t, rows[0].PropertiesJSON, "not-a-number")

	species, err := st.ListSpecies(context.Background())
	require.NoError(t, err)
	assert.Len(t, species, 2)
}

func TestRun_MissingEverythingStillSucceeds(t *testing.T) {
	cfg, st, _ := newTestEnv(t)

	result, err := Run(context.Background(), cfg, st)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.SpeciesLoaded)
	assert.Equal(t, int64(0), result.FeaturesLoaded)

	// The tables exist and are empty, not absent.
	rows, err := st.SelectFeatures(context.Background(), store.FeatureFilter{Layer: atlas.LayerObservations})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRun_MalformedLayerFileSkipsLayer(t *testing.T) {
	cfg, st, dataDir := newTestEnv(t)
	writeFile(t, dataDir, "observations.geojson", `{not json`)
	writeFile(t, dataDir, "breeding_sites.geojson", breedingSitesFile)

	result, err := Run(context.Background(), cfg, st)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.FeaturesLoaded)
}

func TestRun_MalformedSpeciesCatalogLoadsZeroSpecies(t *testing.T) {
	cfg, st, dataDir := newTestEnv(t)
	writeFile(t, dataDir, "species.json", `{"not":"an array"}`)
	writeFile(t, dataDir, "breeding_sites.geojson", breedingSitesFile)

	result, err := Run(context.Background(), cfg, st)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.SpeciesLoaded)
	assert.Equal(t, int64(1), result.FeaturesLoaded)
}

func TestRun_RerunReplacesPriorData(t *testing.T) {
	cfg, st, dataDir := newTestEnv(t)
	writeFile(t, dataDir, "observations.geojson", observationsFile)

	_, err := Run(context.Background(), cfg, st)
	require.NoError(t, err)

	// Second run with a smaller input fully replaces the first load.
	writeFile(t, dataDir, "observations.geojson", `{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [5, 6]},
			"properties": {"species": "Culex pipiens"}
		}]
	}`)

	result, err := Run(context.Background(), cfg, st)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.FeaturesLoaded)

	rows, err := st.SelectFeatures(context.Background(), store.FeatureFilter{Layer: atlas.LayerObservations})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.JSONEq(t, `{"type":"Point","coordinates":[5,6]}`, rows[0].GeometryJSON)
}

func TestRun_ManifestOverridesFilenames(t *testing.T) {
	cfg, st, dataDir := newTestEnv(t)
	writeFile(t, dataDir, "manifest.yaml", `
species_file: catalog.json
layer_files:
  observations: obs.geojson
`)
	writeFile(t, dataDir, "catalog.json", speciesCatalog)
	writeFile(t, dataDir, "obs.geojson", observationsFile)

	result, err := Run(context.Background(), cfg, st)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.SpeciesLoaded)
	assert.Equal(t, int64(2), result.FeaturesLoaded)
}

func TestRun_RecordsBookkeeping(t *testing.T) {
	cfg, st, dataDir := newTestEnv(t)
	writeFile(t, dataDir, "observations.geojson", observationsFile)

	result, err := Run(context.Background(), cfg, st)
	require.NoError(t, err)

	runs, err := st.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	for _, r := range runs {
		assert.Equal(t, result.RunID, r.RunID)
	}
}
