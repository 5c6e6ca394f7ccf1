package query

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectoratlas/atlas-cli/internal/atlas"
	"github.com/vectoratlas/atlas-cli/internal/geojson"
	"github.com/vectoratlas/atlas-cli/internal/store"
)

// fakeStore records the filter it was called with and plays back canned rows.
type fakeStore struct {
	store.Store

	gotFilter store.FeatureFilter
	rows      []store.FeatureRow
	species   []atlas.SpeciesRecord
	err       error
}

func (f *fakeStore) SelectFeatures(_ context.Context, filter store.FeatureFilter) ([]store.FeatureRow, error) {
	f.gotFilter = filter
	return f.rows, f.err
}

func (f *fakeStore) ListSpecies(context.Context) ([]atlas.SpeciesRecord, error) {
	return f.species, f.err
}

func TestFeatures_ReconstructsCollection(t *testing.T) {
	fs := &fakeStore{rows: []store.FeatureRow{
		{
			GeometryJSON:   `{"type":"Point","coordinates":[12.49,41.89]}`,
			PropertiesJSON: `{"species":"Culex pipiens","count":3}`,
		},
		{
			GeometryJSON:   `{"type":"Polygon","coordinates":[[[10,40],[12,40],[12,42],[10,42],[10,40]]]}`,
			PropertiesJSON: `{"species":"Aedes albopictus"}`,
		},
	}}
	svc := NewService(fs)

	fc, err := svc.Features(context.Background(), "observations", []string{"Culex pipiens"}, nil)
	require.NoError(t, err)
	require.NotNil(t, fc)

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "Feature", fc.Features[0].Type)
	assert.JSONEq(t, `{"type":"Point","coordinates":[12.49,41.89]}`, string(fc.Features[0].Geometry))
	assert.JSONEq(t, `{"species":"Culex pipiens","count":3}`, string(fc.Features[0].Properties))

	// The filter passes through untouched.
	assert.Equal(t, atlas.LayerObservations, fs.gotFilter.Layer)
	assert.Equal(t, []string{"Culex pipiens"}, fs.gotFilter.Species)
	assert.Nil(t, fs.gotFilter.BBox)
}

func TestFeatures_SerializedFormIsValidGeoJSON(t *testing.T) {
	fs := &fakeStore{rows: []store.FeatureRow{
		{GeometryJSON: `{"type":"Point","coordinates":[1,2]}`, PropertiesJSON: `{"a":1}`},
	}}
	svc := NewService(fs)

	fc, err := svc.Features(context.Background(), "breeding_sites", nil, nil)
	require.NoError(t, err)

	data, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])
	features, ok := decoded["features"].([]any)
	require.True(t, ok)
	assert.Len(t, features, 1)
}

func TestFeatures_EmptyResultIsValidCollection(t *testing.T) {
	svc := NewService(&fakeStore{})

	fc, err := svc.Features(context.Background(), "modeled", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, fc)
	assert.NotNil(t, fc.Features)
	assert.Empty(t, fc.Features)

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}

func TestFeatures_UnknownLayer(t *testing.T) {
	svc := NewService(&fakeStore{})

	fc, err := svc.Features(context.Background(), "sightings", nil, nil)
	assert.Nil(t, fc)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownLayer))
}

func TestFeatures_StoreErrorPropagates(t *testing.T) {
	svc := NewService(&fakeStore{err: assert.AnError})

	_, err := svc.Features(context.Background(), "observations", nil, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, assert.AnError))
}

func TestSpecies(t *testing.T) {
	fs := &fakeStore{species: []atlas.SpeciesRecord{
		{ID: "aedes-aegypti", ScientificName: "Aedes aegypti"},
	}}
	svc := NewService(fs)

	got, err := svc.Species(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "aedes-aegypti", got[0].ID)
}

func TestFeatures_BBoxPassthrough(t *testing.T) {
	fs := &fakeStore{}
	svc := NewService(fs)

	bbox := &geojson.BBox{MinLon: 12.495, MinLat: 41.895, MaxLon: 12.51, MaxLat: 41.91}
	_, err := svc.Features(context.Background(), "distribution", nil, bbox)
	require.NoError(t, err)
	assert.Equal(t, bbox, fs.gotFilter.BBox)
}
