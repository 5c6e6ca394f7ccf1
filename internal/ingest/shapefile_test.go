package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectoratlas/atlas-cli/internal/geojson"
)

func writePointShapefile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "points.shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)

	w.SetFields([]shp.Field{
		shp.StringField("SPECIES", 30),
		shp.StringField("SITE_TYPE", 30),
	})

	idx := w.Write(&shp.Point{X: 12.49, Y: 41.89})
	require.NoError(t, w.WriteAttribute(int(idx), 0, "Culex pipiens"))

	idx = w.Write(&shp.Point{X: 3, Y: 4})
	require.NoError(t, w.WriteAttribute(int(idx), 1, "pond"))

	w.Close()
	return path
}

func TestConvertShapefile_Points(t *testing.T) {
	dir := t.TempDir()
	shpPath := writePointShapefile(t, dir)
	outPath := filepath.Join(dir, "points.geojson")

	n, err := ConvertShapefile(shpPath, outPath)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var fc geojson.FeatureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	assert.JSONEq(t, `{"type":"Point","coordinates":[12.49,41.89]}`, string(fc.Features[0].Geometry))
	// DBF field names come out lowercased; empty attributes are omitted.
	assert.JSONEq(t, `{"species":"Culex pipiens"}`, string(fc.Features[0].Properties))
	assert.JSONEq(t, `{"site_type":"pond"}`, string(fc.Features[1].Properties))
}

func TestConvertShapefile_PolygonBecomesMultiPolygon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "areas.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{shp.StringField("SPECIES", 30)})

	poly := &shp.Polygon{
		Box:       shp.Box{MinX: 10, MinY: 40, MaxX: 12, MaxY: 42},
		NumParts:  1,
		NumPoints: 5,
		Parts:     []int32{0},
		Points: []shp.Point{
			{X: 10, Y: 40}, {X: 12, Y: 40}, {X: 12, Y: 42}, {X: 10, Y: 42}, {X: 10, Y: 40},
		},
	}
	idx := w.Write(poly)
	require.NoError(t, w.WriteAttribute(int(idx), 0, "Aedes albopictus"))
	w.Close()

	outPath := filepath.Join(dir, "areas.geojson")
	n, err := ConvertShapefile(path, outPath)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var fc geojson.FeatureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	require.Len(t, fc.Features, 1)

	var g struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(fc.Features[0].Geometry, &g))
	assert.Equal(t, "MultiPolygon", g.Type)

	// The converted output is accepted by the geometry parser.
	parsed, err := geojson.ParseGeometry(fc.Features[0].Geometry)
	require.NoError(t, err)
	require.NotNil(t, parsed.Bounds)
	assert.Equal(t, 10.0, parsed.Bounds.MinLon)
	assert.Equal(t, 42.0, parsed.Bounds.MaxLat)
}

func TestConvertShapefile_MissingFile(t *testing.T) {
	_, err := ConvertShapefile(filepath.Join(t.TempDir(), "nope.shp"), "out.geojson")
	assert.Error(t, err)
}
