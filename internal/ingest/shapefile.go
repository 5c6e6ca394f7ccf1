package ingest

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	gj "github.com/vectoratlas/atlas-cli/internal/geojson"
)

// ConvertShapefile reads an ESRI shapefile and writes an equivalent GeoJSON
// FeatureCollection, so survey data delivered as shapefiles can flow through
// the normal ingestion path. DBF attributes become feature properties keyed
// by their lowercased field names. Unsupported or empty shapes are skipped
// with a warning. Returns the number of features written.
func ConvertShapefile(shpPath, outPath string) (int, error) {
	log := zap.L().With(
		zap.String("component", "ingest.shapefile"),
		zap.String("path", shpPath),
	)

	reader, err := shp.Open(shpPath)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fieldNames := dbfFieldNames(reader)

	fc := gj.NewFeatureCollection()
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()

		g := shapeToGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		geomRaw, err := geomjson.Marshal(g)
		if err != nil {
			log.Warn("skipping unencodable shape", zap.Error(err))
			skipped++
			continue
		}

		props := map[string]string{}
		for i, name := range fieldNames {
			if v := strings.TrimSpace(reader.Attribute(i)); v != "" {
				props[name] = v
			}
		}
		propsRaw, err := json.Marshal(props)
		if err != nil {
			return 0, eris.Wrap(err, "ingest: marshal shapefile attributes")
		}

		fc.Features = append(fc.Features, gj.Feature{
			Type:       "Feature",
			Geometry:   geomRaw,
			Properties: propsRaw,
		})
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return 0, eris.Wrap(err, "ingest: marshal feature collection")
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return 0, eris.Wrapf(err, "ingest: write %s", outPath)
	}

	log.Info("shapefile converted",
		zap.Int("features", len(fc.Features)),
		zap.Int("skipped", skipped),
		zap.String("out", outPath),
	)
	return len(fc.Features), nil
}

// dbfFieldNames returns the lowercased DBF field names in column order.
func dbfFieldNames(reader *shp.Reader) []string {
	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}
	return names
}

// shapeToGeom converts a shapefile shape to a go-geom geometry. Points map to
// Point, polygons to MultiPolygon; other shape types are unsupported and
// return nil.
func shapeToGeom(s shp.Shape) geom.T {
	switch shape := s.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{shape.X, shape.Y})
	case *shp.Polygon:
		return polygonToMultiPolygon(shape)
	default:
		return nil
	}
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon,
// one single-ring polygon per part.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
