package geojson

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
)

// Coordinate is a lon/lat pair.
type Coordinate struct {
	Lon float64
	Lat float64
}

// Geometry is a successfully parsed geometry plus the scalars derived from it.
// Derived fields are nil when they do not apply to the geometry type: Lon/Lat
// are set for points, Bounds and Centroid for polygons and multipolygons.
type Geometry struct {
	Type     string
	Geom     geom.T
	Lon      *float64
	Lat      *float64
	Bounds   *BBox
	Centroid *Coordinate
}

// ParseGeometry decodes a raw GeoJSON geometry block into a typed geometry and
// computes its derived scalars. Any malformed input (missing or unknown type
// tag, coordinate tree inconsistent with the tag, empty coordinates) yields an
// error; a partially valid geometry is never returned.
func ParseGeometry(raw json.RawMessage) (*Geometry, error) {
	if len(raw) == 0 {
		return nil, eris.New("geojson: empty geometry")
	}

	// Read the type tag up front so errors name the declared type.
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, eris.Wrap(err, "geojson: decode geometry")
	}
	if tag.Type == "" {
		return nil, eris.New("geojson: geometry missing type tag")
	}

	var g geom.T
	if err := geomjson.Unmarshal(raw, &g); err != nil {
		return nil, eris.Wrapf(err, "geojson: parse %s geometry", tag.Type)
	}
	if g == nil {
		return nil, eris.Errorf("geojson: %s geometry has no coordinates", tag.Type)
	}
	// GeometryCollection has no flat coordinate layout; FlatCoords panics on
	// it. The layer files carry single geometries only, so reject it here.
	if _, ok := g.(*geom.GeometryCollection); ok {
		return nil, eris.New("geojson: GeometryCollection geometries are not supported")
	}
	if len(g.FlatCoords()) == 0 {
		return nil, eris.Errorf("geojson: %s geometry has no coordinates", tag.Type)
	}

	parsed := &Geometry{Type: tag.Type, Geom: g}

	switch t := g.(type) {
	case *geom.Point:
		c := t.Coords()
		if len(c) < 2 {
			return nil, eris.New("geojson: point has fewer than two coordinates")
		}
		lon, lat := c[0], c[1]
		parsed.Lon = &lon
		parsed.Lat = &lat

	case *geom.Polygon, *geom.MultiPolygon:
		b := g.Bounds()
		parsed.Bounds = &BBox{
			MinLon: b.Min(0),
			MinLat: b.Min(1),
			MaxLon: b.Max(0),
			MaxLat: b.Max(1),
		}
		centroid, err := xy.Centroid(g)
		if err != nil {
			return nil, eris.Wrapf(err, "geojson: centroid of %s", tag.Type)
		}
		parsed.Centroid = &Coordinate{Lon: centroid[0], Lat: centroid[1]}
	}

	return parsed, nil
}
