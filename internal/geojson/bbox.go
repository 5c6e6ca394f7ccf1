package geojson

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// BBox is an axis-aligned geographic bounding box.
type BBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// ParseBBox parses a "min_lon,min_lat,max_lon,max_lat" string. Malformed
// strings are rejected so callers can turn them into a 400 before any query
// runs.
func ParseBBox(s string) (*BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, eris.Errorf("geojson: bbox %q must have four comma-separated values", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "geojson: bbox value %q", p)
		}
		vals[i] = v
	}
	b := &BBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if b.MinLon > b.MaxLon || b.MinLat > b.MaxLat {
		return nil, eris.Errorf("geojson: bbox %q has min greater than max", s)
	}
	return b, nil
}

// ContainsPoint reports whether the point lies inside the box, edges included.
func (b BBox) ContainsPoint(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// Intersects reports whether two boxes overlap, edges included.
func (b BBox) Intersects(o BBox) bool {
	return b.MinLon <= o.MaxLon && b.MaxLon >= o.MinLon &&
		b.MinLat <= o.MaxLat && b.MaxLat >= o.MinLat
}
