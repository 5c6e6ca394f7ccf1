package atlas

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/vectoratlas/atlas-cli/internal/geojson"
)

// SkipReason classifies why a feature was rejected during normalization.
type SkipReason string

const (
	SkipNotAFeature     SkipReason = "not_a_feature"
	SkipNoGeometry      SkipReason = "no_geometry"
	SkipInvalidGeometry SkipReason = "invalid_geometry"
	SkipMissingSpecies  SkipReason = "missing_species"
)

// propertyMapping binds a well-known property key to its typed column. The
// assign func coerces the raw value and reports whether coercion succeeded; on
// failure the column simply stays NULL and the record is kept.
type propertyMapping struct {
	key    string
	assign func(r *GeoFeatureRecord, v any) bool
}

var propertyMappings = []propertyMapping{
	{"observation_date", func(r *GeoFeatureRecord, v any) bool {
		s, ok := asString(v)
		if ok {
			r.ObsDate = &s
		}
		return ok
	}},
	{"count", func(r *GeoFeatureRecord, v any) bool {
		n, ok := asInt(v)
		if ok {
			r.Count = &n
		}
		return ok
	}},
	{"data_source", func(r *GeoFeatureRecord, v any) bool {
		s, ok := asString(v)
		if ok {
			r.DataSource = &s
		}
		return ok
	}},
	{"distribution_status", func(r *GeoFeatureRecord, v any) bool {
		s, ok := asString(v)
		if ok {
			r.DistStatus = &s
		}
		return ok
	}},
	{"probability", func(r *GeoFeatureRecord, v any) bool {
		f, ok := asFloat(v)
		if ok {
			r.Probability = &f
		}
		return ok
	}},
	{"site_type", func(r *GeoFeatureRecord, v any) bool {
		s, ok := asString(v)
		if ok {
			r.SiteType = &s
		}
		return ok
	}},
	{"larvae_present", func(r *GeoFeatureRecord, v any) bool {
		b, ok := asBool(v)
		if ok {
			r.LarvaePresent = &b
		}
		return ok
	}},
}

// Normalize converts one raw GeoJSON feature into a storable record. It
// returns a non-empty SkipReason instead of a record when the feature is not a
// "Feature", has no geometry, the geometry fails to parse, or a layer-required
// property is absent. Optional property coercion failures never reject the
// record; the affected column is left NULL.
func Normalize(f geojson.Feature, layer LayerType) (*GeoFeatureRecord, SkipReason) {
	if f.Type != "Feature" {
		return nil, SkipNotAFeature
	}
	if len(f.Geometry) == 0 || string(f.Geometry) == "null" {
		return nil, SkipNoGeometry
	}

	g, err := geojson.ParseGeometry(f.Geometry)
	if err != nil {
		return nil, SkipInvalidGeometry
	}

	props := decodeProperties(f.Properties)

	species, hasSpecies := asStringValue(props["species"])
	if layer.RequiresSpecies() && !hasSpecies {
		return nil, SkipMissingSpecies
	}

	rec := &GeoFeatureRecord{
		LayerType:      layer,
		GeometryType:   g.Type,
		GeometryJSON:   string(f.Geometry),
		PropertiesJSON: propertiesJSON(f.Properties),
		Lon:            g.Lon,
		Lat:            g.Lat,
	}
	if hasSpecies {
		rec.Species = &species
	}
	if g.Bounds != nil {
		rec.MinX = &g.Bounds.MinLon
		rec.MinY = &g.Bounds.MinLat
		rec.MaxX = &g.Bounds.MaxLon
		rec.MaxY = &g.Bounds.MaxLat
	}
	if g.Centroid != nil {
		rec.CentroidLon = &g.Centroid.Lon
		rec.CentroidLat = &g.Centroid.Lat
	}

	for _, m := range propertyMappings {
		v, ok := props[m.key]
		if !ok || v == nil {
			continue
		}
		m.assign(rec, v)
	}

	return rec, ""
}

// decodeProperties decodes a raw properties block into a map for key probing.
// Anything other than a JSON object decodes to an empty map; the raw bytes are
// still preserved verbatim in the record.
func decodeProperties(raw json.RawMessage) map[string]any {
	props := map[string]any{}
	if len(raw) == 0 {
		return props
	}
	_ = json.Unmarshal(raw, &props)
	return props
}

// propertiesJSON returns the verbatim serialized properties, substituting an
// empty object for absent or null properties so the column is never NULL.
func propertiesJSON(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "{}"
	}
	return string(raw)
}

// asStringValue is asString plus a non-empty requirement, used for the species
// property where an empty string is as good as absent.
func asStringValue(v any) (string, bool) {
	s, ok := asString(v)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asInt accepts JSON numbers with no fractional part and numeric strings.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// asFloat accepts JSON numbers and numeric strings.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// asBool accepts JSON booleans, "true"/"false" strings, and 0/1 numbers.
func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	case float64:
		switch b {
		case 0:
			return false, true
		case 1:
			return true, true
		}
	}
	return false, false
}
