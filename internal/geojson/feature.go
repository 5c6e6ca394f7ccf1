// Package geojson parses GeoJSON survey inputs into typed geometries and the
// scalar values derived from them for filtering.
package geojson

import "encoding/json"

// FeatureCollection is a standard GeoJSON feature collection. Geometry and
// properties are kept as raw JSON so the original bytes survive the round trip
// through the store untouched.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single GeoJSON feature.
type Feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

// NewFeatureCollection returns an empty but valid collection. The features
// slice is non-nil so it serializes as [] rather than null.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}
