// Package atlas holds the canonical data model for the vector atlas: the four
// spatial layers, the normalized records both tables store, and the conversion
// from raw GeoJSON features into those records.
package atlas

// LayerType identifies one of the four fixed spatial-data categories.
type LayerType string

const (
	LayerDistribution  LayerType = "distribution"
	LayerObservations  LayerType = "observations"
	LayerModeled       LayerType = "modeled"
	LayerBreedingSites LayerType = "breeding_sites"
)

// Layers lists all known layer types in ingestion order.
var Layers = []LayerType{
	LayerDistribution,
	LayerObservations,
	LayerModeled,
	LayerBreedingSites,
}

// ParseLayerType validates a layer name. Unknown names return ok=false rather
// than an error so callers can map them to a not-found response.
func ParseLayerType(s string) (LayerType, bool) {
	switch LayerType(s) {
	case LayerDistribution, LayerObservations, LayerModeled, LayerBreedingSites:
		return LayerType(s), true
	}
	return "", false
}

// RequiresSpecies reports whether features in this layer must carry a species
// property. Breeding sites are the one layer where species is nullable.
func (l LayerType) RequiresSpecies() bool {
	return l != LayerBreedingSites
}

func (l LayerType) String() string { return string(l) }
