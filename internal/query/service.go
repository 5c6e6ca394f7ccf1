// Package query reconstructs GeoJSON feature collections from stored rows
// under layer, species, and bounding-box predicates.
package query

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vectoratlas/atlas-cli/internal/atlas"
	"github.com/vectoratlas/atlas-cli/internal/geojson"
	"github.com/vectoratlas/atlas-cli/internal/store"
)

// ErrUnknownLayer marks a layer name outside the four known values. The HTTP
// layer maps it to a 404.
var ErrUnknownLayer = eris.New("query: unknown layer type")

// Service is the read path over the store. The store is never mutated during
// normal operation, so a Service is safe for concurrent use.
type Service struct {
	store store.Store
}

// NewService returns a Service over the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Features returns all features of a layer matching the optional species and
// bbox filters, reassembled from the verbatim stored geometry and properties.
// Filters AND together; an empty species slice and a nil bbox match
// everything. Zero matches yield an empty, valid FeatureCollection.
func (s *Service) Features(ctx context.Context, layer string, species []string, bbox *geojson.BBox) (*geojson.FeatureCollection, error) {
	layerType, ok := atlas.ParseLayerType(layer)
	if !ok {
		return nil, eris.Wrapf(ErrUnknownLayer, "%q", layer)
	}

	rows, err := s.store.SelectFeatures(ctx, store.FeatureFilter{
		Layer:   layerType,
		Species: species,
		BBox:    bbox,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "query: select %s features", layerType)
	}

	fc := geojson.NewFeatureCollection()
	for _, row := range rows {
		fc.Features = append(fc.Features, geojson.Feature{
			Type:       "Feature",
			Geometry:   json.RawMessage(row.GeometryJSON),
			Properties: json.RawMessage(row.PropertiesJSON),
		})
	}

	zap.L().Debug("features queried",
		zap.String("layer", layer),
		zap.Int("species_filters", len(species)),
		zap.Bool("bbox", bbox != nil),
		zap.Int("matches", len(fc.Features)),
	)

	return fc, nil
}

// Species returns the full species catalog.
func (s *Service) Species(ctx context.Context) ([]atlas.SpeciesRecord, error) {
	records, err := s.store.ListSpecies(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "query: list species")
	}
	return records, nil
}
