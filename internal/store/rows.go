package store

import (
	"encoding/json"

	"github.com/vectoratlas/atlas-cli/internal/atlas"
)

// Row binding between normalized records and the schema registry's column
// order. Nil pointers pass through as SQL NULL.

func speciesRow(r atlas.SpeciesRecord) []any {
	return []any{
		r.ID,
		r.ScientificName,
		r.CommonName,
		r.VectorStatus,
		r.ImageURL,
		r.Description,
		marshalList(r.KeyCharacteristics),
		marshalList(r.GeographicRegions),
		marshalList(r.RelatedDiseases),
		marshalList(r.HabitatPreferences),
	}
}

func speciesRows(records []atlas.SpeciesRecord) [][]any {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = speciesRow(r)
	}
	return rows
}

func geoFeatureRow(r atlas.GeoFeatureRecord) []any {
	return []any{
		string(r.LayerType),
		r.Species,
		r.GeometryType,
		r.GeometryJSON,
		r.PropertiesJSON,
		r.Lon,
		r.Lat,
		r.MinX,
		r.MinY,
		r.MaxX,
		r.MaxY,
		r.CentroidLon,
		r.CentroidLat,
		r.ObsDate,
		r.Count,
		r.DataSource,
		r.DistStatus,
		r.Probability,
		r.SiteType,
		r.LarvaePresent,
	}
}

func geoFeatureRows(records []atlas.GeoFeatureRecord) [][]any {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = geoFeatureRow(r)
	}
	return rows
}

// marshalList serializes a list-valued attribute for a scalar text column.
// A nil slice serializes as [] so the column is never NULL.
func marshalList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		// []string cannot fail to marshal; keep the column well-formed anyway.
		return "[]"
	}
	return string(data)
}

// unmarshalList decodes a serialized list attribute, tolerating legacy empty
// values.
func unmarshalList(s string) []string {
	if s == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil
	}
	return items
}
