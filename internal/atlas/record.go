package atlas

// GeoFeatureRecord is one normalized spatial observation or prediction, the
// row shape of the geo_features table. GeometryJSON and PropertiesJSON hold
// the original feature verbatim and are the source of truth for
// reconstruction; every other scalar exists only to make filtering cheap.
// Nil pointer fields persist as NULL.
type GeoFeatureRecord struct {
	LayerType      LayerType
	Species        *string
	GeometryType   string
	GeometryJSON   string
	PropertiesJSON string

	// Derived from geometry.
	Lon         *float64
	Lat         *float64
	MinX        *float64
	MinY        *float64
	MaxX        *float64
	MaxY        *float64
	CentroidLon *float64
	CentroidLat *float64

	// Mapped from well-known property keys.
	ObsDate       *string
	Count         *int64
	DataSource    *string
	DistStatus    *string
	Probability   *float64
	SiteType      *string
	LarvaePresent *bool
}

// SpeciesRecord is one entry of the species catalog. The list-valued
// attributes are stored as serialized JSON arrays because the store's columns
// are scalar-only.
type SpeciesRecord struct {
	ID                 string   `json:"id"`
	ScientificName     string   `json:"scientific_name"`
	CommonName         string   `json:"common_name"`
	VectorStatus       string   `json:"vector_status"`
	ImageURL           string   `json:"image_url"`
	Description        string   `json:"description"`
	KeyCharacteristics []string `json:"key_characteristics"`
	GeographicRegions  []string `json:"geographic_regions"`
	RelatedDiseases    []string `json:"related_diseases"`
	HabitatPreferences []string `json:"habitat_preferences"`
}

// Valid reports whether a species record carries the two mandatory fields.
// Records failing this are excluded at load time.
func (s SpeciesRecord) Valid() bool {
	return s.ID != "" && s.ScientificName != ""
}
