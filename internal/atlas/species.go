package atlas

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ParseSpeciesCatalog decodes a JSON array of species objects. Records missing
// an id or scientific name are dropped rather than failing the whole catalog;
// the dropped count is returned for the ingestion summary.
func ParseSpeciesCatalog(data []byte) ([]SpeciesRecord, int, error) {
	var raw []SpeciesRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, eris.Wrap(err, "atlas: parse species catalog")
	}

	records := make([]SpeciesRecord, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		if !r.Valid() {
			dropped++
			continue
		}
		records = append(records, r)
	}
	return records, dropped, nil
}
