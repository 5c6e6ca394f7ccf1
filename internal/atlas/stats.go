package atlas

// LayerStats tracks accepted and skipped features for one layer during an
// ingestion run.
type LayerStats struct {
	Layer    LayerType
	Accepted int
	Skipped  int
	Reasons  map[SkipReason]int
}

// NewLayerStats returns zeroed stats for a layer.
func NewLayerStats(layer LayerType) *LayerStats {
	return &LayerStats{Layer: layer, Reasons: map[SkipReason]int{}}
}

// Accept records one accepted feature.
func (s *LayerStats) Accept() { s.Accepted++ }

// Skip records one skipped feature under its reason.
func (s *LayerStats) Skip(reason SkipReason) {
	s.Skipped++
	s.Reasons[reason]++
}

// Total returns the number of features seen.
func (s *LayerStats) Total() int { return s.Accepted + s.Skipped }
