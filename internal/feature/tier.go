package feature

import "github.com/FreemapSlovakia/freemap-outdoor-map/internal/config"

// Tiers is a static zoom → generalization table. Low zoom levels read
// from simplified geometry tables identified by a table-name suffix;
// zoom levels past the last threshold read full resolution geometry.
type Tiers struct {
	thresholds []config.TierThreshold
}

// NewTiers builds the lookup table from configuration. Thresholds must
// already be validated as strictly increasing by zoom.
func NewTiers(thresholds []config.TierThreshold) Tiers {
	return Tiers{thresholds: thresholds}
}

// Suffix returns the table suffix to use at a zoom level, or the empty
// string for full resolution
func (t Tiers) Suffix(zoom int) string {
	for _, th := range t.thresholds {
		if zoom <= th.MaxZoom {
			return th.Suffix
		}
	}
	return ""
}
