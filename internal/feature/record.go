package feature

import "github.com/paulmach/orb"

// Category identifies what kind of map feature a record describes
type Category string

const (
	CategoryLandcover Category = "landcover"
	CategoryWaterArea Category = "water_area"
	CategoryWaterLine Category = "water_line"
	CategoryBoundary  Category = "boundary"
	CategoryRoute     Category = "route"
	CategoryPOI       Category = "poi"
	CategoryPeak      Category = "peak"
	CategoryContour   Category = "contour"
	CategoryOverlay   Category = "overlay"
)

// Record is one feature fetched for a single render pass. Geometry is
// in Web Mercator meters. Records are transient: they live only for
// the render that queried them.
type Record struct {
	Geometry orb.Geometry
	Category Category

	Name    string
	Kind    string // landcover class, POI type, boundary admin level, ...
	Network string // route network: hiking, bicycle, ski, horse
	Color   string // explicit route color, "#rrggbb" or OSM color word
	Symbol  string // route symbol, e.g. "red:red_bar"

	Elevation float64 // peaks and contours, meters
	Isolation float64 // peaks, meters to nearest higher ground

	Tags map[string]string
}

// RouteNetworks lists the route categories the export API can toggle
var RouteNetworks = []string{"hiking", "bicycle", "ski", "horse"}

// Toggles selects which optional render content a request wants
type Toggles struct {
	Shading       bool `json:"shading"`
	Contours      bool `json:"contours"`
	HikingTrails  bool `json:"hikingTrails"`
	BicycleTrails bool `json:"bicycleTrails"`
	SkiTrails     bool `json:"skiTrails"`
	HorseTrails   bool `json:"horseTrails"`
}

// Networks returns the route networks enabled by the toggle set
func (t Toggles) Networks() []string {
	var out []string
	if t.HikingTrails {
		out = append(out, "hiking")
	}
	if t.BicycleTrails {
		out = append(out, "bicycle")
	}
	if t.SkiTrails {
		out = append(out, "ski")
	}
	if t.HorseTrails {
		out = append(out, "horse")
	}
	return out
}

// Key returns a stable cache-key fragment for the toggle set
func (t Toggles) Key() string {
	b := []byte("......")
	flags := []bool{t.Shading, t.Contours, t.HikingTrails, t.BicycleTrails, t.SkiTrails, t.HorseTrails}
	for i, f := range flags {
		if f {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}

// DefaultToggles enables everything, matching the interactive tile view
func DefaultToggles() Toggles {
	return Toggles{
		Shading:       true,
		Contours:      true,
		HikingTrails:  true,
		BicycleTrails: true,
		SkiTrails:     true,
		HorseTrails:   true,
	}
}
