package style

import "github.com/FreemapSlovakia/freemap-outdoor-map/internal/feature"

// Default returns the built-in outdoor map rule set, used when no
// style file is configured. Zoom gates follow the interactive map:
// contours from z12, peaks from z11, POIs from z14.
func Default() *Set {
	return &Set{rules: []Rule{
		// landcover
		{Name: "forest", Categories: []feature.Category{feature.CategoryLandcover},
			Kinds: []string{"forest", "wood"}, Fill: "#8cbf73"},
		{Name: "meadow", Categories: []feature.Category{feature.CategoryLandcover},
			Kinds: []string{"meadow", "grass", "grassland", "park"}, Fill: "#bfe39d"},
		{Name: "farmland", Categories: []feature.Category{feature.CategoryLandcover},
			Kinds: []string{"farmland", "orchard", "vineyard"}, Fill: "#eef0d5"},
		{Name: "residential", Categories: []feature.Category{feature.CategoryLandcover},
			Kinds: []string{"residential", "industrial", "commercial"}, Fill: "#e0dfdf"},
		{Name: "rock", Categories: []feature.Category{feature.CategoryLandcover},
			Kinds: []string{"bare_rock", "scree"}, Fill: "#d8d5d0"},
		{Name: "landcover-other", Categories: []feature.Category{feature.CategoryLandcover},
			Fill: "#f2efe9"},

		// water
		{Name: "water-area", Categories: []feature.Category{feature.CategoryWaterArea},
			Fill: "#99b2e0", Stroke: "#7192cc", Width: 1},
		{Name: "river", Categories: []feature.Category{feature.CategoryWaterLine},
			Kinds: []string{"river", "canal"}, Stroke: "#7192cc", Width: 2.2, Label: true},
		{Name: "stream", Categories: []feature.Category{feature.CategoryWaterLine},
			MinZoom: 12, Stroke: "#7192cc", Width: 1.1},

		// contours, brown hairlines
		{Name: "contour", Categories: []feature.Category{feature.CategoryContour},
			MinZoom: 12, Stroke: "#b38a66", Width: 0.6},

		// administrative boundaries
		{Name: "country-border", Categories: []feature.Category{feature.CategoryBoundary},
			Kinds: []string{"2"}, Stroke: "#9d42a8", Width: 2.5, Dash: []float64{9, 3}},
		{Name: "region-border", Categories: []feature.Category{feature.CategoryBoundary},
			MinZoom: 8, Stroke: "#9d42a8", Width: 1.2, Dash: []float64{6, 4}},

		// marked routes, colors derived from route attributes
		{Name: "route-low-zoom", Categories: []feature.Category{feature.CategoryRoute},
			MinZoom: 8, MaxZoom: 11, Stroke: "route", Width: 1.4},
		{Name: "route", Categories: []feature.Category{feature.CategoryRoute},
			MinZoom: 12, Stroke: "route", Width: 2, Label: true},

		// points of interest
		{Name: "poi", Categories: []feature.Category{feature.CategoryPOI},
			MinZoom: 14, Stroke: "#5c5c5c", Width: 1, PointRadius: 3,
			Fill: "#ffffff", Label: true, FontSize: 10},

		// peaks, labeled with elevation from z11
		{Name: "peak", Categories: []feature.Category{feature.CategoryPeak},
			MinZoom: 11, Fill: "#74412a", PointRadius: 2.5, Label: true, FontSize: 10},

		// user overlay fallback; explicit per-feature properties win in
		// the compositor
		{Name: "overlay", Categories: []feature.Category{feature.CategoryOverlay},
			Stroke: "#4a90d9", Width: 3, Fill: "#4a90d933"},
	}}
}
