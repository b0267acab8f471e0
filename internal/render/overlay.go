package render

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/geo"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/style"
)

// ErrInvalidOverlay marks malformed user-supplied overlay geometry.
// Overlay problems fail the whole render; they are never skipped.
var ErrInvalidOverlay = errors.New("invalid overlay geometry")

// overlayItem is one validated, projected overlay feature with its
// resolved drawing parameters
type overlayItem struct {
	Geometry orb.Geometry // Web Mercator
	Stroke   color.NRGBA
	Fill     color.NRGBA
	HasFill  bool
	Width    float64
	Label    string
}

var defaultOverlayStroke = style.MustColor("#4a90d9")

// ParseOverlay validates a GeoJSON feature collection and projects it
// into Web Mercator. Optional per-feature properties: "color" (stroke,
// hex or color word), "fill", "width" (pixels), "name" (label).
func ParseOverlay(fc *geojson.FeatureCollection) ([]overlayItem, error) {
	if fc == nil {
		return nil, nil
	}

	items := make([]overlayItem, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			return nil, fmt.Errorf("%w: feature %d has no geometry", ErrInvalidOverlay, i)
		}
		if err := validateGeometry(f.Geometry); err != nil {
			return nil, fmt.Errorf("%w: feature %d: %v", ErrInvalidOverlay, i, err)
		}

		item := overlayItem{
			Geometry: projectGeometry(f.Geometry),
			Stroke:   defaultOverlayStroke,
			Width:    3,
		}

		if v, ok := f.Properties["color"].(string); ok {
			c, err := style.ParseColor(v)
			if err != nil {
				return nil, fmt.Errorf("%w: feature %d: %v", ErrInvalidOverlay, i, err)
			}
			item.Stroke = c
		}
		if v, ok := f.Properties["fill"].(string); ok {
			c, err := style.ParseColor(v)
			if err != nil {
				return nil, fmt.Errorf("%w: feature %d: %v", ErrInvalidOverlay, i, err)
			}
			item.Fill = c
			item.HasFill = true
		}
		if v, ok := f.Properties["width"].(float64); ok && v > 0 {
			item.Width = v
		}
		if v, ok := f.Properties["name"].(string); ok {
			item.Label = v
		}

		items = append(items, item)
	}
	return items, nil
}

func validateGeometry(g orb.Geometry) error {
	switch g := g.(type) {
	case orb.Point:
		return validatePoint(g)
	case orb.MultiPoint:
		for _, p := range g {
			if err := validatePoint(p); err != nil {
				return err
			}
		}
	case orb.LineString:
		return validateLine(g)
	case orb.MultiLineString:
		for _, l := range g {
			if err := validateLine(l); err != nil {
				return err
			}
		}
	case orb.Polygon:
		return validatePolygon(g)
	case orb.MultiPolygon:
		for _, p := range g {
			if err := validatePolygon(p); err != nil {
				return err
			}
		}
	case orb.Collection:
		for _, sub := range g {
			if err := validateGeometry(sub); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported geometry type %q", g.GeoJSONType())
	}
	return nil
}

func validatePoint(p orb.Point) error {
	if p[0] < -180 || p[0] > 180 || p[1] < -90 || p[1] > 90 {
		return fmt.Errorf("coordinate (%g, %g) out of range", p[0], p[1])
	}
	return nil
}

func validateLine(l orb.LineString) error {
	if len(l) < 2 {
		return fmt.Errorf("line string has %d points, need at least 2", len(l))
	}
	for _, p := range l {
		if err := validatePoint(p); err != nil {
			return err
		}
	}
	return nil
}

func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("polygon has no rings")
	}
	for _, ring := range p {
		if len(ring) < 4 {
			return fmt.Errorf("polygon ring has %d points, need at least 4", len(ring))
		}
		if ring[0] != ring[len(ring)-1] {
			return fmt.Errorf("polygon ring is not closed")
		}
		for _, pt := range ring {
			if err := validatePoint(pt); err != nil {
				return err
			}
		}
	}
	return nil
}

// projectGeometry converts lon/lat geometry into Web Mercator
func projectGeometry(g orb.Geometry) orb.Geometry {
	switch g := g.(type) {
	case orb.Point:
		return projectPoint(g)
	case orb.MultiPoint:
		out := make(orb.MultiPoint, len(g))
		for i, p := range g {
			out[i] = projectPoint(p)
		}
		return out
	case orb.LineString:
		return projectLine(g)
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(g))
		for i, l := range g {
			out[i] = projectLine(l)
		}
		return out
	case orb.Polygon:
		return projectPolygon(g)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = projectPolygon(p)
		}
		return out
	case orb.Collection:
		out := make(orb.Collection, len(g))
		for i, sub := range g {
			out[i] = projectGeometry(sub)
		}
		return out
	}
	return g
}

func projectPoint(p orb.Point) orb.Point {
	x, y := geo.LonLatToMercator(p[0], p[1])
	return orb.Point{x, y}
}

func projectLine(l orb.LineString) orb.LineString {
	out := make(orb.LineString, len(l))
	for i, p := range l {
		out[i] = projectPoint(p)
	}
	return out
}

func projectPolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, ring := range p {
		r := make(orb.Ring, len(ring))
		for j, pt := range ring {
			r[j] = projectPoint(pt)
		}
		out[i] = r
	}
	return out
}
