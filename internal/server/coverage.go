package server

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/geo"
)

// Coverage is the area the server has data for. Tiles wholly outside
// it are answered with a uniform filler tile instead of hitting the
// database.
type Coverage struct {
	area  orb.MultiPolygon // WGS84 lon/lat
	bound orb.Bound
}

// LoadCoverage reads a GeoJSON file holding the coverage polygon. The
// file may be a FeatureCollection, a Feature or a bare geometry; all
// polygons found are merged.
func LoadCoverage(path string) (*Coverage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read coverage file: %w", err)
	}

	var area orb.MultiPolygon

	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil {
		for _, f := range fc.Features {
			area = appendPolygons(area, f.Geometry)
		}
	} else if f, err := geojson.UnmarshalFeature(data); err == nil {
		area = appendPolygons(area, f.Geometry)
	} else if g, err := geojson.UnmarshalGeometry(data); err == nil {
		area = appendPolygons(area, g.Geometry())
	} else {
		return nil, fmt.Errorf("coverage file %s is not valid GeoJSON", path)
	}

	if len(area) == 0 {
		return nil, fmt.Errorf("coverage file %s contains no polygons", path)
	}

	return &Coverage{area: area, bound: area.Bound()}, nil
}

func appendPolygons(area orb.MultiPolygon, g orb.Geometry) orb.MultiPolygon {
	switch g := g.(type) {
	case orb.Polygon:
		area = append(area, g)
	case orb.MultiPolygon:
		area = append(area, g...)
	case orb.Collection:
		for _, sub := range g {
			area = appendPolygons(area, sub)
		}
	}
	return area
}

// Covers reports whether a projected extent touches the coverage area.
// A nil coverage covers everything. The test samples the extent's
// corners and center and additionally accepts extents enclosing part
// of the polygon, which is exact enough at tile granularity.
func (c *Coverage) Covers(b geo.Bounds) bool {
	if c == nil {
		return true
	}

	minLon, minLat := geo.MercatorToLonLat(b.MinX, b.MinY)
	maxLon, maxLat := geo.MercatorToLonLat(b.MaxX, b.MaxY)
	box := orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}

	if !box.Intersects(c.bound) {
		return false
	}

	samples := []orb.Point{
		{minLon, minLat},
		{maxLon, minLat},
		{minLon, maxLat},
		{maxLon, maxLat},
		{(minLon + maxLon) / 2, (minLat + maxLat) / 2},
	}
	for _, p := range samples {
		if planar.MultiPolygonContains(c.area, p) {
			return true
		}
	}

	// the extent may straddle a polygon edge without containing any
	// sample point; a polygon vertex inside the box settles it
	for _, poly := range c.area {
		for _, ring := range poly {
			for _, p := range ring {
				if box.Contains(p) {
					return true
				}
			}
		}
	}

	return false
}
