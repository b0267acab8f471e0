package geo

import "math"

// SRID constants for the two projections the server deals with
const (
	SRID4326 = 4326 // WGS84 (lat/lon)
	SRID3857 = 3857 // Web Mercator
)

// Web Mercator constants
const (
	// Semi-major axis of WGS84 ellipsoid in meters
	earthRadius = 6378137.0
	// Maximum extent of Web Mercator
	maxExtent = 20037508.342789244
	// Latitude clamp to avoid infinity at the poles
	maxLatitude = 85.06
)

// LonLatToMercator converts WGS84 (lon, lat) to Web Mercator (x, y) meters
func LonLatToMercator(lon, lat float64) (x, y float64) {
	if lat > maxLatitude {
		lat = maxLatitude
	} else if lat < -maxLatitude {
		lat = -maxLatitude
	}

	x = lon * maxExtent / 180.0

	// y = R * ln(tan(π/4 + φ/2))
	latRad := lat * math.Pi / 180.0
	y = math.Log(math.Tan(math.Pi/4.0+latRad/2.0)) * earthRadius

	return x, y
}

// MercatorToLonLat converts Web Mercator (x, y) meters to WGS84 (lon, lat)
func MercatorToLonLat(x, y float64) (lon, lat float64) {
	lon = x / maxExtent * 180.0
	lat = (2.0*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2.0) * 180.0 / math.Pi
	return lon, lat
}

// Bounds represents a bounding box in Web Mercator meters
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the horizontal extent in meters
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent in meters
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// CenterX returns the horizontal center
func (b Bounds) CenterX() float64 { return (b.MinX + b.MaxX) / 2 }

// CenterY returns the vertical center
func (b Bounds) CenterY() float64 { return (b.MinY + b.MaxY) / 2 }

// IsValid reports whether the box has positive extent within the
// projection's valid range
func (b Bounds) IsValid() bool {
	return b.MinX < b.MaxX && b.MinY < b.MaxY &&
		b.MinX >= -maxExtent-1e-6 && b.MaxX <= maxExtent+1e-6 &&
		b.MinY >= -maxExtent-1e-6 && b.MaxY <= maxExtent+1e-6
}

// Intersects reports whether two boxes overlap
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX &&
		b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// Buffer returns the box grown by d meters on every side
func (b Bounds) Buffer(d float64) Bounds {
	return Bounds{MinX: b.MinX - d, MinY: b.MinY - d, MaxX: b.MaxX + d, MaxY: b.MaxY + d}
}

// BoundsFromLonLat projects a WGS84 box into Web Mercator
func BoundsFromLonLat(minLon, minLat, maxLon, maxLat float64) Bounds {
	minX, minY := LonLatToMercator(minLon, minLat)
	maxX, maxY := LonLatToMercator(maxLon, maxLat)
	return Bounds{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}
