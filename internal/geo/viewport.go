package geo

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidTileAddress marks a tile address outside the pyramid
	ErrInvalidTileAddress = errors.New("invalid tile address")
	// ErrInvalidBoundingBox marks a degenerate or oversized bounding box
	ErrInvalidBoundingBox = errors.New("invalid bounding box")
)

// Viewport describes one render target: a projected extent and the
// raster dimensions it maps onto
type Viewport struct {
	Bounds Bounds
	Zoom   int
	Scale  float64
	Width  int // output pixels, scale included
	Height int
}

// Resolver converts tile addresses and bounding boxes into viewports,
// enforcing the configured size bounds
type Resolver struct {
	TileSize          int
	MaxZoom           int
	MaxPixelDimension int
	MaxExportPixels   float64
}

// FromTile resolves a tile address into a viewport
func (r *Resolver) FromTile(t Tile, scale float64) (Viewport, error) {
	if !t.Valid() || t.Z > r.MaxZoom {
		return Viewport{}, fmt.Errorf("%w: %s", ErrInvalidTileAddress, t)
	}
	if scale <= 0 {
		return Viewport{}, fmt.Errorf("%w: scale %g", ErrInvalidTileAddress, scale)
	}

	px := int(math.Round(float64(r.TileSize) * scale))

	return Viewport{
		Bounds: TileBounds(t, r.TileSize),
		Zoom:   t.Z,
		Scale:  scale,
		Width:  px,
		Height: px,
	}, nil
}

// FromBounds resolves an explicit projected box plus zoom into a
// viewport. Pixel dimensions derive from the box extent, the zoom
// resolution and the scale factor, rounded to the nearest pixel.
func (r *Resolver) FromBounds(b Bounds, zoom int, scale float64) (Viewport, error) {
	if zoom < 0 || zoom > r.MaxZoom {
		return Viewport{}, fmt.Errorf("%w: zoom %d out of range 0..%d", ErrInvalidBoundingBox, zoom, r.MaxZoom)
	}
	if scale <= 0 {
		return Viewport{}, fmt.Errorf("%w: scale %g", ErrInvalidBoundingBox, scale)
	}
	if !b.IsValid() {
		return Viewport{}, fmt.Errorf("%w: degenerate extent", ErrInvalidBoundingBox)
	}

	res := Resolution(zoom, r.TileSize)
	w := int(math.Round(b.Width() / res * scale))
	h := int(math.Round(b.Height() / res * scale))

	if w < 1 || h < 1 {
		return Viewport{}, fmt.Errorf("%w: resolves to empty raster at zoom %d", ErrInvalidBoundingBox, zoom)
	}
	if w > r.MaxPixelDimension || h > r.MaxPixelDimension {
		return Viewport{}, fmt.Errorf("%w: %dx%d exceeds maximum dimension %d",
			ErrInvalidBoundingBox, w, h, r.MaxPixelDimension)
	}
	if float64(w)*float64(h) > r.MaxExportPixels {
		return Viewport{}, fmt.Errorf("%w: %dx%d exceeds maximum area at zoom %d",
			ErrInvalidBoundingBox, w, h, zoom)
	}

	return Viewport{
		Bounds: b,
		Zoom:   zoom,
		Scale:  scale,
		Width:  w,
		Height: h,
	}, nil
}

// FromLonLat resolves a WGS84 box, as received on the export API
func (r *Resolver) FromLonLat(minLon, minLat, maxLon, maxLat float64, zoom int, scale float64) (Viewport, error) {
	if minLon >= maxLon || minLat >= maxLat {
		return Viewport{}, fmt.Errorf("%w: min must be < max", ErrInvalidBoundingBox)
	}
	if minLon < -180 || maxLon > 180 || minLat < -90 || maxLat > 90 {
		return Viewport{}, fmt.Errorf("%w: coordinates out of range", ErrInvalidBoundingBox)
	}
	return r.FromBounds(BoundsFromLonLat(minLon, minLat, maxLon, maxLat), zoom, scale)
}

// Project maps a Web Mercator point to pixel coordinates in the
// viewport raster (y growing downward)
func (v Viewport) Project(x, y float64) (px, py float64) {
	px = (x - v.Bounds.MinX) / v.Bounds.Width() * float64(v.Width)
	py = (v.Bounds.MaxY - y) / v.Bounds.Height() * float64(v.Height)
	return px, py
}

// MetersPerPixel returns the ground resolution of the viewport raster
func (v Viewport) MetersPerPixel() float64 {
	return v.Bounds.Width() / float64(v.Width)
}
