package geo

import "fmt"

// Tile represents a map tile address in the standard web map pyramid
type Tile struct {
	Z int // Zoom level
	X int // Column
	Y int // Row
}

// String returns the tile in z/x/y format
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Valid reports whether the address lies inside the pyramid at its zoom
func (t Tile) Valid() bool {
	if t.Z < 0 || t.Z > 30 {
		return false
	}
	n := 1 << uint(t.Z)
	return t.X >= 0 && t.X < n && t.Y >= 0 && t.Y < n
}

// Parent returns the tile one zoom level up covering this tile
func (t Tile) Parent() (Tile, bool) {
	if t.Z == 0 {
		return Tile{}, false
	}
	return Tile{Z: t.Z - 1, X: t.X / 2, Y: t.Y / 2}, true
}

// Resolution returns meters per pixel at a zoom level for a tile size
func Resolution(zoom, tileSize int) float64 {
	worldSize := 2 * maxExtent
	return worldSize / float64(tileSize*(1<<uint(zoom)))
}

// TileBounds returns the Web Mercator extent of a tile. The pyramid
// origin is the top-left corner (-maxExtent, +maxExtent), rows growing
// southward.
func TileBounds(t Tile, tileSize int) Bounds {
	res := Resolution(t.Z, tileSize)
	span := float64(tileSize) * res
	minX := -maxExtent + float64(t.X)*span
	maxY := maxExtent - float64(t.Y)*span
	return Bounds{
		MinX: minX,
		MinY: maxY - span,
		MaxX: minX + span,
		MaxY: maxY,
	}
}

// MercatorToTile returns the tile containing a Web Mercator point
func MercatorToTile(x, y float64, zoom, tileSize int) Tile {
	res := Resolution(zoom, tileSize)
	span := float64(tileSize) * res
	tx := int((x + maxExtent) / span)
	ty := int((maxExtent - y) / span)
	n := 1 << uint(zoom)
	if tx >= n {
		tx = n - 1
	}
	if ty >= n {
		ty = n - 1
	}
	if tx < 0 {
		tx = 0
	}
	if ty < 0 {
		ty = 0
	}
	return Tile{Z: zoom, X: tx, Y: ty}
}
