package geo

import (
	"errors"
	"testing"
)

func testResolver() *Resolver {
	return &Resolver{
		TileSize:          256,
		MaxZoom:           19,
		MaxPixelDimension: 4096,
		MaxExportPixels:   4096 * 4096,
	}
}

func TestFromTile(t *testing.T) {
	r := testResolver()

	tests := []struct {
		name    string
		tile    Tile
		scale   float64
		wantErr bool
		wantPx  int
	}{
		{name: "base scale", tile: Tile{Z: 10, X: 566, Y: 352}, scale: 1, wantPx: 256},
		{name: "retina", tile: Tile{Z: 10, X: 566, Y: 352}, scale: 2, wantPx: 512},
		{name: "zoom above max", tile: Tile{Z: 20, X: 0, Y: 0}, scale: 1, wantErr: true},
		{name: "column out of range", tile: Tile{Z: 2, X: 4, Y: 0}, scale: 1, wantErr: true},
		{name: "zero scale", tile: Tile{Z: 2, X: 1, Y: 1}, scale: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vp, err := r.FromTile(tt.tile, tt.scale)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTileAddress) {
					t.Fatalf("want ErrInvalidTileAddress, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if vp.Width != tt.wantPx || vp.Height != tt.wantPx {
				t.Errorf("dimensions = %dx%d, want %dx%d", vp.Width, vp.Height, tt.wantPx, tt.wantPx)
			}
		})
	}
}

func TestFromBoundsDimensions(t *testing.T) {
	r := testResolver()

	// A tile-shaped box must resolve to exactly the tile raster.
	b := TileBounds(Tile{Z: 12, X: 2264, Y: 1410}, 256)
	vp, err := r.FromBounds(b, 12, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vp.Width != 256 || vp.Height != 256 {
		t.Errorf("dimensions = %dx%d, want 256x256", vp.Width, vp.Height)
	}
}

func TestFromBoundsRejections(t *testing.T) {
	r := testResolver()

	tests := []struct {
		name  string
		b     Bounds
		zoom  int
		scale float64
	}{
		{name: "degenerate", b: Bounds{MinX: 10, MinY: 10, MaxX: 10, MaxY: 20}, zoom: 10, scale: 1},
		{name: "inverted", b: Bounds{MinX: 20, MinY: 10, MaxX: 10, MaxY: 20}, zoom: 10, scale: 1},
		{name: "oversized at zoom", b: Bounds{MinX: -2e7, MinY: -2e7, MaxX: 2e7, MaxY: 2e7}, zoom: 15, scale: 1},
		{name: "zoom out of range", b: Bounds{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000}, zoom: 25, scale: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.FromBounds(tt.b, tt.zoom, tt.scale); !errors.Is(err, ErrInvalidBoundingBox) {
				t.Errorf("want ErrInvalidBoundingBox, got %v", err)
			}
		})
	}
}

func TestFromLonLatRejectsInverted(t *testing.T) {
	r := testResolver()
	if _, err := r.FromLonLat(18.0, 48.0, 17.0, 49.0, 12, 1); !errors.Is(err, ErrInvalidBoundingBox) {
		t.Errorf("want ErrInvalidBoundingBox for minLon > maxLon, got %v", err)
	}
}

func TestViewportProject(t *testing.T) {
	vp := Viewport{
		Bounds: Bounds{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000},
		Width:  100,
		Height: 100,
		Scale:  1,
	}

	px, py := vp.Project(0, 1000)
	if px != 0 || py != 0 {
		t.Errorf("top-left maps to (%f, %f), want (0, 0)", px, py)
	}
	px, py = vp.Project(1000, 0)
	if px != 100 || py != 100 {
		t.Errorf("bottom-right maps to (%f, %f), want (100, 100)", px, py)
	}
}
