package geo

import (
	"math"
	"testing"
)

func TestTileBoundsRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tile Tile
	}{
		{name: "origin at zoom 0", tile: Tile{Z: 0, X: 0, Y: 0}},
		{name: "zoom 1 southeast", tile: Tile{Z: 1, X: 1, Y: 1}},
		{name: "central Europe zoom 10", tile: Tile{Z: 10, X: 566, Y: 352}},
		{name: "high zoom", tile: Tile{Z: 18, X: 145113, Y: 90205}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := TileBounds(tt.tile, 256)
			got := MercatorToTile(b.CenterX(), b.CenterY(), tt.tile.Z, 256)
			if got != tt.tile {
				t.Errorf("center of %v maps to %v", tt.tile, got)
			}
		})
	}
}

func TestResolutionDoubling(t *testing.T) {
	for zoom := 0; zoom < 20; zoom++ {
		r0 := Resolution(zoom, 256)
		r1 := Resolution(zoom+1, 256)
		if math.Abs(r0/r1-2) > 1e-12 {
			t.Errorf("resolution at zoom %d is not double of zoom %d: %g vs %g", zoom, zoom+1, r0, r1)
		}
	}
}

func TestTileValid(t *testing.T) {
	tests := []struct {
		name string
		tile Tile
		want bool
	}{
		{"zoom 0 origin", Tile{0, 0, 0}, true},
		{"negative column", Tile{3, -1, 0}, false},
		{"row past pyramid", Tile{3, 0, 8}, false},
		{"last tile at zoom 3", Tile{3, 7, 7}, true},
		{"negative zoom", Tile{-1, 0, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tile.Valid(); got != tt.want {
				t.Errorf("Valid(%v) = %v, want %v", tt.tile, got, tt.want)
			}
		})
	}
}

func TestMercatorLonLatRoundTrip(t *testing.T) {
	lons := []float64{-170, -74.006, 0, 17.107, 179}
	lats := []float64{-80, -33.5, 0, 48.148, 80}

	for _, lon := range lons {
		for _, lat := range lats {
			x, y := LonLatToMercator(lon, lat)
			gotLon, gotLat := MercatorToLonLat(x, y)
			if math.Abs(gotLon-lon) > 1e-9 || math.Abs(gotLat-lat) > 1e-9 {
				t.Errorf("round trip (%f, %f) = (%f, %f)", lon, lat, gotLon, gotLat)
			}
		}
	}
}
