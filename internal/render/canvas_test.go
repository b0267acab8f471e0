package render

import (
	"image/color"
	"math"
	"testing"
)

func TestDashSplit(t *testing.T) {
	line := []Point{{0, 0}, {100, 0}}

	pieces := dashSplit(line, []float64{10, 10})
	if len(pieces) != 5 {
		t.Fatalf("got %d dash pieces, want 5", len(pieces))
	}
	for i, p := range pieces {
		length := 0.0
		for j := 0; j < len(p)-1; j++ {
			length += math.Hypot(p[j+1].X-p[j].X, p[j+1].Y-p[j].Y)
		}
		if math.Abs(length-10) > 1e-6 {
			t.Errorf("piece %d length %f, want 10", i, length)
		}
	}
}

func TestDashSplitAcrossVertices(t *testing.T) {
	// an L-shaped line of total length 20 with a 30/10 pattern keeps
	// the whole line in the first dash
	line := []Point{{0, 0}, {10, 0}, {10, 10}}
	pieces := dashSplit(line, []float64{30, 10})
	if len(pieces) != 1 {
		t.Fatalf("got %d pieces, want 1", len(pieces))
	}
	if len(pieces[0]) < 3 {
		t.Errorf("piece lost the interior vertex: %v", pieces[0])
	}
}

func TestFillPolygonCoversInterior(t *testing.T) {
	c := NewCanvas(20, 20)
	c.FillPolygon([][]Point{{{2, 2}, {18, 2}, {18, 18}, {2, 18}}}, color.NRGBA{0xff, 0, 0, 0xff})

	if r, _, _, a := c.Image().At(10, 10).RGBA(); r == 0 || a == 0 {
		t.Error("polygon interior not filled")
	}
	if _, _, _, a := c.Image().At(0, 0).RGBA(); a != 0 {
		t.Error("pixel outside polygon was painted")
	}
}

func TestStrokeLineStaysOnPath(t *testing.T) {
	c := NewCanvas(20, 20)
	c.StrokeLine([]Point{{0, 10}, {20, 10}}, color.NRGBA{0, 0, 0xff, 0xff}, 2, nil)

	if _, _, _, a := c.Image().At(10, 10).RGBA(); a == 0 {
		t.Error("stroke missing on the path")
	}
	if _, _, _, a := c.Image().At(10, 2).RGBA(); a != 0 {
		t.Error("stroke bled far off the path")
	}
}
