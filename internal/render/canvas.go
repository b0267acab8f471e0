package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// Point is a position in canvas pixel coordinates
type Point struct {
	X, Y float64
}

// Canvas wraps an NRGBA image with a path rasterizer for antialiased
// polygon fills and stroked polylines. Not safe for concurrent use;
// every render pass owns its own canvas.
type Canvas struct {
	img *image.NRGBA
	w   int
	h   int
}

// NewCanvas allocates a transparent canvas of the given pixel size
func NewCanvas(w, h int) *Canvas {
	return &Canvas{
		img: image.NewNRGBA(image.Rect(0, 0, w, h)),
		w:   w,
		h:   h,
	}
}

// Image returns the backing image
func (c *Canvas) Image() *image.NRGBA { return c.img }

// Clear floods the whole canvas with one color
func (c *Canvas) Clear(col color.NRGBA) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// FillPolygon fills rings with the non-zero winding rule. Outer rings
// and holes must wind in opposite directions, which is how they arrive
// from the database and from valid GeoJSON.
func (c *Canvas) FillPolygon(rings [][]Point, col color.NRGBA) {
	if col.A == 0 {
		return
	}

	r := vector.NewRasterizer(c.w, c.h)
	r.DrawOp = draw.Over

	any := false
	for _, ring := range rings {
		if len(ring) < 3 {
			continue
		}
		r.MoveTo(float32(ring[0].X), float32(ring[0].Y))
		for _, p := range ring[1:] {
			r.LineTo(float32(p.X), float32(p.Y))
		}
		r.ClosePath()
		any = true
	}
	if !any {
		return
	}

	r.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

// StrokeLine draws a polyline with round joins and caps. An empty dash
// slice draws a solid line.
func (c *Canvas) StrokeLine(pts []Point, col color.NRGBA, width float64, dash []float64) {
	if col.A == 0 || width <= 0 || len(pts) < 2 {
		return
	}

	if len(dash) > 0 {
		for _, piece := range dashSplit(pts, dash) {
			c.strokeSolid(piece, col, width)
		}
		return
	}
	c.strokeSolid(pts, col, width)
}

func (c *Canvas) strokeSolid(pts []Point, col color.NRGBA, width float64) {
	if len(pts) < 2 {
		return
	}

	r := vector.NewRasterizer(c.w, c.h)
	r.DrawOp = draw.Over
	half := width / 2

	for i := 0; i < len(pts)-1; i++ {
		a, b := pts[i], pts[i+1]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		// unit normal
		nx, ny := -dy/l*half, dx/l*half

		r.MoveTo(float32(a.X+nx), float32(a.Y+ny))
		r.LineTo(float32(b.X+nx), float32(b.Y+ny))
		r.LineTo(float32(b.X-nx), float32(b.Y-ny))
		r.LineTo(float32(a.X-nx), float32(a.Y-ny))
		r.ClosePath()
	}

	// round joins and caps
	for _, p := range pts {
		addCirclePath(r, p, half)
	}

	r.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

// FillCircle draws a filled dot, used for POI and peak markers
func (c *Canvas) FillCircle(p Point, radius float64, col color.NRGBA) {
	if col.A == 0 || radius <= 0 {
		return
	}
	r := vector.NewRasterizer(c.w, c.h)
	r.DrawOp = draw.Over
	addCirclePath(r, p, radius)
	r.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

// StrokeCircle draws a circle outline
func (c *Canvas) StrokeCircle(p Point, radius, width float64, col color.NRGBA) {
	if col.A == 0 || radius <= 0 || width <= 0 {
		return
	}
	const n = 24
	pts := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		a := 2 * math.Pi * float64(i) / n
		pts = append(pts, Point{p.X + radius*math.Cos(a), p.Y + radius*math.Sin(a)})
	}
	c.strokeSolid(pts, col, width)
}

// Composite alpha-blends another canvas over this one
func (c *Canvas) Composite(src *Canvas) {
	draw.Draw(c.img, c.img.Bounds(), src.img, image.Point{}, draw.Over)
}

func addCirclePath(r *vector.Rasterizer, p Point, radius float64) {
	const n = 16
	r.MoveTo(float32(p.X+radius), float32(p.Y))
	for i := 1; i <= n; i++ {
		a := 2 * math.Pi * float64(i) / n
		r.LineTo(float32(p.X+radius*math.Cos(a)), float32(p.Y+radius*math.Sin(a)))
	}
	r.ClosePath()
}

// dashSplit cuts a polyline into the "on" pieces of a dash pattern
func dashSplit(pts []Point, dash []float64) [][]Point {
	total := 0.0
	for _, d := range dash {
		total += d
	}
	if total <= 0 {
		return [][]Point{pts}
	}

	var out [][]Point
	var cur []Point

	di := 0         // index into dash pattern
	rem := dash[0]  // remaining length of current dash element
	on := true      // odd elements are gaps

	flush := func() {
		if len(cur) >= 2 {
			out = append(out, cur)
		}
		cur = nil
	}

	for i := 0; i < len(pts)-1; i++ {
		a, b := pts[i], pts[i+1]
		segLen := math.Hypot(b.X-a.X, b.Y-a.Y)
		if segLen == 0 {
			continue
		}
		pos := 0.0
		if on && len(cur) == 0 {
			cur = append(cur, a)
		}

		for pos < segLen {
			step := math.Min(rem, segLen-pos)
			pos += step
			rem -= step

			t := pos / segLen
			pt := Point{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}

			if rem <= 1e-9 {
				if on {
					cur = append(cur, pt)
					flush()
				} else {
					cur = []Point{pt}
				}
				on = !on
				di = (di + 1) % len(dash)
				rem = dash[di]
			} else if pos >= segLen && on {
				cur = append(cur, pt)
			}
		}
	}
	flush()
	return out
}
