// Package render composites map layers onto a raster canvas.
//
// Layer order is fixed for every render: land/water base, shaded
// relief, contours, administrative boundaries, routes, POIs and peaks,
// labels, then the user overlay on top. The compositor queries layers
// just-in-time, strictly in z-order, so output never depends on query
// timing.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/elevation"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/feature"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/geo"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/style"
)

// FeatureSource supplies viewport-scoped feature records per layer
type FeatureSource interface {
	Landcover(ctx context.Context, vp geo.Viewport) ([]feature.Record, error)
	WaterAreas(ctx context.Context, vp geo.Viewport) ([]feature.Record, error)
	WaterLines(ctx context.Context, vp geo.Viewport) ([]feature.Record, error)
	Boundaries(ctx context.Context, vp geo.Viewport) ([]feature.Record, error)
	Routes(ctx context.Context, vp geo.Viewport, networks []string) ([]feature.Record, error)
	POIs(ctx context.Context, vp geo.Viewport) ([]feature.Record, error)
	Peaks(ctx context.Context, vp geo.Viewport) ([]feature.Record, error)
}

// ElevationSource supplies viewport-scoped elevation grids
type ElevationSource interface {
	Grid(ctx context.Context, vp geo.Viewport) (*elevation.Grid, error)
}

// Error attributes a render failure to the layer it happened in
type Error struct {
	Layer string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to render %q: %v", e.Layer, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Request describes one composition pass
type Request struct {
	Viewport geo.Viewport
	Toggles  feature.Toggles
	Overlay  *geojson.FeatureCollection
}

// Compositor renders requests using its bound sources and rule set.
// It carries no per-render state and is safe for concurrent use.
type Compositor struct {
	Features        FeatureSource
	Elevation       ElevationSource
	Styles          *style.Set
	ContourInterval float64
	ShadeParams     elevation.ShadeParams
	// LayerOptional reports layers that degrade silently when their
	// query fails; nil means no layer is optional
	LayerOptional func(name string) bool

	Log *zap.Logger
}

var baseColor = style.MustColor("#f2efe9")

// Render composites the request into a raster of exactly the viewport's
// pixel dimensions. Cancellation is checked between layers.
func (c *Compositor) Render(ctx context.Context, req Request) (*image.NRGBA, error) {
	vp := req.Viewport

	// overlay problems must fail the render before any layer work
	overlay, err := ParseOverlay(req.Overlay)
	if err != nil {
		return nil, err
	}

	canvas := NewCanvas(vp.Width, vp.Height)
	canvas.Clear(baseColor)

	var labels []Label

	// land/water base
	if err := c.featureLayer(ctx, "landcover", canvas, vp, nil, func() ([]feature.Record, error) {
		return c.Features.Landcover(ctx, vp)
	}); err != nil {
		return nil, err
	}
	if err := c.featureLayer(ctx, "water", canvas, vp, &labels, func() ([]feature.Record, error) {
		areas, err := c.Features.WaterAreas(ctx, vp)
		if err != nil {
			return nil, err
		}
		lines, err := c.Features.WaterLines(ctx, vp)
		if err != nil {
			return nil, err
		}
		return append(areas, lines...), nil
	}); err != nil {
		return nil, err
	}

	// shaded relief and contours share one elevation grid
	var grid *elevation.Grid
	if req.Toggles.Shading || req.Toggles.Contours {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		grid, err = c.Elevation.Grid(ctx, vp)
		if err != nil {
			return nil, &Error{Layer: "elevation", Err: err}
		}
	}

	if req.Toggles.Shading && grid != nil {
		c.drawShading(canvas, grid)
	}

	if req.Toggles.Contours && grid != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs := elevation.Contours(grid, vp, c.ContourInterval)
		c.drawRecords(canvas, vp, recs, nil)
	}

	// administrative boundaries
	if err := c.featureLayer(ctx, "boundaries", canvas, vp, nil, func() ([]feature.Record, error) {
		return c.Features.Boundaries(ctx, vp)
	}); err != nil {
		return nil, err
	}

	// routes for the toggled networks
	if networks := req.Toggles.Networks(); len(networks) > 0 {
		if err := c.featureLayer(ctx, "routes", canvas, vp, &labels, func() ([]feature.Record, error) {
			return c.Features.Routes(ctx, vp, networks)
		}); err != nil {
			return nil, err
		}
	}

	// POIs, then peaks
	if err := c.featureLayer(ctx, "pois", canvas, vp, &labels, func() ([]feature.Record, error) {
		return c.Features.POIs(ctx, vp)
	}); err != nil {
		return nil, err
	}
	if err := c.peaksLayer(ctx, canvas, vp, &labels); err != nil {
		return nil, err
	}

	// labels, greedy and deterministic
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lb := &labeler{}
	lb.draw(canvas, labels)

	// user overlay is always topmost
	c.drawOverlay(canvas, vp, overlay, lb)

	return canvas.Image(), nil
}

// featureLayer runs one layer query and draws the result. A failed
// query aborts the render unless the layer is configured optional, in
// which case its contribution is dropped whole.
func (c *Compositor) featureLayer(ctx context.Context, name string, canvas *Canvas,
	vp geo.Viewport, labels *[]Label, query func() ([]feature.Record, error)) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	recs, err := query()
	if err != nil {
		if c.LayerOptional != nil && c.LayerOptional(name) {
			if c.Log != nil {
				c.Log.Warn("optional layer degraded", zap.String("layer", name), zap.Error(err))
			}
			return nil
		}
		return &Error{Layer: name, Err: err}
	}

	c.drawRecords(canvas, vp, recs, labels)
	return nil
}

// peaksLayer draws summit markers least-isolated-first so prominent
// peaks end up on top, while label candidates keep the source's
// most-isolated-first order.
func (c *Compositor) peaksLayer(ctx context.Context, canvas *Canvas, vp geo.Viewport, labels *[]Label) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	recs, err := c.Features.Peaks(ctx, vp)
	if err != nil {
		if c.LayerOptional != nil && c.LayerOptional("peaks") {
			if c.Log != nil {
				c.Log.Warn("optional layer degraded", zap.String("layer", "peaks"), zap.Error(err))
			}
			return nil
		}
		return &Error{Layer: "peaks", Err: err}
	}

	for i := len(recs) - 1; i >= 0; i-- {
		c.drawRecord(canvas, vp, recs[i], nil)
	}
	for _, rec := range recs {
		c.collectLabel(canvas, vp, rec, labels)
	}
	return nil
}

func (c *Compositor) drawRecords(canvas *Canvas, vp geo.Viewport, recs []feature.Record, labels *[]Label) {
	for _, rec := range recs {
		c.drawRecord(canvas, vp, rec, labels)
	}
}

func (c *Compositor) drawRecord(canvas *Canvas, vp geo.Viewport, rec feature.Record, labels *[]Label) {
	d, ok := c.Styles.Resolve(rec, vp.Zoom)
	if !ok {
		return
	}

	width := d.Width * vp.Scale
	dash := scaleDash(d.Dash, vp.Scale)

	drawGeometry(canvas, vp, rec.Geometry, d, width, dash)

	if labels != nil && d.Label && rec.Name != "" {
		c.collectLabelStyled(canvas, vp, rec, d, labels)
	}
}

func (c *Compositor) collectLabel(canvas *Canvas, vp geo.Viewport, rec feature.Record, labels *[]Label) {
	d, ok := c.Styles.Resolve(rec, vp.Zoom)
	if !ok || !d.Label || rec.Name == "" {
		return
	}
	c.collectLabelStyled(canvas, vp, rec, d, labels)
}

func (c *Compositor) collectLabelStyled(canvas *Canvas, vp geo.Viewport, rec feature.Record, d style.Directive, labels *[]Label) {
	at, ok := anchor(vp, rec.Geometry)
	if !ok {
		return
	}

	text := rec.Name
	if rec.Category == feature.CategoryPeak && rec.Elevation > 0 {
		text = fmt.Sprintf("%s %.0f", rec.Name, rec.Elevation)
	}

	col := color.NRGBA{0x33, 0x33, 0x33, 0xff}
	if rec.Category == feature.CategoryPeak {
		col = color.NRGBA{0x74, 0x41, 0x2a, 0xff}
	}

	*labels = append(*labels, Label{Text: text, At: at, Color: col, Halo: true})
}

// drawShading composites the hillshade as a translucent darkening
// layer; cells without data stay untouched (holes)
func (c *Compositor) drawShading(canvas *Canvas, grid *elevation.Grid) {
	shade, valid := elevation.Hillshade(grid, c.ShadeParams)

	img := canvas.Image()
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			i := y*grid.Width + x
			if !valid[i] {
				continue
			}
			// full light adds nothing; steep shadow darkens up to ~55%
			a := (1 - shade[i]) * 140
			if a < 1 {
				continue
			}
			blendPixel(img, x, y, color.NRGBA{0x20, 0x18, 0x10, uint8(a)})
		}
	}
}

func (c *Compositor) drawOverlay(canvas *Canvas, vp geo.Viewport, items []overlayItem, lb *labeler) {
	for _, item := range items {
		d := style.Directive{
			HasStroke: true,
			Stroke:    item.Stroke,
			Width:     item.Width,
			HasFill:   item.HasFill,
			Fill:      item.Fill,
			// overlay points render as dots
			PointRadius: item.Width + 1,
		}
		drawGeometry(canvas, vp, item.Geometry, d, item.Width*vp.Scale, nil)

		if item.Label != "" {
			if at, ok := anchor(vp, item.Geometry); ok {
				lb.draw(canvas, []Label{{Text: item.Label, At: at, Color: item.Stroke, Halo: true}})
			}
		}
	}
}

// drawGeometry dispatches a projected geometry to the canvas
func drawGeometry(canvas *Canvas, vp geo.Viewport, g orb.Geometry, d style.Directive, width float64, dash []float64) {
	switch g := g.(type) {
	case orb.Point:
		p := pixelPoint(vp, g)
		if d.PointRadius > 0 {
			r := d.PointRadius * vp.Scale
			if d.HasFill {
				canvas.FillCircle(p, r, d.Fill)
			}
			if d.HasStroke {
				canvas.StrokeCircle(p, r, width, d.Stroke)
			}
		}
	case orb.MultiPoint:
		for _, p := range g {
			drawGeometry(canvas, vp, p, d, width, dash)
		}
	case orb.LineString:
		if d.HasStroke {
			canvas.StrokeLine(pixelLine(vp, g), d.Stroke, width, dash)
		}
	case orb.MultiLineString:
		for _, l := range g {
			drawGeometry(canvas, vp, l, d, width, dash)
		}
	case orb.Polygon:
		rings := make([][]Point, 0, len(g))
		for _, ring := range g {
			rings = append(rings, pixelLine(vp, orb.LineString(ring)))
		}
		if d.HasFill {
			canvas.FillPolygon(rings, d.Fill)
		}
		if d.HasStroke {
			for _, ring := range rings {
				canvas.StrokeLine(ring, d.Stroke, width, dash)
			}
		}
	case orb.MultiPolygon:
		for _, p := range g {
			drawGeometry(canvas, vp, p, d, width, dash)
		}
	case orb.Collection:
		for _, sub := range g {
			drawGeometry(canvas, vp, sub, d, width, dash)
		}
	}
}

func pixelPoint(vp geo.Viewport, p orb.Point) Point {
	x, y := vp.Project(p[0], p[1])
	return Point{X: x, Y: y}
}

func pixelLine(vp geo.Viewport, l orb.LineString) []Point {
	out := make([]Point, len(l))
	for i, p := range l {
		out[i] = pixelPoint(vp, p)
	}
	return out
}

// anchor returns the pixel position labels attach to
func anchor(vp geo.Viewport, g orb.Geometry) (Point, bool) {
	switch g := g.(type) {
	case orb.Point:
		return pixelPoint(vp, g), true
	case orb.LineString:
		if len(g) == 0 {
			return Point{}, false
		}
		return pixelPoint(vp, g[len(g)/2]), true
	case orb.MultiLineString:
		if len(g) == 0 {
			return Point{}, false
		}
		return anchor(vp, g[0])
	case orb.Polygon, orb.MultiPolygon, orb.Collection:
		b := g.Bound()
		return pixelPoint(vp, b.Center()), true
	}
	return Point{}, false
}

func scaleDash(dash []float64, scale float64) []float64 {
	if len(dash) == 0 || scale == 1 {
		return dash
	}
	out := make([]float64, len(dash))
	for i, d := range dash {
		out[i] = d * scale
	}
	return out
}

// blendPixel alpha-blends one NRGBA pixel in place
func blendPixel(img *image.NRGBA, x, y int, c color.NRGBA) {
	i := img.PixOffset(x, y)
	a := uint32(c.A)
	inv := 255 - a
	img.Pix[i+0] = uint8((uint32(c.R)*a + uint32(img.Pix[i+0])*inv) / 255)
	img.Pix[i+1] = uint8((uint32(c.G)*a + uint32(img.Pix[i+1])*inv) / 255)
	img.Pix[i+2] = uint8((uint32(c.B)*a + uint32(img.Pix[i+2])*inv) / 255)
}
