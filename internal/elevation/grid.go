package elevation

import (
	"context"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/geo"
)

// Grid is an elevation raster resampled to a render target. Valid is
// false where the viewport has no coverage; such holes propagate into
// shading and contours as transparent/absent output.
type Grid struct {
	Width, Height int
	Values        []float64
	Valid         []bool
	MetersPerCell float64
}

// At returns the sample at a grid position
func (g *Grid) At(x, y int) (float64, bool) {
	i := y*g.Width + x
	return g.Values[i], g.Valid[i]
}

// set stores a sample
func (g *Grid) set(x, y int, v float64, ok bool) {
	i := y*g.Width + x
	g.Values[i] = v
	g.Valid[i] = ok
}

// Provider yields viewport-scoped elevation grids
type Provider struct {
	datasets *Datasets
}

// NewProvider wraps a dataset store. A nil store yields empty grids,
// which render as no relief rather than failing.
func NewProvider(datasets *Datasets) *Provider {
	return &Provider{datasets: datasets}
}

// Grid samples the viewport at one cell per output pixel. Cancellation
// is checked per row so long export grids abort promptly.
func (p *Provider) Grid(ctx context.Context, vp geo.Viewport) (*Grid, error) {
	g := &Grid{
		Width:         vp.Width,
		Height:        vp.Height,
		Values:        make([]float64, vp.Width*vp.Height),
		Valid:         make([]bool, vp.Width*vp.Height),
		MetersPerCell: vp.MetersPerPixel(),
	}

	if p.datasets == nil {
		return g, nil
	}

	for y := 0; y < vp.Height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		my := vp.Bounds.MaxY - (float64(y)+0.5)/float64(vp.Height)*vp.Bounds.Height()
		for x := 0; x < vp.Width; x++ {
			mx := vp.Bounds.MinX + (float64(x)+0.5)/float64(vp.Width)*vp.Bounds.Width()
			lon, lat := geo.MercatorToLonLat(mx, my)
			v, ok := p.datasets.Sample(lat, lon)
			g.set(x, y, v, ok)
		}
	}

	return g, nil
}
