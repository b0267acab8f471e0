package render

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/elevation"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/feature"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/geo"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/style"
)

// fakeSource serves canned records and counts queries
type fakeSource struct {
	queries   int
	routesErr error
}

func (f *fakeSource) Landcover(ctx context.Context, vp geo.Viewport) ([]feature.Record, error) {
	f.queries++
	b := vp.Bounds
	return []feature.Record{{
		Category: feature.CategoryLandcover,
		Kind:     "forest",
		Geometry: orb.Polygon{{
			{b.MinX, b.MinY}, {b.MaxX, b.MinY}, {b.MaxX, b.CenterY()}, {b.MinX, b.CenterY()}, {b.MinX, b.MinY},
		}},
	}}, nil
}

func (f *fakeSource) WaterAreas(ctx context.Context, vp geo.Viewport) ([]feature.Record, error) {
	f.queries++
	return nil, nil
}

func (f *fakeSource) WaterLines(ctx context.Context, vp geo.Viewport) ([]feature.Record, error) {
	f.queries++
	b := vp.Bounds
	return []feature.Record{{
		Category: feature.CategoryWaterLine,
		Kind:     "river",
		Name:     "Váh",
		Geometry: orb.LineString{{b.MinX, b.CenterY()}, {b.MaxX, b.CenterY()}},
	}}, nil
}

func (f *fakeSource) Boundaries(ctx context.Context, vp geo.Viewport) ([]feature.Record, error) {
	f.queries++
	b := vp.Bounds
	return []feature.Record{{
		Category: feature.CategoryBoundary,
		Kind:     "2",
		Geometry: orb.LineString{{b.CenterX(), b.MinY}, {b.CenterX(), b.MaxY}},
	}}, nil
}

func (f *fakeSource) Routes(ctx context.Context, vp geo.Viewport, networks []string) ([]feature.Record, error) {
	f.queries++
	if f.routesErr != nil {
		return nil, f.routesErr
	}
	b := vp.Bounds
	return []feature.Record{{
		Category: feature.CategoryRoute,
		Network:  "hiking",
		Symbol:   "red:red_bar",
		Name:     "Cesta hrdinov SNP",
		Geometry: orb.LineString{{b.MinX, b.MinY}, {b.MaxX, b.MaxY}},
	}}, nil
}

func (f *fakeSource) POIs(ctx context.Context, vp geo.Viewport) ([]feature.Record, error) {
	f.queries++
	b := vp.Bounds
	return []feature.Record{{
		Category: feature.CategoryPOI,
		Kind:     "spring",
		Name:     "Studnička",
		Geometry: orb.Point{b.CenterX(), b.CenterY()},
	}}, nil
}

func (f *fakeSource) Peaks(ctx context.Context, vp geo.Viewport) ([]feature.Record, error) {
	f.queries++
	b := vp.Bounds
	return []feature.Record{
		{Category: feature.CategoryPeak, Name: "Kriváň", Elevation: 2494, Isolation: 9000,
			Geometry: orb.Point{b.CenterX() + b.Width()/4, b.CenterY() + b.Height()/4}},
		{Category: feature.CategoryPeak, Name: "Ostrá", Elevation: 1247, Isolation: 800,
			Geometry: orb.Point{b.CenterX() - b.Width()/4, b.CenterY() - b.Height()/4}},
	}, nil
}

// fakeElevation is a deterministic synthetic terrain
type fakeElevation struct{}

func (fakeElevation) Grid(ctx context.Context, vp geo.Viewport) (*elevation.Grid, error) {
	g := &elevation.Grid{
		Width:         vp.Width,
		Height:        vp.Height,
		Values:        make([]float64, vp.Width*vp.Height),
		Valid:         make([]bool, vp.Width*vp.Height),
		MetersPerCell: vp.MetersPerPixel(),
	}
	for y := 0; y < vp.Height; y++ {
		for x := 0; x < vp.Width; x++ {
			i := y*vp.Width + x
			g.Values[i] = float64(x+y) * 3
			g.Valid[i] = true
		}
	}
	return g, nil
}

func testViewport(t *testing.T, px int) geo.Viewport {
	t.Helper()
	r := &geo.Resolver{TileSize: px, MaxZoom: 19, MaxPixelDimension: 8192, MaxExportPixels: 1 << 26}
	vp, err := r.FromTile(geo.Tile{Z: 13, X: 4550, Y: 2840}, 1)
	if err != nil {
		t.Fatalf("viewport: %v", err)
	}
	return vp
}

func testCompositor(src FeatureSource) *Compositor {
	return &Compositor{
		Features:        src,
		Elevation:       fakeElevation{},
		Styles:          style.Default(),
		ContourInterval: 50,
		ShadeParams:     elevation.DefaultShadeParams(),
	}
}

func TestRenderDimensions(t *testing.T) {
	c := testCompositor(&fakeSource{})
	vp := testViewport(t, 128)

	img, err := c.Render(context.Background(), Request{Viewport: vp, Toggles: feature.DefaultToggles()})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if img.Bounds().Dx() != vp.Width || img.Bounds().Dy() != vp.Height {
		t.Errorf("output %dx%d, want %dx%d", img.Bounds().Dx(), img.Bounds().Dy(), vp.Width, vp.Height)
	}
}

func TestRenderDeterministic(t *testing.T) {
	vp := testViewport(t, 128)
	req := Request{Viewport: vp, Toggles: feature.DefaultToggles()}

	a, err := testCompositor(&fakeSource{}).Render(context.Background(), req)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	b, err := testCompositor(&fakeSource{}).Render(context.Background(), req)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("identical requests rendered different pixels")
	}
}

func TestRenderInvalidOverlayFailsBeforeQuerying(t *testing.T) {
	src := &fakeSource{}
	c := testCompositor(src)
	vp := testViewport(t, 64)

	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString{{17.0, 48.0}})) // single point line

	_, err := c.Render(context.Background(), Request{Viewport: vp, Toggles: feature.DefaultToggles(), Overlay: fc})
	if !errors.Is(err, ErrInvalidOverlay) {
		t.Fatalf("want ErrInvalidOverlay, got %v", err)
	}
	if src.queries != 0 {
		t.Errorf("%d layer queries ran despite invalid overlay", src.queries)
	}
}

func TestRenderOverlayDraws(t *testing.T) {
	vp := testViewport(t, 64)
	req := Request{Viewport: vp}

	plain, err := testCompositor(&fakeSource{}).Render(context.Background(), req)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	lon, lat := geo.MercatorToLonLat(vp.Bounds.CenterX(), vp.Bounds.CenterY())
	f := geojson.NewFeature(orb.Point{lon, lat})
	f.Properties["color"] = "#ff0000"
	fc := geojson.NewFeatureCollection()
	fc.Append(f)

	req.Overlay = fc
	withOverlay, err := testCompositor(&fakeSource{}).Render(context.Background(), req)
	if err != nil {
		t.Fatalf("render with overlay: %v", err)
	}
	if bytes.Equal(plain.Pix, withOverlay.Pix) {
		t.Error("overlay did not change the output")
	}
}

func TestRenderOptionalLayerDegrades(t *testing.T) {
	src := &fakeSource{routesErr: &feature.DataSourceError{Layer: "routes", Err: errors.New("store down")}}
	c := testCompositor(src)
	c.LayerOptional = func(name string) bool { return name == "routes" }
	vp := testViewport(t, 64)

	if _, err := c.Render(context.Background(), Request{Viewport: vp, Toggles: feature.DefaultToggles()}); err != nil {
		t.Fatalf("optional layer failure aborted the render: %v", err)
	}
}

func TestRenderMandatoryLayerAborts(t *testing.T) {
	src := &fakeSource{routesErr: &feature.DataSourceError{Layer: "routes", Err: errors.New("store down")}}
	c := testCompositor(src)
	vp := testViewport(t, 64)

	_, err := c.Render(context.Background(), Request{Viewport: vp, Toggles: feature.DefaultToggles()})
	var dsErr *feature.DataSourceError
	if !errors.As(err, &dsErr) {
		t.Fatalf("want wrapped DataSourceError, got %v", err)
	}
}

func TestRenderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testCompositor(&fakeSource{}).Render(ctx, Request{Viewport: testViewport(t, 64)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestEncodeFormats(t *testing.T) {
	vp := testViewport(t, 32)
	img, err := testCompositor(&fakeSource{}).Render(context.Background(), Request{Viewport: vp})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for format, contentType := range map[string]string{"png": "image/png", "jpeg": "image/jpeg", "jpg": "image/jpeg"} {
		data, ct, err := Encode(img, format)
		if err != nil {
			t.Fatalf("encode %s: %v", format, err)
		}
		if len(data) == 0 {
			t.Errorf("encode %s produced no bytes", format)
		}
		if ct != contentType {
			t.Errorf("encode %s content type = %q, want %q", format, ct, contentType)
		}
	}

	if _, _, err := Encode(img, "tiff"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("want ErrUnsupportedFormat, got %v", err)
	}
}
