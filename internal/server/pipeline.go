package server

import (
	"context"
	"fmt"
	"time"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/export"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/geo"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/metrics"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/render"
)

// ExportValidator builds the admission check for export submissions.
// It must reject everything the render pipeline would reject, so
// invalid requests never occupy a job slot.
func ExportValidator(resolver *geo.Resolver) export.ValidateFunc {
	return func(req export.Request) error {
		if !render.ValidFormat(req.Format) {
			return fmt.Errorf("%w: %q", render.ErrUnsupportedFormat, req.Format)
		}
		if _, err := resolver.FromLonLat(
			req.BBox[0], req.BBox[1], req.BBox[2], req.BBox[3],
			req.Zoom, scaleOrDefault(req.Scale),
		); err != nil {
			return err
		}
		if _, err := render.ParseOverlay(req.Features.FeatureCollection); err != nil {
			return err
		}
		return nil
	}
}

// ExportRenderer builds the render function export workers execute
func ExportRenderer(resolver *geo.Resolver, comp *render.Compositor, m *metrics.Metrics) export.RenderFunc {
	return func(ctx context.Context, req export.Request) ([]byte, string, error) {
		if m != nil {
			m.ExportInFlight.Inc()
			defer m.ExportInFlight.Dec()
		}
		start := time.Now()

		data, contentType, err := renderExport(ctx, resolver, comp, req)

		if m != nil {
			m.ExportSeconds.Observe(time.Since(start).Seconds())
			if err != nil {
				m.ExportJobs.WithLabelValues("failed").Inc()
			} else {
				m.ExportJobs.WithLabelValues("ready").Inc()
			}
		}
		return data, contentType, err
	}
}

func renderExport(ctx context.Context, resolver *geo.Resolver, comp *render.Compositor, req export.Request) ([]byte, string, error) {
	vp, err := resolver.FromLonLat(
		req.BBox[0], req.BBox[1], req.BBox[2], req.BBox[3],
		req.Zoom, scaleOrDefault(req.Scale),
	)
	if err != nil {
		return nil, "", err
	}

	img, err := comp.Render(ctx, render.Request{
		Viewport: vp,
		Toggles:  req.Features.Toggles,
		Overlay:  req.Features.FeatureCollection,
	})
	if err != nil {
		return nil, "", err
	}

	return render.Encode(img, req.Format)
}

func scaleOrDefault(s float64) float64 {
	if s <= 0 {
		return 1
	}
	return s
}
