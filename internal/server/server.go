// Package server exposes the rendering pipeline over HTTP: the tile
// route, the export job API, a WMTS capabilities document and the
// health and metrics endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/cache"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/config"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/export"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/feature"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/geo"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/logger"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/metrics"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/render"
)

// grayFill is the color of tiles outside the coverage area
var grayFill = color.NRGBA{209, 204, 199, 255}

var errMalformedTile = errors.New("malformed tile path")

// Server binds the compositor and the export manager to HTTP routes
type Server struct {
	cfg      *config.Config
	resolver *geo.Resolver
	comp     *render.Compositor
	exports  *export.Manager
	coverage *Coverage
	tiles    *cache.Cache
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// New creates a server. coverage and m may be nil.
func New(cfg *config.Config, resolver *geo.Resolver, comp *render.Compositor,
	exports *export.Manager, coverage *Coverage, m *metrics.Metrics) *Server {

	return &Server{
		cfg:      cfg,
		resolver: resolver,
		comp:     comp,
		exports:  exports,
		coverage: coverage,
		tiles:    cache.New(cfg.TileCacheSize),
		metrics:  m,
		log:      logger.Named("server"),
	}
}

// Routes returns the server's handler
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{z}/{x}/{y}", s.handleTile)

	mux.HandleFunc("POST /export", s.handleExportSubmit)
	mux.HandleFunc("HEAD /export", s.handleExportPoll)
	mux.HandleFunc("GET /export", s.handleExportFetch)
	mux.HandleFunc("DELETE /export", s.handleExportDelete)

	mux.HandleFunc("GET /service", s.handleCapabilities)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleTile serves GET /{z}/{x}/{y} where the y segment may carry an
// "@{scale}x" suffix and a ".png"/".jpeg"/".jpg" extension
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	tile, scale, format, err := parseTilePath(r)
	if err != nil {
		s.tileOutcome("client_error")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !s.scaleAllowed(scale) {
		s.tileOutcome("client_error")
		http.NotFound(w, r)
		return
	}

	vp, err := s.resolver.FromTile(tile, scale)
	if err != nil {
		s.tileOutcome("client_error")
		http.NotFound(w, r)
		return
	}

	toggles := feature.DefaultToggles()
	key := fmt.Sprintf("%s@%gx.%s|%s", tile, scale, format, toggles.Key())

	if data, ok := s.tiles.Get(key); ok {
		if s.metrics != nil {
			s.metrics.TileCacheHits.Inc()
		}
		s.tileOutcome("ok")
		s.writeImage(w, data, format)
		return
	}
	if s.metrics != nil {
		s.metrics.TileCacheMiss.Inc()
	}

	if !s.coverage.Covers(vp.Bounds) {
		data, err := s.fillerTile(vp, format)
		if err != nil {
			s.tileOutcome("server_error")
			http.Error(w, "tile encoding failed", http.StatusInternalServerError)
			return
		}
		s.tiles.Put(key, data)
		s.tileOutcome("ok")
		s.writeImage(w, data, format)
		return
	}

	start := time.Now()
	img, err := s.comp.Render(r.Context(), render.Request{Viewport: vp, Toggles: toggles})
	if err != nil {
		s.writeRenderError(w, r, tile, err)
		return
	}
	if s.metrics != nil {
		s.metrics.TileSeconds.Observe(time.Since(start).Seconds())
	}

	data, _, err := render.Encode(img, format)
	if err != nil {
		s.tileOutcome("server_error")
		http.Error(w, "tile encoding failed", http.StatusInternalServerError)
		return
	}

	s.tiles.Put(key, data)
	s.tileOutcome("ok")
	s.writeImage(w, data, format)
}

func (s *Server) writeRenderError(w http.ResponseWriter, r *http.Request, tile geo.Tile, err error) {
	if errors.Is(err, context.Canceled) {
		// client went away mid-render
		return
	}

	var dsErr *feature.DataSourceError
	if errors.As(err, &dsErr) {
		s.tileOutcome("server_error")
		s.log.Error("tile data source failure",
			zap.String("tile", tile.String()), zap.Error(err))
		http.Error(w, "data source unavailable", http.StatusBadGateway)
		return
	}

	s.tileOutcome("server_error")
	s.log.Error("tile render failure",
		zap.String("tile", tile.String()), zap.Error(err))
	http.Error(w, "render failed", http.StatusInternalServerError)
}

// parseTilePath extracts the tile address, scale and image format.
// Syntax errors are the caller's fault regardless of values.
func parseTilePath(r *http.Request) (geo.Tile, float64, string, error) {
	z, err := strconv.Atoi(r.PathValue("z"))
	if err != nil {
		return geo.Tile{}, 0, "", fmt.Errorf("%w: zoom %q", errMalformedTile, r.PathValue("z"))
	}
	x, err := strconv.Atoi(r.PathValue("x"))
	if err != nil {
		return geo.Tile{}, 0, "", fmt.Errorf("%w: column %q", errMalformedTile, r.PathValue("x"))
	}

	ySeg := r.PathValue("y")

	format := "png"
	for _, ext := range []string{".png", ".jpeg", ".jpg"} {
		if strings.HasSuffix(ySeg, ext) {
			format = ext[1:]
			ySeg = strings.TrimSuffix(ySeg, ext)
			break
		}
	}

	scale := 1.0
	if at := strings.Index(ySeg, "@"); at >= 0 {
		suffix := ySeg[at+1:]
		if !strings.HasSuffix(suffix, "x") {
			return geo.Tile{}, 0, "", fmt.Errorf("%w: scale suffix %q", errMalformedTile, suffix)
		}
		scale, err = strconv.ParseFloat(strings.TrimSuffix(suffix, "x"), 64)
		if err != nil || scale <= 0 {
			return geo.Tile{}, 0, "", fmt.Errorf("%w: scale suffix %q", errMalformedTile, suffix)
		}
		ySeg = ySeg[:at]
	}

	y, err := strconv.Atoi(ySeg)
	if err != nil {
		return geo.Tile{}, 0, "", fmt.Errorf("%w: row %q", errMalformedTile, ySeg)
	}

	return geo.Tile{Z: z, X: x, Y: y}, scale, format, nil
}

func (s *Server) scaleAllowed(scale float64) bool {
	for _, a := range s.cfg.AllowedScales {
		if scale == a {
			return true
		}
	}
	return false
}

// fillerTile encodes a uniform gray tile for areas without coverage
func (s *Server) fillerTile(vp geo.Viewport, format string) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, vp.Width, vp.Height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = grayFill.R
		img.Pix[i+1] = grayFill.G
		img.Pix[i+2] = grayFill.B
		img.Pix[i+3] = grayFill.A
	}
	data, _, err := render.Encode(img, format)
	return data, err
}

func (s *Server) writeImage(w http.ResponseWriter, data []byte, format string) {
	w.Header().Set("Content-Type", formatContentType(format))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func formatContentType(format string) string {
	if format == "jpeg" || format == "jpg" {
		return "image/jpeg"
	}
	return "image/png"
}

func (s *Server) tileOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.TilesServed.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
