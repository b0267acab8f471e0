package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/elevation"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/export"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/feature"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/geo"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/logger"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/metrics"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/render"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/server"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/style"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tile and export server",
	Long: `Run the HTTP server:

  GET    /{z}/{x}/{y}   map tiles, with optional @2x/@3x and .png/.jpeg
  POST   /export        submit an export job, returns a token
  HEAD   /export        long-poll job status by token
  GET    /export        download a finished export by token
  DELETE /export        drop a job and its result
  GET    /service       WMTS capabilities
  GET    /health        liveness
  GET    /metrics       prometheus metrics`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&cfg.ListenAddr, "listen", "l", cfg.ListenAddr, "HTTP listen address")
	serveCmd.Flags().IntVar(&cfg.TileWorkers, "tile-workers", cfg.TileWorkers, "Concurrent tile renders")
	serveCmd.Flags().IntVar(&cfg.ExportWorkers, "export-workers", cfg.ExportWorkers, "Concurrent export renders")
	serveCmd.Flags().IntVar(&cfg.TileCacheSize, "tile-cache", cfg.TileCacheSize, "Tile cache entries (0 disables)")
}

func runServe(cmd *cobra.Command, args []string) {
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := feature.NewStore(ctx, cfg)
	if err != nil {
		exitWithError("failed to connect to database", err)
	}
	defer store.Close()

	resolver, comp, closeData, err := buildPipeline(store)
	if err != nil {
		exitWithError("failed to build render pipeline", err)
	}
	defer closeData()

	var coverage *server.Coverage
	if cfg.CoverageFile != "" {
		coverage, err = server.LoadCoverage(cfg.CoverageFile)
		if err != nil {
			exitWithError("failed to load coverage polygon", err)
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	exports := export.NewManager(export.Options{
		Workers:       cfg.ExportWorkers,
		MaxJobs:       cfg.MaxExportJobs,
		TTL:           cfg.ExportTTL,
		SweepInterval: cfg.SweepInterval,
	}, server.ExportRenderer(resolver, comp, m), server.ExportValidator(resolver))
	defer exports.Close()

	collector := metrics.NewSystemCollector(cfg.MetricsInterval, logger.Named("system"))
	go collector.Start(ctx)

	log.Info("Starting outdoor map server",
		zap.String("listen", cfg.ListenAddr),
		zap.String("database", cfg.DBName),
		zap.String("elevation_dir", cfg.ElevationDir),
		zap.Int("tile_workers", cfg.TileWorkers),
		zap.Int("export_workers", cfg.ExportWorkers),
	)

	srv := server.New(cfg, resolver, comp, exports, coverage, m)
	if err := srv.Run(ctx); err != nil {
		exitWithError("server failed", err)
	}

	log.Info("Server stopped")
}

// buildPipeline assembles the resolver and compositor shared by the
// serve and render commands
func buildPipeline(features render.FeatureSource) (*geo.Resolver, *render.Compositor, func(), error) {
	styles := style.Default()
	if cfg.StyleFile != "" {
		loaded, err := style.Load(cfg.StyleFile)
		if err != nil {
			return nil, nil, nil, err
		}
		styles = loaded
	}

	closeData := func() {}
	var datasets *elevation.Datasets
	if cfg.ElevationDir != "" {
		datasets = elevation.OpenDatasets(cfg.ElevationDir)
		closeData = datasets.Close
	}

	resolver := &geo.Resolver{
		TileSize:          cfg.TileSize,
		MaxZoom:           cfg.MaxZoom,
		MaxPixelDimension: cfg.MaxPixelDimension,
		MaxExportPixels:   cfg.MaxExportPixels,
	}

	comp := &render.Compositor{
		Features:        features,
		Elevation:       elevation.NewProvider(datasets),
		Styles:          styles,
		ContourInterval: cfg.ContourInterval,
		ShadeParams:     elevation.DefaultShadeParams(),
		LayerOptional:   cfg.LayerOptional,
		Log:             logger.Named("render"),
	}

	return resolver, comp, closeData, nil
}
