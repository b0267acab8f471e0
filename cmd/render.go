package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/config"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/feature"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/logger"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/render"
)

var (
	renderBBox  string
	renderZoom  int
	renderScale float64
	renderOut   string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a bounding box to an image file",
	Long: `Render one map image outside the server, exactly as an export job
would produce it. Useful for style work and debugging:

  freemap-outdoor-map render -b 17.0,48.0,17.3,48.3 -z 13 -o out.png`,
	Run: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderBBox, "bbox", "b", "", "Bounding box: minlon,minlat,maxlon,maxlat")
	renderCmd.Flags().IntVarP(&renderZoom, "zoom", "z", 13, "Zoom level determining the output resolution")
	renderCmd.Flags().Float64Var(&renderScale, "scale", 1, "Scale factor for the output raster")
	renderCmd.Flags().StringVarP(&renderOut, "output", "o", "map.png", "Output file, .png or .jpeg")
	renderCmd.MarkFlagRequired("bbox")
}

func runRender(cmd *cobra.Command, args []string) {
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	bbox, err := config.ParseBBox(renderBBox)
	if err != nil {
		exitWithError("invalid bbox", err)
	}

	format := "png"
	if strings.HasSuffix(renderOut, ".jpeg") || strings.HasSuffix(renderOut, ".jpg") {
		format = "jpeg"
	}

	ctx := context.Background()

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

	vp, err := resolver.FromLonLat(bbox.MinLon, bbox.MinLat, bbox.MaxLon, bbox.MaxLat, renderZoom, renderScale)
	if err != nil {
		exitWithError("invalid render extent", err)
	}

	log.Info("Rendering",
		zap.String("bbox", renderBBox),
		zap.Int("zoom", renderZoom),
		zap.Int("width", vp.Width),
		zap.Int("height", vp.Height),
	)

	start := time.Now()
	img, err := comp.Render(ctx, render.Request{
		Viewport: vp,
		Toggles:  feature.DefaultToggles(),
	})
	if err != nil {
		exitWithError("render failed", err)
	}

	data, _, err := render.Encode(img, format)
	if err != nil {
		exitWithError("encoding failed", err)
	}

	if err := os.WriteFile(renderOut, data, 0o644); err != nil {
		exitWithError("failed to write output", err)
	}

	log.Info("Render complete",
		zap.String("output", renderOut),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
}
