package cmd

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/config"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/logger"
)

var (
	cfg             = config.DefaultConfig()
	configFile      string
	verbose         bool
	logFile         string
	metricsInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "freemap-outdoor-map",
	Short: "Outdoor map rendering and export server",
	Long: `freemap-outdoor-map renders outdoor map raster tiles from PostGIS
geometry and SRTM elevation data, and fulfills asynchronous map
exports.

Features:
  - Web Mercator tile pyramid with @2x/@3x scale variants
  - Shaded relief and contour lines from memory-mapped HGT tiles
  - Hiking, bicycle, ski and horse route networks with label placement
  - Async export jobs with long-poll status and GeoJSON overlays`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configFile != "" {
			if err := cfg.MergeFile(configFile); err != nil {
				logger.Init(verbose)
				exitWithError("failed to load config", err)
			}
		}

		cfg.Verbose = verbose
		cfg.LogFile = logFile
		cfg.MetricsInterval = metricsInterval

		// Initialize logger with optional file output
		if logFile != "" {
			logger.InitWithFile(verbose, logFile)
		} else {
			logger.Init(verbose)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file")

	// Logging and metrics flags
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", 30*time.Second, "Interval for system metrics logging (e.g., 10s, 1m)")

	// Database flags (persistent so they're available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host")
	rootCmd.PersistentFlags().IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBName, "db-name", "d", cfg.DBName, "PostgreSQL database name")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBUser, "db-user", "U", cfg.DBUser, "PostgreSQL user")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBPassword, "db-password", "W", cfg.DBPassword, "PostgreSQL password")
	rootCmd.PersistentFlags().StringVar(&cfg.DBSchema, "db-schema", cfg.DBSchema, "PostgreSQL schema")

	// Data flags
	rootCmd.PersistentFlags().StringVar(&cfg.ElevationDir, "elevation-dir", cfg.ElevationDir, "Directory of SRTM .hgt tiles (empty disables relief)")
	rootCmd.PersistentFlags().StringVarP(&cfg.StyleFile, "style", "S", cfg.StyleFile, "Style rules YAML file (empty uses built-in rules)")
	rootCmd.PersistentFlags().StringVar(&cfg.CoverageFile, "coverage", cfg.CoverageFile, "GeoJSON polygon limiting the rendered area")
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	os.Exit(1)
}
