package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BBox represents a geographic bounding box in WGS84 lon/lat
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// ParseBBox parses a bbox string in format "minlon,minlat,maxlon,maxlat"
func ParseBBox(s string) (*BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values: minlon,minlat,maxlon,maxlat")
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox coordinate %q: %w", p, err)
		}
		coords[i] = v
	}

	bbox := &BBox{
		MinLon: coords[0],
		MinLat: coords[1],
		MaxLon: coords[2],
		MaxLat: coords[3],
	}

	if bbox.MinLon >= bbox.MaxLon {
		return nil, fmt.Errorf("minlon (%f) must be < maxlon (%f)", bbox.MinLon, bbox.MaxLon)
	}
	if bbox.MinLat >= bbox.MaxLat {
		return nil, fmt.Errorf("minlat (%f) must be < maxlat (%f)", bbox.MinLat, bbox.MaxLat)
	}

	return bbox, nil
}

// TierThreshold maps a zoom range to a generalization suffix of the
// geometry tables. Zoom levels at or below MaxZoom use Suffix.
type TierThreshold struct {
	MaxZoom int    `yaml:"max_zoom"`
	Suffix  string `yaml:"suffix"`
}

// Config holds the global configuration for the rendering server
type Config struct {
	// HTTP settings
	ListenAddr string `yaml:"listen_addr"`

	// Database settings
	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBName     string `yaml:"db_name"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBSchema   string `yaml:"db_schema"`

	// Tile settings
	TileSize      int       `yaml:"tile_size"`
	MaxZoom       int       `yaml:"max_zoom"`
	AllowedScales []float64 `yaml:"allowed_scales"`
	TileWorkers   int       `yaml:"tile_workers"`
	TileCacheSize int       `yaml:"tile_cache_size"` // entries, 0 disables the cache

	// Render bounds
	MaxPixelDimension int     `yaml:"max_pixel_dimension"` // per-axis cap on output size
	MaxExportPixels   float64 `yaml:"max_export_pixels"`   // width*height cap for exports

	// Export settings
	ExportWorkers int           `yaml:"export_workers"`
	MaxExportJobs int           `yaml:"max_export_jobs"` // admission bound (queued + running + done)
	ExportTTL     time.Duration `yaml:"export_ttl"`
	PollWait      time.Duration `yaml:"poll_wait"`
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// Data settings
	ElevationDir    string          `yaml:"elevation_dir"` // directory of .hgt tiles, empty disables relief
	ContourInterval float64         `yaml:"contour_interval"`
	StyleFile       string          `yaml:"style_file"`    // style rules YAML, empty uses built-in rules
	CoverageFile    string          `yaml:"coverage_file"` // GeoJSON polygon limiting rendered area
	TierThresholds  []TierThreshold `yaml:"tier_thresholds"`
	OptionalLayers  []string        `yaml:"optional_layers"`

	// Logging and metrics
	Verbose         bool          `yaml:"verbose"`
	LogFile         string        `yaml:"log_file"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: ":3050",

		DBHost:     "localhost",
		DBPort:     5432,
		DBName:     "freemap",
		DBUser:     "postgres",
		DBPassword: "",
		DBSchema:   "public",

		TileSize:      256,
		MaxZoom:       19,
		AllowedScales: []float64{1, 2, 3},
		TileWorkers:   runtime.NumCPU(),
		TileCacheSize: 2048,

		MaxPixelDimension: 8192,
		MaxExportPixels:   8192 * 8192,

		ExportWorkers: 2,
		MaxExportJobs: 16,
		ExportTTL:     10 * time.Minute,
		PollWait:      25 * time.Second,
		SweepInterval: 30 * time.Second,

		ContourInterval: 10,
		TierThresholds: []TierThreshold{
			{MaxZoom: 9, Suffix: "_gen0"},
			{MaxZoom: 12, Suffix: "_gen1"},
		},
		OptionalLayers: []string{"routes"},

		MetricsInterval: 30 * time.Second,
	}
}

// LoadFile reads configuration from a YAML file over the defaults
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.MergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile applies a YAML file over the receiver. Only keys present
// in the file change, so defaults and flag values survive.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser,
	)
	if c.DBPassword != "" {
		connStr += fmt.Sprintf(" password=%s", c.DBPassword)
	}
	return connStr
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.TileSize < 64 || c.TileSize > 1024 {
		return fmt.Errorf("tile size must be between 64 and 1024")
	}
	if c.MaxZoom < 0 || c.MaxZoom > 24 {
		return fmt.Errorf("max zoom must be between 0 and 24")
	}
	if c.TileWorkers < 1 {
		return fmt.Errorf("tile workers must be at least 1")
	}
	if c.ExportWorkers < 1 {
		return fmt.Errorf("export workers must be at least 1")
	}
	if c.MaxExportJobs < c.ExportWorkers {
		return fmt.Errorf("max export jobs (%d) must be >= export workers (%d)",
			c.MaxExportJobs, c.ExportWorkers)
	}
	if c.MaxPixelDimension < c.TileSize {
		return fmt.Errorf("max pixel dimension must be at least the tile size")
	}
	if c.ContourInterval <= 0 {
		return fmt.Errorf("contour interval must be positive")
	}
	for i, t := range c.TierThresholds {
		if i > 0 && t.MaxZoom <= c.TierThresholds[i-1].MaxZoom {
			return fmt.Errorf("tier thresholds must be in increasing zoom order")
		}
	}
	return nil
}

// LayerOptional reports whether a layer may degrade silently on a
// data source failure
func (c *Config) LayerOptional(name string) bool {
	for _, l := range c.OptionalLayers {
		if l == name {
			return true
		}
	}
	return false
}
