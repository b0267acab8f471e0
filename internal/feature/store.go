package feature

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb/encoding/wkb"
	"go.uber.org/zap"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/config"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/geo"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/logger"
)

// DataSourceError wraps a failed layer query against the spatial store
type DataSourceError struct {
	Layer string
	Err   error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source error in layer %q: %v", e.Layer, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// Store issues viewport-scoped queries against the PostGIS feature
// tables maintained by the import pipeline
type Store struct {
	pool   *pgxpool.Pool
	schema string
	tiers  Tiers
	log    *zap.Logger
}

// NewStore connects a feature store to PostGIS
func NewStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.TileWorkers + cfg.ExportWorkers)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &Store{
		pool:   pool,
		schema: cfg.DBSchema,
		tiers:  NewTiers(cfg.TierThresholds),
		log:    logger.Named("feature"),
	}, nil
}

// Close releases the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// table returns the schema-qualified table name for a base table at
// the generalization tier of the given zoom
func (s *Store) table(base string, zoom int) string {
	return fmt.Sprintf("%s.%s%s", s.schema, base, s.tiers.Suffix(zoom))
}

const envelope = "ST_MakeEnvelope($1, $2, $3, $4, 3857)"

// Landcover returns land/water base polygons ordered by their z_order
// column so forests draw under clearings and so on
func (s *Store) Landcover(ctx context.Context, vp geo.Viewport) ([]Record, error) {
	sql := fmt.Sprintf(`
		SELECT type, name, ST_AsBinary(geometry)
		FROM %s
		WHERE geometry && %s
		ORDER BY z_order, osm_id`,
		s.table("osm_landcovers", vp.Zoom), envelope)

	return s.query(ctx, "landcover", sql, vp, func(rec *Record, vals []any) error {
		rec.Category = CategoryLandcover
		rec.Kind = asString(vals[0])
		rec.Name = asString(vals[1])
		return decodeGeometry(rec, vals[2])
	}, 3)
}

// WaterAreas returns lakes and wide rivers
func (s *Store) WaterAreas(ctx context.Context, vp geo.Viewport) ([]Record, error) {
	sql := fmt.Sprintf(`
		SELECT type, name, ST_AsBinary(geometry)
		FROM %s
		WHERE geometry && %s`,
		s.table("osm_waterareas", vp.Zoom), envelope)

	return s.query(ctx, "water", sql, vp, func(rec *Record, vals []any) error {
		rec.Category = CategoryWaterArea
		rec.Kind = asString(vals[0])
		rec.Name = asString(vals[1])
		return decodeGeometry(rec, vals[2])
	}, 3)
}

// WaterLines returns streams and narrow rivers
func (s *Store) WaterLines(ctx context.Context, vp geo.Viewport) ([]Record, error) {
	sql := fmt.Sprintf(`
		SELECT type, name, ST_AsBinary(geometry)
		FROM %s
		WHERE geometry && %s`,
		s.table("osm_waterways", vp.Zoom), envelope)

	return s.query(ctx, "water", sql, vp, func(rec *Record, vals []any) error {
		rec.Category = CategoryWaterLine
		rec.Kind = asString(vals[0])
		rec.Name = asString(vals[1])
		return decodeGeometry(rec, vals[2])
	}, 3)
}

// Boundaries returns administrative borders
func (s *Store) Boundaries(ctx context.Context, vp geo.Viewport) ([]Record, error) {
	sql := fmt.Sprintf(`
		SELECT admin_level::text, ST_AsBinary(geometry)
		FROM %s
		WHERE geometry && %s AND admin_level <= 6`,
		s.table("osm_admin_areas", vp.Zoom), envelope)

	return s.query(ctx, "boundaries", sql, vp, func(rec *Record, vals []any) error {
		rec.Category = CategoryBoundary
		rec.Kind = asString(vals[0])
		return decodeGeometry(rec, vals[1])
	}, 2)
}

// Routes returns marked trails for the requested networks. Geometry is
// buffered one pixel past the viewport so offset strokes do not clip.
func (s *Store) Routes(ctx context.Context, vp geo.Viewport, networks []string) ([]Record, error) {
	if len(networks) == 0 {
		return nil, nil
	}

	sql := fmt.Sprintf(`
		SELECT name, network, colour, symbol, ST_AsBinary(geometry)
		FROM %s
		WHERE geometry && %s AND network = ANY($5)
		ORDER BY osm_id`,
		s.table("osm_routes", vp.Zoom), envelope)

	b := vp.Bounds.Buffer(vp.MetersPerPixel() * 8)
	rows, err := s.pool.Query(ctx, sql, b.MinX, b.MinY, b.MaxX, b.MaxY, networks)
	if err != nil {
		return nil, &DataSourceError{Layer: "routes", Err: err}
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var name, network, colour, symbol *string
		var geom []byte
		if err := rows.Scan(&name, &network, &colour, &symbol, &geom); err != nil {
			return nil, &DataSourceError{Layer: "routes", Err: err}
		}
		rec := Record{
			Category: CategoryRoute,
			Name:     deref(name),
			Network:  deref(network),
			Color:    deref(colour),
			Symbol:   deref(symbol),
		}
		if err := decodeGeometry(&rec, geom); err != nil {
			return nil, &DataSourceError{Layer: "routes", Err: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &DataSourceError{Layer: "routes", Err: err}
	}
	return out, nil
}

// POIs returns points of interest visible at the viewport zoom
func (s *Store) POIs(ctx context.Context, vp geo.Viewport) ([]Record, error) {
	sql := fmt.Sprintf(`
		SELECT type, name, ST_AsBinary(geometry)
		FROM %s
		WHERE geometry && %s AND type <> 'peak'`,
		s.table("osm_features", vp.Zoom), envelope)

	return s.query(ctx, "pois", sql, vp, func(rec *Record, vals []any) error {
		rec.Category = CategoryPOI
		rec.Kind = asString(vals[0])
		rec.Name = asString(vals[1])
		return decodeGeometry(rec, vals[2])
	}, 3)
}

// Peaks returns summits with elevation and isolation, most isolated
// first so label placement keeps the prominent ones
func (s *Store) Peaks(ctx context.Context, vp geo.Viewport) ([]Record, error) {
	sql := fmt.Sprintf(`
		SELECT name, ele, isolation, ST_AsBinary(geometry)
		FROM %s
		WHERE geometry && %s AND type = 'peak'
		ORDER BY isolation DESC NULLS LAST`,
		s.table("osm_features", vp.Zoom), envelope)

	rows, err := s.pool.Query(ctx, sql, vp.Bounds.MinX, vp.Bounds.MinY, vp.Bounds.MaxX, vp.Bounds.MaxY)
	if err != nil {
		return nil, &DataSourceError{Layer: "peaks", Err: err}
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var name *string
		var ele, isolation *float64
		var geom []byte
		if err := rows.Scan(&name, &ele, &isolation, &geom); err != nil {
			return nil, &DataSourceError{Layer: "peaks", Err: err}
		}
		rec := Record{
			Category:  CategoryPeak,
			Name:      deref(name),
			Elevation: derefF(ele),
			Isolation: derefF(isolation),
		}
		if err := decodeGeometry(&rec, geom); err != nil {
			return nil, &DataSourceError{Layer: "peaks", Err: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &DataSourceError{Layer: "peaks", Err: err}
	}
	return out, nil
}

// query runs a viewport-bounded statement and maps each row through fn.
// A failed query never returns partial results.
func (s *Store) query(ctx context.Context, layer, sql string, vp geo.Viewport,
	fn func(rec *Record, vals []any) error, ncols int) ([]Record, error) {

	rows, err := s.pool.Query(ctx, sql, vp.Bounds.MinX, vp.Bounds.MinY, vp.Bounds.MaxX, vp.Bounds.MaxY)
	if err != nil {
		return nil, &DataSourceError{Layer: layer, Err: err}
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		vals := make([]any, ncols)
		ptrs := make([]any, ncols)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &DataSourceError{Layer: layer, Err: err}
		}
		var rec Record
		if err := fn(&rec, vals); err != nil {
			return nil, &DataSourceError{Layer: layer, Err: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &DataSourceError{Layer: layer, Err: err}
	}

	s.log.Debug("layer query",
		zap.String("layer", layer),
		zap.Int("zoom", vp.Zoom),
		zap.Int("records", len(out)))

	return out, nil
}

func decodeGeometry(rec *Record, val any) error {
	data, ok := val.([]byte)
	if !ok || len(data) == 0 {
		return fmt.Errorf("missing geometry")
	}
	g, err := wkb.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("malformed geometry: %w", err)
	}
	rec.Geometry = g
	return nil
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefF(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
