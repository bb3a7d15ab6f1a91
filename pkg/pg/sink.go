// Package pg loads features into a postgres/PostGIS database, mirroring a
// source table's schema and keeping a log of load timestamps.
package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/bcgeo/bcdata-go/pkg/logging"
)

// insertBatchSize is how many rows are queued per round trip.
const insertBatchSize = 1000

// Sink is a postgres/PostGIS connection that receives features.
type Sink struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewSink connects to the database at url and verifies PostGIS is
// installed.
func NewSink(ctx context.Context, url string) (*Sink, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	var version string
	if err := pool.QueryRow(ctx, "SELECT postgis_full_version()").Scan(&version); err != nil {
		pool.Close()
		return nil, fmt.Errorf("target database does not have PostGIS installed: %w", err)
	}

	logger := logging.NewLogger("pg")
	logger.Debug().Str("postgis", version).Msg("connected to target database")

	return &Sink{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Sink) Close() {
	s.pool.Close()
}

// TableExists reports whether schema.table already exists.
func (s *Sink) TableExists(ctx context.Context, schema, table string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)`,
		strings.ToLower(schema), strings.ToLower(table),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for table %s.%s: %w", schema, table, err)
	}
	return exists, nil
}

// Columns returns the attribute column names of an existing table,
// excluding the geometry column.
func (s *Sink) Columns(ctx context.Context, schema, table string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2
		 ORDER BY ordinal_position`,
		strings.ToLower(schema), strings.ToLower(table),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if name == "geom" {
			continue
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// CreateTable creates the target table from spec, dropping any existing
// table of the same name first. The containing schema is created if
// missing. Table and column comments from the catalogue are applied.
func (s *Sink) CreateTable(ctx context.Context, spec *TableSpec) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", spec.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", spec.Schema, err)
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", spec.QualifiedName())); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", spec.QualifiedName(), err)
	}
	if _, err := s.pool.Exec(ctx, spec.createSQL()); err != nil {
		return fmt.Errorf("failed to create table %s: %w", spec.QualifiedName(), err)
	}

	if spec.Comments != "" {
		sql := fmt.Sprintf("COMMENT ON TABLE %s IS %s", spec.QualifiedName(), quoteLiteral(spec.Comments))
		if _, err := s.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("failed to comment on table %s: %w", spec.QualifiedName(), err)
		}
	}
	for _, col := range spec.Columns {
		if col.Comments == "" {
			continue
		}
		sql := fmt.Sprintf("COMMENT ON COLUMN %s.%q IS %s", spec.QualifiedName(), col.Name, quoteLiteral(col.Comments))
		if _, err := s.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("failed to comment on column %s.%s: %w", spec.QualifiedName(), col.Name, err)
		}
	}

	s.logger.Info().Str("table", spec.QualifiedName()).Msg("created table")
	return nil
}

// LoadFeatures inserts features into schema.table. Property keys are
// matched to columns case-insensitively; properties with no matching
// column are ignored. Single-part geometries are promoted to multipart
// server side. Returns the number of rows inserted.
func (s *Sink) LoadFeatures(ctx context.Context, schema, table string, columns []string, features []*geojson.Feature) (int64, error) {
	if len(features) == 0 {
		return 0, nil
	}

	insert := insertSQL(schema, table, columns)

	var inserted int64
	for start := 0; start < len(features); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(features) {
			end = len(features)
		}

		batch := &pgx.Batch{}
		for _, f := range features[start:end] {
			args, err := rowArgs(columns, f)
			if err != nil {
				return inserted, err
			}
			batch.Queue(insert, args...)
		}

		results := s.pool.SendBatch(ctx, batch)
		for range features[start:end] {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return inserted, fmt.Errorf("failed to insert into %s.%s: %w", schema, table, err)
			}
			inserted += tag.RowsAffected()
		}
		if err := results.Close(); err != nil {
			return inserted, fmt.Errorf("failed to insert into %s.%s: %w", schema, table, err)
		}
	}

	return inserted, nil
}

// insertSQL renders the parameterized insert for the given columns plus
// the geometry column.
func insertSQL(schema, table string, columns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s.%s (", strings.ToLower(schema), strings.ToLower(table))
	for _, c := range columns {
		fmt.Fprintf(&b, "%q, ", c)
	}
	b.WriteString("geom) VALUES (")
	for i := range columns {
		fmt.Fprintf(&b, "$%d, ", i+1)
	}
	fmt.Fprintf(&b, "ST_Multi(ST_GeomFromEWKB($%d)))", len(columns)+1)
	return b.String()
}

// rowArgs builds the parameter list for one feature: one value per
// column, then the EWKB geometry (nil when the feature has none).
func rowArgs(columns []string, f *geojson.Feature) ([]interface{}, error) {
	props := make(map[string]interface{}, len(f.Properties))
	for k, v := range f.Properties {
		props[strings.ToLower(k)] = v
	}

	args := make([]interface{}, 0, len(columns)+1)
	for _, c := range columns {
		args = append(args, props[c])
	}

	if f.Geometry == nil {
		args = append(args, nil)
		return args, nil
	}

	data, err := ewkb.Marshal(promoteMulti(f.Geometry), sinkSRID)
	if err != nil {
		return nil, fmt.Errorf("failed to encode geometry: %w", err)
	}
	args = append(args, data)
	return args, nil
}

// promoteMulti lifts single-part geometries to their multipart
// counterpart so mixed responses land in one geometry type.
func promoteMulti(g orb.Geometry) orb.Geometry {
	switch geom := g.(type) {
	case orb.Point:
		return orb.MultiPoint{geom}
	case orb.LineString:
		return orb.MultiLineString{geom}
	case orb.Polygon:
		return orb.MultiPolygon{geom}
	default:
		return g
	}
}

// RecordLoad upserts the load timestamp for a table into bcdata.log.
func (s *Sink) RecordLoad(ctx context.Context, qualifiedName string, loadedAt time.Time) error {
	if _, err := s.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS bcdata"); err != nil {
		return fmt.Errorf("failed to create log schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS bcdata.log (
			table_name text PRIMARY KEY,
			latest_download timestamp
		)`); err != nil {
		return fmt.Errorf("failed to create log table: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO bcdata.log (table_name, latest_download)
		 VALUES ($1, $2)
		 ON CONFLICT (table_name) DO UPDATE SET latest_download = EXCLUDED.latest_download`,
		qualifiedName, loadedAt,
	); err != nil {
		return fmt.Errorf("failed to record load of %s: %w", qualifiedName, err)
	}
	return nil
}

// quoteLiteral escapes a string for inline use in DDL, where parameters
// are not accepted.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
