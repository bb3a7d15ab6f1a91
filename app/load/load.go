// Package load implements the subcommand that mirrors a dataset into a
// postgres/PostGIS table.
package load

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sfomuseum/go-flags/flagset"

	"github.com/bcgeo/bcdata-go/pkg/bcdata"
	"github.com/bcgeo/bcdata-go/pkg/logging"
	"github.com/bcgeo/bcdata-go/pkg/pagination"
	"github.com/bcgeo/bcdata-go/pkg/pg"
	"github.com/bcgeo/bcdata-go/pkg/wfs"
)

func Run(ctx context.Context) error {

	fs := DefaultFlagSet()
	return RunWithFlagSet(ctx, fs)
}

func RunWithFlagSet(ctx context.Context, fs *flag.FlagSet) error {

	flagset.Parse(fs)

	err := flagset.SetFlagsFromEnvVars(fs, "BCDATA")

	if err != nil {
		return fmt.Errorf("Failed to set flags from environment, %w", err)
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("Usage: load [options] dataset")
	}

	dataset := fs.Arg(0)

	if schemaOnly && appendData {
		return fmt.Errorf("Options -schema-only and -append are not compatible")
	}

	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	if dbURL == "" {
		return fmt.Errorf("Provide -db-url or set $DATABASE_URL")
	}

	cfg := logging.DefaultConfig()

	if verbose {
		cfg.Level = logging.LevelDebug
	}

	logger := logging.Setup(cfg)

	dl, err := bcdata.NewDefault()

	if err != nil {
		return err
	}

	table, err := dl.Catalog().ResolveName(ctx, dataset)

	if err != nil {
		return fmt.Errorf("Failed to resolve %s, %w", dataset, err)
	}

	targetSchema, targetTable, err := targetNames(table)

	if err != nil {
		return err
	}

	sink, err := pg.NewSink(ctx, dbURL)

	if err != nil {
		return err
	}

	defer sink.Close()

	// Data is always loaded in BC Albers.
	spec := wfs.QuerySpec{
		Filter:    query,
		BoundsCRS: boundsCRS,
		CRS:       "epsg:3005",
		SortBy:    sortby,
	}

	if bounds != "" {

		b, err := wfs.ParseBounds(bounds)

		if err != nil {
			return err
		}

		spec.Bounds = b
	}

	var columns []string

	if appendData {

		exists, err := sink.TableExists(ctx, targetSchema, targetTable)

		if err != nil {
			return err
		}

		if !exists {
			return fmt.Errorf("%s.%s does not exist, cannot append", targetSchema, targetTable)
		}

		columns, err = sink.Columns(ctx, targetSchema, targetTable)

		if err != nil {
			return err
		}

	} else {

		def, err := dl.Catalog().TableDefinition(ctx, table)

		if err != nil {
			return fmt.Errorf("Failed to read table definition for %s, %w", table, err)
		}

		gt := geometryType

		if gt == "" {

			schema, err := dl.Catalog().Schema(ctx, table, false)

			if err != nil {
				return fmt.Errorf("Failed to read schema for %s, %w", table, err)
			}

			gt, err = pg.GeometryTypeFromService(schema.GeometryType)

			if err != nil {
				return err
			}
		}

		tableSpec, err := pg.BuildTableSpec(targetSchema, targetTable, def, gt, primaryKey)

		if err != nil {
			return err
		}

		err = sink.CreateTable(ctx, tableSpec)

		if err != nil {
			return err
		}

		columns = tableSpec.ColumnNames()
	}

	if sortby != "" && !contains(columns, strings.ToLower(sortby)) {
		return fmt.Errorf("Specified sortby column %s is not present in %s", sortby, table)
	}

	if schemaOnly {
		return nil
	}

	opts := bcdata.FetchOptions{
		PageSize:       pagesize,
		MaxConcurrency: workers,
		Count:          count,
	}

	result, err := dl.GetFeatures(ctx, table, spec, opts)

	if err != nil {

		var incomplete *pagination.IncompleteResultError

		if !errors.As(err, &incomplete) || strict {
			return fmt.Errorf("Failed to fetch %s, %w", table, err)
		}

		logger.Warn().
			Int("expected", incomplete.Reconciliation.Expected).
			Int("delivered", incomplete.Reconciliation.Delivered).
			Int("gaps", len(incomplete.Reconciliation.Gaps)).
			Msg("result is incomplete, loading partial result")

		result = incomplete.Partial
	}

	inserted, err := sink.LoadFeatures(ctx, targetSchema, targetTable, columns, result.Features)

	if err != nil {
		return fmt.Errorf("Failed to load %s.%s, %w", targetSchema, targetTable, err)
	}

	logger.Info().
		Str("table", targetSchema+"."+targetTable).
		Int64("rows", inserted).
		Msg("load complete")

	if !noTimestamp {

		err = sink.RecordLoad(ctx, targetSchema+"."+targetTable, time.Now())

		if err != nil {
			return err
		}
	}

	return nil
}

// targetNames derives the target schema and table from the source table
// name, honoring the -schema and -table overrides.
func targetNames(table string) (string, string, error) {

	parts := strings.Split(strings.ToLower(table), ".")

	if len(parts) != 2 {
		return "", "", fmt.Errorf("Unexpected table name %s", table)
	}

	s, t := parts[0], parts[1]

	if schemaName != "" {
		s = strings.ToLower(schemaName)
	}

	if tableName != "" {
		t = strings.ToLower(tableName)
	}

	return s, t, nil
}

func contains(values []string, v string) bool {
	for _, c := range values {
		if c == v {
			return true
		}
	}
	return false
}
