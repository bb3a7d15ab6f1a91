// Package cat implements the subcommand that downloads a dataset and
// writes it as line-delimited GeoJSON on stdout.
package cat

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/sfomuseum/go-flags/flagset"
	"github.com/sfomuseum/go-timings"

	"github.com/bcgeo/bcdata-go/pkg/bcdata"
	"github.com/bcgeo/bcdata-go/pkg/logging"
	"github.com/bcgeo/bcdata-go/pkg/pagination"
	"github.com/bcgeo/bcdata-go/pkg/serialize"
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
		return fmt.Errorf("Usage: cat [options] dataset")
	}

	dataset := fs.Arg(0)

	cfg := logging.DefaultConfig()

	if verbose {
		cfg.Level = logging.LevelDebug
	}

	logger := logging.Setup(cfg)

	spec := wfs.QuerySpec{
		Filter:    query,
		BoundsCRS: boundsCRS,
		CRS:       crs,
		SortBy:    sortby,
	}

	if bounds != "" {

		b, err := wfs.ParseBounds(bounds)

		if err != nil {
			return err
		}

		spec.Bounds = b
	}

	monitor, err := timings.NewMonitor(ctx, "counter://PT60S")

	if err != nil {
		return fmt.Errorf("Failed to create new monitor, %w", err)
	}

	monitor.Start(ctx, os.Stderr)
	defer monitor.Stop(ctx)

	opts := bcdata.FetchOptions{
		PageSize:       pagesize,
		MaxConcurrency: workers,
		Count:          count,
		DedupeByID:     dedupe,
		Monitor:        monitor,
	}

	dl, err := bcdata.NewDefault()

	if err != nil {
		return err
	}

	result, err := dl.GetFeatures(ctx, dataset, spec, opts)

	if err != nil {

		var incomplete *pagination.IncompleteResultError

		if !errors.As(err, &incomplete) || strict {
			return fmt.Errorf("Failed to fetch %s, %w", dataset, err)
		}

		logger.Warn().
			Int("expected", incomplete.Reconciliation.Expected).
			Int("delivered", incomplete.Reconciliation.Delivered).
			Int("gaps", len(incomplete.Reconciliation.Gaps)).
			Msg("result is incomplete, writing partial result")

		result = incomplete.Partial
	}

	return serialize.WriteGeoJSONL(os.Stdout, result.Features, serialize.Options{
		CRS:       spec.CRS,
		Lowercase: lowercase,
		Gzip:      gzipOutput,
	})
}
