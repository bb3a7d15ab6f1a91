// Package count implements the subcommand that prints how many features
// a dataset has, optionally restricted by filter and bounds.
package count

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sfomuseum/go-flags/flagset"

	"github.com/bcgeo/bcdata-go/pkg/bcdata"
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
		return fmt.Errorf("Usage: count [options] dataset")
	}

	dataset := fs.Arg(0)

	spec := wfs.QuerySpec{
		Filter:    query,
		BoundsCRS: boundsCRS,
	}

	if bounds != "" {

		b, err := wfs.ParseBounds(bounds)

		if err != nil {
			return err
		}

		spec.Bounds = b
	}

	dl, err := bcdata.NewDefault()

	if err != nil {
		return err
	}

	n, err := dl.GetCount(ctx, dataset, spec)

	if err != nil {
		return fmt.Errorf("Failed to count %s, %w", dataset, err)
	}

	fmt.Fprintln(os.Stdout, n)
	return nil
}
