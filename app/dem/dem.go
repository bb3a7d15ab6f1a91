// Package dem implements the subcommand that downloads the provincial
// DEM for an extent as GeoTIFF.
package dem

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/sfomuseum/go-flags/flagset"

	"github.com/bcgeo/bcdata-go/pkg/tile"
	"github.com/bcgeo/bcdata-go/pkg/wcs"
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

	if bounds == "" {
		return fmt.Errorf("-bounds is required")
	}

	b, err := wfs.ParseBounds(bounds)

	if err != nil {
		return err
	}

	client, err := wcs.New(wcs.DefaultConfig())

	if err != nil {
		return err
	}

	opts := wcs.DEMOptions{
		SrcCRS:        srcCRS,
		DstCRS:        dstCRS,
		Resolution:    resolution,
		Align:         align,
		Interpolation: interpolation,
	}

	if outDir != "" {

		paths, err := client.GetDEMTiled(ctx, *b, outDir, opts)

		var partial *tile.PartialCoverageError

		if err != nil && !errors.As(err, &partial) {
			return fmt.Errorf("Failed to fetch DEM, %w", err)
		}

		if partial != nil {
			log.Warn().Int("tiles", len(partial.Tiles)).Msg("Some tiles reached the area floor and may be truncated")
		}

		for _, p := range paths {
			fmt.Fprintln(os.Stdout, p)
		}

		return nil
	}

	path, err := client.GetDEM(ctx, *b, out, opts)

	if err != nil {
		return fmt.Errorf("Failed to fetch DEM, %w", err)
	}

	fmt.Fprintln(os.Stdout, path)
	return nil
}
