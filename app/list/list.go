// Package list implements the subcommand that prints all tables
// available from the feature service.
package list

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sfomuseum/go-flags/flagset"

	"github.com/bcgeo/bcdata-go/pkg/bcdata"
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

	dl, err := bcdata.NewDefault()

	if err != nil {
		return err
	}

	tables, err := dl.Catalog().ListTables(ctx, refresh)

	if err != nil {
		return fmt.Errorf("Failed to list tables, %w", err)
	}

	for _, t := range tables {
		fmt.Fprintln(os.Stdout, t)
	}

	return nil
}
