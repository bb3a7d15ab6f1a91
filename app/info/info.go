// Package info implements the subcommand that prints a dataset's
// table name, feature count and schema as JSON.
package info

import (
	"context"
	"flag"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/sfomuseum/go-flags/flagset"

	"github.com/bcgeo/bcdata-go/pkg/bcdata"
	"github.com/bcgeo/bcdata-go/pkg/catalog"
	"github.com/bcgeo/bcdata-go/pkg/wfs"
)

type datasetInfo struct {
	Name           string                `json:"name"`
	Count          int                   `json:"count"`
	GeometryColumn string                `json:"geometry_column"`
	GeometryType   string                `json:"geometry_type"`
	Fields         []catalog.SchemaField `json:"fields"`
}

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
		return fmt.Errorf("Usage: info [options] dataset")
	}

	dataset := fs.Arg(0)

	dl, err := bcdata.NewDefault()

	if err != nil {
		return err
	}

	table, err := dl.Catalog().ResolveName(ctx, dataset)

	if err != nil {
		return fmt.Errorf("Failed to resolve %s, %w", dataset, err)
	}

	schema, err := dl.Catalog().Schema(ctx, table, refresh)

	if err != nil {
		return fmt.Errorf("Failed to read schema for %s, %w", table, err)
	}

	count, err := dl.GetCount(ctx, table, wfs.QuerySpec{})

	if err != nil {
		return fmt.Errorf("Failed to count %s, %w", table, err)
	}

	rsp := datasetInfo{
		Name:           schema.Table,
		Count:          count,
		GeometryColumn: schema.GeometryColumn,
		GeometryType:   schema.GeometryType,
		Fields:         schema.Fields,
	}

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)

	if indent {
		enc.SetIndent("", "  ")
	}

	return enc.Encode(rsp)
}
