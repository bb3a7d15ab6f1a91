package load

import (
	"flag"

	"github.com/sfomuseum/go-flags/flagset"
)

var dbURL string
var schemaName string
var tableName string
var geometryType string
var primaryKey string
var query string
var bounds string
var boundsCRS string
var sortby string
var pagesize int
var workers int
var count int
var appendData bool
var schemaOnly bool
var noTimestamp bool
var strict bool
var verbose bool

func DefaultFlagSet() *flag.FlagSet {

	fs := flagset.NewFlagSet("load")

	fs.StringVar(&dbURL, "db-url", "", "Target postgres connection URL. Default $DATABASE_URL.")
	fs.StringVar(&schemaName, "schema", "", "Target schema. Defaults to the source schema name.")
	fs.StringVar(&tableName, "table", "", "Target table. Defaults to the source table name.")
	fs.StringVar(&geometryType, "geometry-type", "", "Geometry type of the target table. Derived from the source schema when unset.")
	fs.StringVar(&primaryKey, "primary-key", "", "Source column used as the target table's primary key.")
	fs.StringVar(&query, "query", "", "A CQL filter predicate applied server side.")
	fs.StringVar(&bounds, "bounds", "", "Restrict results to 'minx,miny,maxx,maxy'.")
	fs.StringVar(&boundsCRS, "bounds-crs", "", "CRS of the bounds. Default EPSG:3005.")
	fs.StringVar(&sortby, "sortby", "", "Column used to order paged requests. Defaults to the table's sort key.")
	fs.IntVar(&pagesize, "pagesize", 0, "Features requested per page. Defaults to the server's page size.")
	fs.IntVar(&workers, "workers", 0, "Concurrent page requests. Default 4.")
	fs.IntVar(&count, "count", 0, "Cap the number of features requested.")
	fs.BoolVar(&appendData, "append", false, "Append to an existing table instead of replacing it.")
	fs.BoolVar(&schemaOnly, "schema-only", false, "Create the table and exit without loading data.")
	fs.BoolVar(&noTimestamp, "no-timestamp", false, "Do not record the load in bcdata.log.")
	fs.BoolVar(&strict, "strict", false, "Treat an incomplete result as a fatal error.")
	fs.BoolVar(&verbose, "verbose", false, "Enable debug logging.")

	return fs
}
